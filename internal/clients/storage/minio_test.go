package storage_test

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/samandr77/microservices/account/internal/clients/storage"
	"github.com/samandr77/microservices/account/pkg/config"
)

func TestObjectKey(t *testing.T) {
	t.Parallel()

	id := uuid.Must(uuid.FromString("6f1c3a52-8a4e-4f8e-9a0b-3c2d1e0f9a8b"))
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name string
		file string
		want string
	}{
		{"Plain name", "me.png", "users/6f1c3a52-8a4e-4f8e-9a0b-3c2d1e0f9a8b/1700000000_me.png"},
		{"Path is stripped", "../../etc/me.png", "users/6f1c3a52-8a4e-4f8e-9a0b-3c2d1e0f9a8b/1700000000_me.png"},
		{"Spaces replaced", "my photo.jpg", "users/6f1c3a52-8a4e-4f8e-9a0b-3c2d1e0f9a8b/1700000000_my_photo.jpg"},
		{"Empty name", "", "users/6f1c3a52-8a4e-4f8e-9a0b-3c2d1e0f9a8b/1700000000_avatar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tt.want, storage.ObjectKey(id, tt.file, now))
		})
	}
}

func TestMinio_ObjectURL(t *testing.T) {
	t.Parallel()

	m, err := storage.NewMinio(config.StorageConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "profile-images",
		UseSSL:    false,
	})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9000/profile-images/users/x/1_a.png", m.ObjectURL("users/x/1_a.png"))

	m, err = storage.NewMinio(config.StorageConfig{
		Endpoint:  "localhost:9000",
		Bucket:    "profile-images",
		PublicURL: "https://cdn.example.com/",
		UseSSL:    true,
	})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/profile-images/k", m.ObjectURL("k"))
}
