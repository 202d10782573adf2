package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/pkg/config"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Minio stores profile images in an S3 compatible bucket.
type Minio struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

func NewMinio(cfg config.StorageConfig) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}

		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &Minio{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		now:       time.Now,
	}, nil
}

// EnsureBucket creates the bucket when it is missing.
func (m *Minio) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}

	if exists {
		return nil
	}

	err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	if err != nil {
		return fmt.Errorf("make bucket %s: %w", m.bucket, err)
	}

	return nil
}

// UploadAvatar stores the image and returns its public URL.
func (m *Minio) UploadAvatar(ctx context.Context, accountID uuid.UUID, avatar entity.Avatar) (string, error) {
	key := objectKey(accountID, avatar.Name, m.now())

	_, err := m.client.PutObject(ctx, m.bucket, key,
		bytes.NewReader(avatar.Data), int64(len(avatar.Data)),
		minio.PutObjectOptions{ContentType: avatar.ContentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return m.objectURL(key), nil
}

func (m *Minio) objectURL(key string) string {
	return m.publicURL + "/" + m.bucket + "/" + key
}

func objectKey(accountID uuid.UUID, name string, now time.Time) string {
	name = unsafeNameChars.ReplaceAllString(path.Base(name), "_")
	if name == "" || name == "." || name == "_" {
		name = "avatar"
	}

	return fmt.Sprintf("users/%s/%d_%s", accountID, now.Unix(), name)
}
