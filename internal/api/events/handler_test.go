package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/samandr77/microservices/account/internal/api/events"
	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/internal/mocks"
)

func TestEventHandler_SendNotification(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)

	want := entity.Message{
		Type:        entity.MessageTypeEmail,
		Subject:     "Reset your password",
		Message:     "<p>123456</p>",
		ContentType: "text/html",
		Recipients:  []string{"user@example.com"},
	}

	notifier.EXPECT().SendMessage(gomock.Any(), want).Return(nil)

	h := events.NewEventHandler(notifier)

	err := h.SendNotification(context.Background(), kafka.Message{
		Value: []byte(`{"type":"email","subject":"Reset your password","message":"<p>123456</p>",` +
			`"content_type":"text/html","recipients":["user@example.com"]}`),
	})
	require.NoError(t, err)
}

func TestEventHandler_SendNotification_Errors(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	notifier := mocks.NewMockNotifier(ctrl)
	h := events.NewEventHandler(notifier)

	err := h.SendNotification(context.Background(), kafka.Message{Value: []byte("not json")})
	require.Error(t, err)

	notifier.EXPECT().SendMessage(gomock.Any(), gomock.Any()).Return(errors.New("smtp down"))

	err = h.SendNotification(context.Background(), kafka.Message{Value: []byte(`{"type":"email"}`)})
	require.ErrorContains(t, err, "smtp down")
}
