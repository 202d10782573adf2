package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/samandr77/microservices/account/internal/entity"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=../../mocks/events.go -package=mocks

type Notifier interface {
	SendMessage(ctx context.Context, message entity.Message) error
}

type EventHandler struct {
	s Notifier
}

func NewEventHandler(s Notifier) *EventHandler {
	return &EventHandler{s: s}
}

func (h *EventHandler) SendNotification(ctx context.Context, msg kafka.Message) error {
	var event entity.Message

	err := json.Unmarshal(msg.Value, &event)
	if err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}

	err = h.s.SendMessage(ctx, event)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}

	return nil
}
