// Package notifier delivers messages published by the account service.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samandr77/microservices/account/internal/entity"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=service.go -destination=../mocks/notifier.go -package=mocks

type EmailSender interface {
	SendMessage(subject, message string, recipients []string, contentType string) error
}

type Service struct {
	email EmailSender
}

func New(email EmailSender) *Service {
	return &Service{email: email}
}

func (s *Service) SendMessage(ctx context.Context, message entity.Message) error {
	switch message.Type {
	case entity.MessageTypeEmail:
		err := s.email.SendMessage(
			message.Subject,
			message.Message,
			message.Recipients,
			message.ContentType,
		)
		if err != nil {
			return err
		}

		slog.InfoContext(ctx, "email delivered", "subject", message.Subject, "recipients", len(message.Recipients))
	default:
		return fmt.Errorf("%w: %s", entity.ErrUnknownMessageType, message.Type)
	}

	return nil
}
