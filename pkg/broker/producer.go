package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/samandr77/microservices/account/internal/entity"
)

// Producer publishes outbound email on the notification topic. It satisfies
// the mailer interface of the account service.
type Producer struct {
	l                  *slog.Logger
	w                  *kafka.Writer
	notificationsTopic string
}

func NewProducer(l *slog.Logger, brokers []string, topic string) *Producer {
	l = l.WithGroup("kafka").With("topic", topic)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "",
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		Compression:            0,
		Logger:                 kafkaLogger{l: l, level: slog.LevelDebug},
		ErrorLogger:            kafkaLogger{l: l, level: slog.LevelError},
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		l:                  l,
		w:                  w,
		notificationsTopic: topic,
	}
}

func (p *Producer) Send(ctx context.Context, to, subject, htmlBody string) error {
	return p.SendMessage(ctx, entity.Message{
		Type:        entity.MessageTypeEmail,
		Subject:     subject,
		Message:     htmlBody,
		ContentType: "text/html",
		Recipients:  []string{to},
	})
}

func (p *Producer) SendMessage(ctx context.Context, message entity.Message) error {
	m, err := encodeMessage(p.notificationsTopic, message)
	if err != nil {
		return err
	}

	err = p.w.WriteMessages(ctx, m)
	if err != nil {
		return fmt.Errorf("write kafka message: %w", err)
	}

	return nil
}

func encodeMessage(topic string, message entity.Message) (kafka.Message, error) {
	b, err := json.Marshal(message)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}

	var key []byte
	if len(message.Recipients) > 0 {
		key = []byte(message.Recipients[0])
	}

	return kafka.Message{
		Key:   key,
		Value: b,
		Topic: topic,
	}, nil
}

func (p *Producer) Close() {
	err := p.w.Close()
	if err != nil {
		p.l.Error("close kafka writer", "error", err)
	}
}
