package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/samandr77/microservices/account/internal/api/events"
	"github.com/samandr77/microservices/account/internal/clients/gomail"
	"github.com/samandr77/microservices/account/internal/notifier"
	"github.com/samandr77/microservices/account/pkg/broker"
	"github.com/samandr77/microservices/account/pkg/config"
	"github.com/samandr77/microservices/account/pkg/logger"
)

// The notifier delivers emails queued by the account service when it runs
// with MAILER_TRANSPORT=kafka.
func main() {
	err := run()
	if err != nil {
		log.Panicf("notifier: %s", err)
	}
}

func run() error {
	cfg, err := config.New(".env")
	if err != nil {
		return err
	}

	l := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(l)

	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	handler := events.NewEventHandler(notifier.New(gomail.New(cfg.Mailer)))

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerID, cfg.Kafka.NotificationTopic).
		Handle(cfg.Kafka.NotificationTopic, handler.SendNotification)
	consumer.Consume(ctx)

	l.Info("notifier started", "topic", cfg.Kafka.NotificationTopic, "group_id", cfg.Kafka.ConsumerID)

	<-ctx.Done()

	l.Info("shutting down")
	consumer.Close()

	return nil
}
