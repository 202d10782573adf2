package broker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const fetchBackoff = time.Second

type Handler func(context.Context, kafka.Message) error

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a consumer group and routes every message to the handler
// registered for its topic. Each message is handled once and its offset is
// committed whether or not the handler succeeded.
type Consumer struct {
	l        *slog.Logger
	r        reader
	wg       *sync.WaitGroup
	handlers map[string]Handler
	pause    time.Duration
}

func NewConsumer(brokers []string, groupID string, topics ...string) *Consumer {
	l := slog.Default().WithGroup("kafka").With("group_id", groupID)

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		GroupTopics: topics,
		Logger:      kafkaLogger{l: l, level: slog.LevelDebug},
		ErrorLogger: kafkaLogger{l: l, level: slog.LevelError},
	})

	return newConsumer(l, r)
}

func newConsumer(l *slog.Logger, r reader) *Consumer {
	return &Consumer{
		l:        l,
		r:        r,
		wg:       &sync.WaitGroup{},
		handlers: make(map[string]Handler),
		pause:    fetchBackoff,
	}
}

func (c *Consumer) Handle(topic string, handler Handler) *Consumer {
	c.handlers[topic] = handler
	return c
}

// Consume starts the read loop in the background. It stops when ctx is
// cancelled or the reader is closed.
func (c *Consumer) Consume(ctx context.Context) *Consumer {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		for {
			m, err := c.r.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, io.EOF) || ctx.Err() != nil {
					c.l.Info("consumer stopped")
					return
				}

				c.l.Error("fetch kafka message", "error", err)

				select {
				case <-ctx.Done():
					c.l.Info("consumer stopped")
					return
				case <-time.After(c.pause):
				}

				continue
			}

			c.dispatch(ctx, m)

			err = c.r.CommitMessages(ctx, m)
			if err != nil && ctx.Err() == nil {
				c.l.Error("commit kafka message", "error", err, "topic", m.Topic, "offset", m.Offset)
			}
		}
	}()

	return c
}

// dispatch runs the topic handler once. A failed message is logged and
// dropped.
func (c *Consumer) dispatch(ctx context.Context, m kafka.Message) {
	handler, ok := c.handlers[m.Topic]
	if !ok {
		c.l.Warn("kafka handler not found", "topic", m.Topic)
		return
	}

	err := handler(ctx, m)
	if err != nil {
		c.l.Error("kafka message dropped", "error", err, "topic", m.Topic, "offset", m.Offset)
	}
}

func (c *Consumer) Close() {
	err := c.r.Close()
	if err != nil {
		c.l.Error("close kafka reader", "error", err)
	}

	c.wg.Wait()
}
