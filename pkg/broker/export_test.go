package broker

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

type Reader = reader

var EncodeMessage = encodeMessage

func NewTestConsumer(r Reader, pause time.Duration) *Consumer {
	c := newConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), r)
	c.pause = pause

	return c
}

func (c *Consumer) Dispatch(ctx context.Context, m kafka.Message) { c.dispatch(ctx, m) }
