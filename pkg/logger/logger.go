package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	originService = "account"
	redacted      = "[REDACTED]"
)

type ctxKey uint8

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyUserID
	ctxKeyIP
	ctxKeyDeviceID
	ctxKeyUserAgent
	ctxKeyLogType
	ctxKeyMethod
	ctxKeyURL
	ctxKeyCallerService
)

// ctxField describes how a context value ends up in a record. Nullable
// fields are written as null when the context does not carry them.
type ctxField struct {
	key      ctxKey
	name     string
	nullable bool
}

var ctxFields = []ctxField{
	{key: ctxKeyRequestID, name: "request_id"},
	{key: ctxKeyUserID, name: "user_id", nullable: true},
	{key: ctxKeyIP, name: "ip"},
	{key: ctxKeyDeviceID, name: "device_id"},
	{key: ctxKeyUserAgent, name: "useragent"},
	{key: ctxKeyLogType, name: "type"},
	{key: ctxKeyMethod, name: "method"},
	{key: ctxKeyURL, name: "url"},
	{key: ctxKeyCallerService, name: "caller_service", nullable: true},
}

// secretKeys are attribute keys whose values never reach the output.
var secretKeys = map[string]struct{}{
	"password":      {},
	"new_password":  {},
	"otp":           {},
	"code":          {},
	"access_token":  {},
	"refresh_token": {},
	"token":         {},
}

// Handler writes JSON records enriched with the request scoped values set
// through the Set* helpers.
type Handler struct {
	slog.Handler
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	for _, f := range ctxFields {
		v, _ := ctx.Value(f.key).(string)

		switch {
		case v != "":
			record.AddAttrs(slog.String(f.name, v))
		case f.nullable:
			record.AddAttrs(slog.Any(f.name, nil))
		}
	}

	record.AddAttrs(slog.String("origin_service", originService))

	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name)}
}

func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, level)
}

func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(&Handler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: redact,
		}),
	})
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}

	return a
}

// ParseLevel maps LOG_LEVEL to a slog level, falling back to info.
func ParseLevel(level string) slog.Level {
	var l slog.Level

	err := l.UnmarshalText([]byte(strings.TrimSpace(level)))
	if err != nil {
		return slog.LevelInfo
	}

	return l
}

func SetRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, reqID)
}

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

func SetIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIP, ip)
}

func SetDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, ctxKeyDeviceID, deviceID)
}

func SetUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// SetLogType tags the records, e.g. "auth" for handlers and "security" for
// lockouts and failed verifications.
func SetLogType(ctx context.Context, logType string) context.Context {
	return context.WithValue(ctx, ctxKeyLogType, logType)
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, ctxKeyMethod, method)
}

func SetURL(ctx context.Context, url string) context.Context {
	return context.WithValue(ctx, ctxKeyURL, url)
}

func SetCallerService(ctx context.Context, callerService string) context.Context {
	return context.WithValue(ctx, ctxKeyCallerService, callerService)
}
