package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5/request"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/pkg/logger"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=middlewares.go -destination=../mocks/middlewares.go -package=mocks

const requestIDHeader = "X-Request-Id"

var skipLogging = map[string]struct{}{
	"/api/health": {},
}

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (entity.AccountClaims, error)
}

type Middleware struct {
	auth       Authenticator
	trustProxy bool
}

// NewMiddleware builds the HTTP middleware set. Proxy address headers are
// honoured only with trustProxy.
func NewMiddleware(auth Authenticator, trustProxy bool) *Middleware {
	return &Middleware{
		auth:       auth,
		trustProxy: trustProxy,
	}
}

// Log attaches request scoped fields to the context and writes one record
// when the request arrives and one when it completes.
func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.Must(uuid.NewV4()).String()
		}

		w.Header().Set(requestIDHeader, requestID)

		ctx := requestLogContext(r, requestID)
		r = r.WithContext(ctx)

		if _, quiet := skipLogging[r.URL.Path]; quiet {
			next.ServeHTTP(w, r)
			return
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		slog.InfoContext(ctx, "incoming request")
		next.ServeHTTP(sw, r)
		slog.InfoContext(ctx, "request completed",
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func requestLogContext(r *http.Request, requestID string) context.Context {
	ctx := r.Context()

	caller := r.Header.Get("X-Service-Name")
	if caller == "" {
		caller = "unknown"
	}

	ctx = logger.SetRequestID(ctx, requestID)
	ctx = logger.SetMethod(ctx, r.Method)
	ctx = logger.SetURL(ctx, r.URL.Path)
	ctx = logger.SetUserAgent(ctx, r.UserAgent())
	ctx = logger.SetLogType(ctx, "webrequest")
	ctx = logger.SetCallerService(ctx, caller)
	ctx = logger.SetIP(ctx, entity.IPFromCtx(ctx))

	return logger.SetDeviceID(ctx, entity.DeviceIDFromCtx(ctx))
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				ctx := r.Context()

				slog.ErrorContext(ctx, "panic", "error", v, "stack", string(debug.Stack()))
				sendErr(ctx, w, http.StatusInternalServerError, fmt.Errorf("panic: %v", v), errInternalText)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// WithIP resolves the client address. Behind a trusted proxy X-Real-IP wins
// over the first valid X-Forwarded-For entry, which wins over the socket
// address. Otherwise only the socket address counts.
func (m *Middleware) WithIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, m.trustProxy)
		if ip == "" {
			slog.WarnContext(r.Context(), "invalid IP detected, using fallback", "remote_addr", r.RemoteAddr)
			ip = "unknown"
		}

		ctx := context.WithValue(r.Context(), entity.CtxKeyIP{}, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) WithDeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deviceID := hashDeviceID(entity.IPFromCtx(r.Context()), r.UserAgent())

		ctx := context.WithValue(r.Context(), entity.CtxKeyDeviceID{}, deviceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// BearerAuth verifies the access token and stores its claims in the context.
func (m *Middleware) BearerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.SetLogType(r.Context(), "auth")

		token, err := request.BearerExtractor{}.ExtractToken(r)
		if err != nil {
			sendErr(ctx, w, http.StatusUnauthorized, err, "Access token is missing.")
			return
		}

		claims, err := m.auth.Authenticate(ctx, token)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrTokenExpired):
				sendErr(ctx, w, http.StatusUnauthorized, err, "Token expired. Please sign in again.")
			case errors.Is(err, entity.ErrInvalidToken):
				sendErr(ctx, w, http.StatusUnauthorized, err, "Invalid token.")
			default:
				sendErr(ctx, w, http.StatusInternalServerError, err, errInternalText)
			}

			return
		}

		ctx = entity.CtxWithClaims(r.Context(), claims)
		ctx = logger.SetUserID(ctx, claims.ID.String())

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request, trustProxy bool) string {
	if !trustProxy {
		return validIP(r.RemoteAddr)
	}

	if ip := validIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := validIP(part); ip != "" {
			return ip
		}
	}

	return validIP(r.RemoteAddr)
}

// validIP strips an optional port and returns the address when it parses.
func validIP(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}

	if net.ParseIP(addr) == nil {
		return ""
	}

	return addr
}

func hashDeviceID(ip, userAgent string) string {
	if ip == "" && userAgent == "" {
		return ""
	}

	hash := sha256.Sum256([]byte(ip + "|" + userAgent))

	return hex.EncodeToString(hash[:16])
}
