package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/internal/service"
)

const errInternalText = "Something went wrong. Please try again later."

type Response struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	LockUntil    *time.Time       `json:"lock_until,omitempty"`
	AttemptsLeft *int             `json:"attempts_left,omitempty"`
	ExpiresAt    *time.Time       `json:"expires_at,omitempty"`
	AccessToken  string           `json:"access_token,omitempty"`
	User         *entity.Profile  `json:"user,omitempty"`
	Users        []entity.Profile `json:"users,omitempty"`
}

func sendErr(ctx context.Context, w http.ResponseWriter, code int, err error, msg string) {
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, msg, "error", err.Error(), "http_code", code)
	} else {
		slog.WarnContext(ctx, msg, "error", err.Error(), "http_code", code)
	}

	writeJSON(ctx, w, code, Response{Success: false, Message: msg})
}

func sendJSON(ctx context.Context, w http.ResponseWriter, code int, data Response) {
	writeJSON(ctx, w, code, data)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err.Error(), "http_code", code)
	}
}

// sendServiceErr maps errors of the account service to a status code and a
// client safe message. Internal detail is logged only.
func sendServiceErr(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	var (
		lockedErr  *entity.LockedError
		invalidErr *entity.InvalidCodeError
	)

	switch {
	case errors.As(err, &lockedErr):
		lockUntil := lockedErr.LockUntil
		minutes := int(math.Ceil(time.Until(lockUntil).Minutes()))

		slog.WarnContext(ctx, "account locked", "error", err.Error(), "http_code", http.StatusTooManyRequests)
		sendJSON(ctx, w, http.StatusTooManyRequests, Response{
			Message:   fmt.Sprintf("Too many failed attempts. Please try again in %d minute(s).", max(minutes, 1)),
			LockUntil: &lockUntil,
		})
	case errors.As(err, &invalidErr):
		left := invalidErr.AttemptsLeft

		slog.WarnContext(ctx, "invalid code", "error", err.Error(), "http_code", http.StatusBadRequest)
		sendJSON(ctx, w, http.StatusBadRequest, Response{
			Message:      fmt.Sprintf("Invalid verification code. %d attempt(s) left.", left),
			AttemptsLeft: &left,
		})
	case errors.Is(err, entity.ErrNotFound):
		sendErr(ctx, w, http.StatusNotFound, err, "Account not found.")
	case errors.Is(err, entity.ErrAlreadyExists):
		sendErr(ctx, w, http.StatusConflict, err, "An account with this email already exists.")
	case errors.Is(err, entity.ErrCodeExpired):
		sendErr(ctx, w, http.StatusBadRequest, err, "Verification code expired. Please request a new code.")
	case errors.Is(err, entity.ErrNoActiveCode):
		sendErr(ctx, w, http.StatusBadRequest, err, "No verification code found. Please request a new code.")
	case errors.Is(err, entity.ErrCodeContext):
		sendErr(ctx, w, http.StatusBadRequest, err, "This code was not issued for a password reset.")
	case errors.Is(err, entity.ErrInvalidContext):
		sendErr(ctx, w, http.StatusBadRequest, err, "Invalid context.")
	case errors.Is(err, entity.ErrEmailNormalization),
		errors.Is(err, entity.ErrEmailInvalidFormat),
		errors.Is(err, entity.ErrEmailInvalidLen):
		sendErr(ctx, w, http.StatusBadRequest, err, emailErrText(err))
	case errors.Is(err, entity.ErrPasswordRequired):
		sendErr(ctx, w, http.StatusBadRequest, err, "Password is required.")
	case errors.Is(err, entity.ErrPasswordWeak):
		sendErr(ctx, w, http.StatusBadRequest, err, "Password is too weak. Use a longer password with mixed characters.")
	case errors.Is(err, entity.ErrAvatarTooLarge):
		sendErr(ctx, w, http.StatusBadRequest, err, "Profile image must not exceed 5 MB.")
	case errors.Is(err, entity.ErrAvatarNotAnImage):
		sendErr(ctx, w, http.StatusBadRequest, err, "Only image files are allowed.")
	case errors.Is(err, entity.ErrInvalidInput):
		sendErr(ctx, w, http.StatusBadRequest, err, "Invalid request.")
	case errors.Is(err, entity.ErrTokenExpired):
		sendErr(ctx, w, http.StatusUnauthorized, err, "Token expired. Please sign in again.")
	case errors.Is(err, entity.ErrInvalidToken):
		sendErr(ctx, w, http.StatusUnauthorized, err, "Invalid token.")
	case errors.Is(err, entity.ErrUnauthorized):
		sendErr(ctx, w, http.StatusUnauthorized, err, "Invalid credentials.")
	case errors.Is(err, entity.ErrNotVerified):
		sendErr(ctx, w, http.StatusForbidden, err,
			"Account not verified. A verification code has been sent to your email.")
	case errors.Is(err, entity.ErrForbidden):
		sendErr(ctx, w, http.StatusForbidden, err, "Access denied.")
	default:
		sendErr(ctx, w, http.StatusInternalServerError, err, fallback)
	}
}

func emailErrText(err error) string {
	switch {
	case errors.Is(err, entity.ErrEmailInvalidLen):
		return fmt.Sprintf("Email must not exceed %d characters.", service.EmailMaxLen)
	default:
		return "Please enter a valid email address."
	}
}
