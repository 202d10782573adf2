package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrNotVerified   = errors.New("account is not verified")
)

var (
	ErrInvalidContext  = errors.New("invalid otp context")
	ErrCodeExpired     = errors.New("expired code")
	ErrNoActiveCode    = errors.New("no active code")
	ErrCodeInvalid     = errors.New("invalid code")
	ErrCodeContext     = errors.New("code was issued for another context")
	ErrCodeUnavailable = errors.New("code could not be issued")
)

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordWeak     = errors.New("password is too weak")
)

var (
	ErrEmailInvalidLen    = errors.New("email length exceeds 255 characters")
	ErrEmailInvalidFormat = errors.New("incorrect email format")
	ErrEmailNormalization = errors.New("email normalization failed")
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

var (
	ErrAvatarTooLarge   = errors.New("profile image exceeds size limit")
	ErrAvatarNotAnImage = errors.New("only image files are allowed")
)

// LockedError is returned while an account is inside its lockout window.
type LockedError struct {
	LockUntil time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.LockUntil.Format(time.RFC3339))
}

type InvalidCodeError struct {
	AttemptsLeft int
}

func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("%s: %d attempts left", ErrCodeInvalid, e.AttemptsLeft)
}

func (e *InvalidCodeError) Unwrap() error { return ErrCodeInvalid }
