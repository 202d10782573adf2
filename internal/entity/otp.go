package entity

import (
	"errors"
	"time"
)

type OTPContext string

const (
	OTPContextRegistration  OTPContext = "registration"
	OTPContextLogin         OTPContext = "login"
	OTPContextPasswordReset OTPContext = "password_reset"
	OTPContextVerification  OTPContext = "verification"
)

// ParseOTPContext maps a raw context tag to OTPContext. An empty tag falls
// back to verification.
func ParseOTPContext(raw string) (OTPContext, error) {
	switch c := OTPContext(raw); c {
	case "":
		return OTPContextVerification, nil
	case OTPContextRegistration, OTPContextLogin, OTPContextPasswordReset, OTPContextVerification:
		return c, nil
	default:
		return "", ErrInvalidContext
	}
}

// ClearsOnVerify reports whether a successful verification consumes the code.
// A password reset code stays valid for the follow-up reset step.
func (c OTPContext) ClearsOnVerify() bool {
	return c != OTPContextPasswordReset
}

// CodeDigits is the length of the numeric code issued for the context.
func (c OTPContext) CodeDigits() int {
	if c == OTPContextPasswordReset {
		return 6
	}

	return 4
}

// OtpState is owned by the OTP engine. Outside of it only the post-verification
// cleanup in the account service may reset it.
type OtpState struct {
	CodeHash   string
	ExpiresAt  *time.Time
	Attempts   int
	LockUntil  *time.Time
	LastAction OTPContext
	LastIP     string
}

func (s OtpState) LockedAt(now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

func (s OtpState) HasCode() bool {
	return s.CodeHash != ""
}

func (s OtpState) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt == nil || now.After(*s.ExpiresAt)
}

type OTPStatus string

const (
	OTPStatusOK           OTPStatus = "ok"
	OTPStatusNotFound     OTPStatus = "not_found"
	OTPStatusLocked       OTPStatus = "locked"
	OTPStatusNoActiveCode OTPStatus = "no_active_code"
	OTPStatusExpired      OTPStatus = "expired"
	OTPStatusInvalidCode  OTPStatus = "invalid_code"
	OTPStatusInternal     OTPStatus = "internal"
)

// OTPResult is what the OTP engine returns instead of an error.
type OTPResult struct {
	Status       OTPStatus
	Message      string
	ExpiresAt    *time.Time
	LockUntil    *time.Time
	AttemptsLeft *int
	Account      *Account
}

func (r OTPResult) Success() bool {
	return r.Status == OTPStatusOK
}

// Err converts a failed result into the error taxonomy used by the account
// service and the HTTP layer. It returns nil for a successful result.
func (r OTPResult) Err() error {
	switch r.Status {
	case OTPStatusOK:
		return nil
	case OTPStatusNotFound:
		return ErrNotFound
	case OTPStatusLocked:
		lockErr := &LockedError{}
		if r.LockUntil != nil {
			lockErr.LockUntil = *r.LockUntil
		}

		return lockErr
	case OTPStatusNoActiveCode:
		return ErrNoActiveCode
	case OTPStatusExpired:
		return ErrCodeExpired
	case OTPStatusInvalidCode:
		invalidErr := &InvalidCodeError{}
		if r.AttemptsLeft != nil {
			invalidErr.AttemptsLeft = *r.AttemptsLeft
		}

		return invalidErr
	default:
		return errors.Join(ErrCodeUnavailable, errors.New(r.Message))
	}
}
