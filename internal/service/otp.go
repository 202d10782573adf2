package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/pkg/config"
	"github.com/samandr77/microservices/account/pkg/logger"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=otp.go -destination=../mocks/otp.go -package=mocks

type OTPStore interface {
	AccountByEmail(ctx context.Context, email string) (entity.Account, error)
	SaveOTP(ctx context.Context, id uuid.UUID, otp entity.OtpState) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) bool
}

type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

const (
	msgNotFound     = "Account not found."
	msgNoActiveCode = "No verification code found. Please request a new code."
	msgExpired      = "Verification code expired."
	msgInternal     = "Could not process the verification code. Please try again later."
	msgCodeSent     = "Verification code generated and sent."
	msgCodeValid    = "Verification code is valid."
)

// OTPEngine issues and checks one-time codes. It is the only writer of
// account OTP state apart from the post-verification cleanup.
type OTPEngine struct {
	cfg    config.OTPConfig
	store  OTPStore
	mailer Mailer
	hasher Hasher
	locker Locker
	now    func() time.Time
}

func NewOTPEngine(cfg config.OTPConfig, store OTPStore, mailer Mailer, hasher Hasher, locker Locker) *OTPEngine {
	return &OTPEngine{
		cfg:    cfg,
		store:  store,
		mailer: mailer,
		hasher: hasher,
		locker: locker,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (e *OTPEngine) WithClock(now func() time.Time) *OTPEngine {
	e.now = now
	return e
}

// GenerateAndSend issues a fresh code for the account and emails it. The new
// state is persisted before the email goes out; a failed delivery is only
// logged.
func (e *OTPEngine) GenerateAndSend(ctx context.Context, email string, otpCtx entity.OTPContext, ip string) entity.OTPResult {
	res, account, code := e.issue(ctx, email, otpCtx, ip)
	if !res.Success() {
		return res
	}

	subject, body, err := CodeEmail(otpCtx, account.DisplayName(), code, e.cfg.CodeTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render otp email", "email", email, "context", otpCtx, "error", err)
		return res
	}

	err = e.mailer.Send(ctx, account.Email, subject, body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "email", email, "context", otpCtx, "error", err)
		return res
	}

	slog.InfoContext(ctx, "otp generated", "email", email, "context", otpCtx, "ip", ip)

	return res
}

func (e *OTPEngine) issue(
	ctx context.Context, email string, otpCtx entity.OTPContext, ip string,
) (entity.OTPResult, entity.Account, string) {
	unlock, err := e.locker.Lock(ctx, lockKey(email))
	if err != nil {
		slog.ErrorContext(ctx, "failed to lock account for otp issue", "email", email, "error", err)
		return internalResult(), entity.Account{}, ""
	}
	defer unlock()

	account, err := e.store.AccountByEmail(ctx, email)
	if err != nil {
		return notFoundOrInternal(ctx, email, err), entity.Account{}, ""
	}

	now := e.now()

	if account.OTP.LockedAt(now) {
		slog.WarnContext(logger.SetLogType(ctx, "security"), "otp issue refused, account locked",
			"email", email, "context", otpCtx, "ip", ip, "lock_until", account.OTP.LockUntil)

		return e.lockedResult(*account.OTP.LockUntil, now), entity.Account{}, ""
	}

	code, err := generateCode(otpCtx.CodeDigits())
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp", "email", email, "error", err)
		return internalResult(), entity.Account{}, ""
	}

	codeHash, err := e.hasher.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp", "email", email, "error", err)
		return internalResult(), entity.Account{}, ""
	}

	expiresAt := now.Add(e.cfg.CodeTTL)

	account.OTP = entity.OtpState{
		CodeHash:   codeHash,
		ExpiresAt:  &expiresAt,
		Attempts:   0,
		LockUntil:  nil,
		LastAction: otpCtx,
		LastIP:     ip,
	}

	err = e.store.SaveOTP(ctx, account.ID, account.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save otp", "email", email, "error", err)
		return internalResult(), entity.Account{}, ""
	}

	return entity.OTPResult{
		Status:    entity.OTPStatusOK,
		Message:   msgCodeSent,
		ExpiresAt: &expiresAt,
	}, account, code
}

// Verify checks code against the stored hash. A mismatch consumes an attempt
// and the last allowed mismatch locks the account. Success does not modify
// the account.
func (e *OTPEngine) Verify(ctx context.Context, email, code string, otpCtx entity.OTPContext, ip string) entity.OTPResult {
	unlock, err := e.locker.Lock(ctx, lockKey(email))
	if err != nil {
		slog.ErrorContext(ctx, "failed to lock account for otp verify", "email", email, "error", err)
		return internalResult()
	}
	defer unlock()

	account, err := e.store.AccountByEmail(ctx, email)
	if err != nil {
		return notFoundOrInternal(ctx, email, err)
	}

	now := e.now()
	secCtx := logger.SetLogType(ctx, "security")

	if account.OTP.LockedAt(now) {
		slog.WarnContext(secCtx, "otp verify refused, account locked",
			"email", email, "context", otpCtx, "ip", ip, "lock_until", account.OTP.LockUntil)

		return e.lockedResult(*account.OTP.LockUntil, now)
	}

	if !account.OTP.HasCode() {
		return entity.OTPResult{Status: entity.OTPStatusNoActiveCode, Message: msgNoActiveCode}
	}

	if account.OTP.ExpiredAt(now) {
		slog.InfoContext(secCtx, "otp verify failed, code expired", "email", email, "context", otpCtx, "ip", ip)
		return entity.OTPResult{Status: entity.OTPStatusExpired, Message: msgExpired}
	}

	if e.hasher.Compare(code, account.OTP.CodeHash) {
		slog.InfoContext(ctx, "otp verified", "email", email, "context", otpCtx, "ip", ip)

		return entity.OTPResult{
			Status:  entity.OTPStatusOK,
			Message: msgCodeValid,
			Account: &account,
		}
	}

	account.OTP.Attempts++

	if account.OTP.Attempts >= e.cfg.MaxAttempts {
		lockUntil := now.Add(e.cfg.LockTime)
		account.OTP.LockUntil = &lockUntil
		account.OTP.Attempts = 0

		err = e.store.SaveOTP(ctx, account.ID, account.OTP)
		if err != nil {
			slog.ErrorContext(ctx, "failed to save otp lock", "email", email, "error", err)
			return internalResult()
		}

		slog.WarnContext(secCtx, "account locked after failed otp attempts",
			"email", email, "context", otpCtx, "ip", ip, "attempts", e.cfg.MaxAttempts, "lock_until", lockUntil)

		return entity.OTPResult{
			Status: entity.OTPStatusLocked,
			Message: fmt.Sprintf(
				"Too many failed attempts. Your account is temporarily locked for %d minutes.",
				int(e.cfg.LockTime.Minutes()),
			),
			LockUntil: &lockUntil,
		}
	}

	err = e.store.SaveOTP(ctx, account.ID, account.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save otp attempts", "email", email, "error", err)
		return internalResult()
	}

	left := e.cfg.MaxAttempts - account.OTP.Attempts

	slog.WarnContext(secCtx, "otp verify failed, invalid code",
		"email", email, "context", otpCtx, "ip", ip, "attempts", account.OTP.Attempts, "max_attempts", e.cfg.MaxAttempts)

	return entity.OTPResult{
		Status:       entity.OTPStatusInvalidCode,
		Message:      fmt.Sprintf("Invalid verification code. %d attempt(s) left.", left),
		AttemptsLeft: &left,
	}
}

func (e *OTPEngine) lockedResult(lockUntil, now time.Time) entity.OTPResult {
	minutes := int(math.Ceil(lockUntil.Sub(now).Minutes()))

	return entity.OTPResult{
		Status:    entity.OTPStatusLocked,
		Message:   fmt.Sprintf("Too many failed attempts. Please try again in %d minute(s).", minutes),
		LockUntil: &lockUntil,
	}
}

func notFoundOrInternal(ctx context.Context, email string, err error) entity.OTPResult {
	if errors.Is(err, entity.ErrNotFound) {
		return entity.OTPResult{Status: entity.OTPStatusNotFound, Message: msgNotFound}
	}

	slog.ErrorContext(ctx, "failed to load account for otp", "email", email, "error", err)

	return internalResult()
}

func internalResult() entity.OTPResult {
	return entity.OTPResult{Status: entity.OTPStatusInternal, Message: msgInternal}
}

func lockKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// generateCode returns a uniformly distributed code with exactly digits digits.
func generateCode(digits int) (string, error) {
	lowest := int64(math.Pow10(digits - 1))

	n, err := rand.Int(rand.Reader, big.NewInt(9*lowest))
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(lowest+n.Int64(), 10), nil
}
