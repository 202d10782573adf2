package service_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/internal/mocks"
	"github.com/samandr77/microservices/account/internal/service"
	"github.com/samandr77/microservices/account/pkg/config"
	"github.com/samandr77/microservices/account/pkg/hasher"
	"github.com/samandr77/microservices/account/pkg/lock"
)

const (
	testEmail = "user@example.com"
	testIP    = "10.0.0.7"
)

var testOTPConfig = config.OTPConfig{
	CodeTTL:     10 * time.Minute,
	LockTime:    10 * time.Minute,
	MaxAttempts: 5,
}

type engineEnv struct {
	engine  *service.OTPEngine
	repo    *memRepo
	mail    *mailbox
	clock   *clock
	account entity.Account
}

func newEngineEnv(t *testing.T) engineEnv {
	t.Helper()

	repo := newMemRepo()
	mail := &mailbox{}
	clk := newClock()

	account := repo.add(entity.Account{Email: testEmail, FirstName: "Ada"})

	engine := service.NewOTPEngine(testOTPConfig, repo, mail, hasher.NewBcrypt(bcrypt.MinCost), lock.NewLocal()).
		WithClock(clk.Now)

	return engineEnv{engine: engine, repo: repo, mail: mail, clock: clk, account: account}
}

func (env engineEnv) issue(t *testing.T, otpCtx entity.OTPContext) string {
	t.Helper()

	res := env.engine.GenerateAndSend(context.Background(), testEmail, otpCtx, testIP)
	require.True(t, res.Success(), res.Message)

	return env.mail.lastCode(t)
}

func (env engineEnv) verify(code string, otpCtx entity.OTPContext) entity.OTPResult {
	return env.engine.Verify(context.Background(), testEmail, code, otpCtx, testIP)
}

func TestOTPEngine_GenerateAndSend(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)

	res := env.engine.GenerateAndSend(context.Background(), testEmail, entity.OTPContextRegistration, testIP)
	require.Equal(t, entity.OTPStatusOK, res.Status)
	require.NotNil(t, res.ExpiresAt)
	require.Equal(t, env.clock.Now().Add(10*time.Minute), *res.ExpiresAt)

	mail := env.mail.last(t)
	require.Equal(t, testEmail, mail.to)
	require.Equal(t, "Verify your account", mail.subject)

	code := env.mail.lastCode(t)
	require.Regexp(t, regexp.MustCompile(`^[1-9]\d{3}$`), code)

	state := env.repo.get(env.account.ID).OTP
	require.Zero(t, state.Attempts)
	require.Nil(t, state.LockUntil)
	require.Equal(t, entity.OTPContextRegistration, state.LastAction)
	require.Equal(t, testIP, state.LastIP)
	require.NotEqual(t, code, state.CodeHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(state.CodeHash), []byte(code)))
}

func TestOTPEngine_CodeLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ctx    entity.OTPContext
		digits string
	}{
		{entity.OTPContextRegistration, `^[1-9]\d{3}$`},
		{entity.OTPContextLogin, `^[1-9]\d{3}$`},
		{entity.OTPContextVerification, `^[1-9]\d{3}$`},
		{entity.OTPContextPasswordReset, `^[1-9]\d{5}$`},
	}

	for _, tt := range tests {
		t.Run(string(tt.ctx), func(t *testing.T) {
			t.Parallel()

			env := newEngineEnv(t)
			require.Regexp(t, regexp.MustCompile(tt.digits), env.issue(t, tt.ctx))
		})
	}
}

func TestGenerateCode_Range(t *testing.T) {
	t.Parallel()

	for range 200 {
		code, err := service.GenerateCode(4)
		require.NoError(t, err)
		require.Len(t, code, 4)
		require.NotEqual(t, byte('0'), code[0])
	}
}

func TestOTPEngine_UnknownEmail(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)

	res := env.engine.GenerateAndSend(context.Background(), "nobody@example.com", entity.OTPContextLogin, testIP)
	require.Equal(t, entity.OTPStatusNotFound, res.Status)
	require.ErrorIs(t, res.Err(), entity.ErrNotFound)

	res = env.engine.Verify(context.Background(), "nobody@example.com", "1234", entity.OTPContextLogin, testIP)
	require.Equal(t, entity.OTPStatusNotFound, res.Status)
	require.Zero(t, env.mail.count())
}

func TestOTPEngine_VerifyValidCode(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	code := env.issue(t, entity.OTPContextRegistration)
	before := env.repo.get(env.account.ID).OTP

	res := env.verify(code, entity.OTPContextRegistration)
	require.Equal(t, entity.OTPStatusOK, res.Status)
	require.NotNil(t, res.Account)
	require.Equal(t, env.account.ID, res.Account.ID)

	// success leaves the state to the caller
	require.Equal(t, before, env.repo.get(env.account.ID).OTP)
}

func TestOTPEngine_NoActiveCode(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)

	res := env.verify("1234", entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusNoActiveCode, res.Status)
	require.ErrorIs(t, res.Err(), entity.ErrNoActiveCode)
	require.Zero(t, env.repo.get(env.account.ID).OTP.Attempts)
}

func TestOTPEngine_LockAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	code := env.issue(t, entity.OTPContextLogin)
	bad := wrongCode(code)

	for left := 4; left >= 1; left-- {
		res := env.verify(bad, entity.OTPContextLogin)
		require.Equal(t, entity.OTPStatusInvalidCode, res.Status)
		require.NotNil(t, res.AttemptsLeft)
		require.Equal(t, left, *res.AttemptsLeft)
		require.Equal(t, 5-left, env.repo.get(env.account.ID).OTP.Attempts)
	}

	res := env.verify(bad, entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusLocked, res.Status)
	require.Equal(t, "Too many failed attempts. Your account is temporarily locked for 10 minutes.", res.Message)
	require.NotNil(t, res.LockUntil)
	require.Equal(t, env.clock.Now().Add(10*time.Minute), *res.LockUntil)

	state := env.repo.get(env.account.ID).OTP
	require.Zero(t, state.Attempts)
	require.NotNil(t, state.LockUntil)

	var lockedErr *entity.LockedError
	require.ErrorAs(t, res.Err(), &lockedErr)
	require.Equal(t, *res.LockUntil, lockedErr.LockUntil)
}

func TestOTPEngine_LockedRejectsCorrectCode(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	code := env.issue(t, entity.OTPContextLogin)

	for range 5 {
		env.verify(wrongCode(code), entity.OTPContextLogin)
	}

	env.clock.Advance(time.Minute)

	res := env.verify(code, entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusLocked, res.Status)
	require.Equal(t, "Too many failed attempts. Please try again in 9 minute(s).", res.Message)
	require.Zero(t, env.repo.get(env.account.ID).OTP.Attempts)

	sent := env.mail.count()

	res = env.engine.GenerateAndSend(context.Background(), testEmail, entity.OTPContextLogin, testIP)
	require.Equal(t, entity.OTPStatusLocked, res.Status)
	require.Equal(t, sent, env.mail.count())
}

func TestOTPEngine_LockExpires(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	code := env.issue(t, entity.OTPContextLogin)

	for range 5 {
		env.verify(wrongCode(code), entity.OTPContextLogin)
	}

	env.clock.Advance(10*time.Minute + time.Second)

	fresh := env.issue(t, entity.OTPContextLogin)
	require.Nil(t, env.repo.get(env.account.ID).OTP.LockUntil)

	res := env.verify(fresh, entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusOK, res.Status)
}

func TestOTPEngine_ExpiredCodeKeepsAttempts(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	code := env.issue(t, entity.OTPContextRegistration)

	res := env.verify(wrongCode(code), entity.OTPContextRegistration)
	require.Equal(t, entity.OTPStatusInvalidCode, res.Status)

	env.clock.Advance(10*time.Minute + time.Second)

	res = env.verify(code, entity.OTPContextRegistration)
	require.Equal(t, entity.OTPStatusExpired, res.Status)
	require.ErrorIs(t, res.Err(), entity.ErrCodeExpired)

	res = env.verify(wrongCode(code), entity.OTPContextRegistration)
	require.Equal(t, entity.OTPStatusExpired, res.Status)

	require.Equal(t, 1, env.repo.get(env.account.ID).OTP.Attempts)
}

func TestOTPEngine_NewCodeReplacesOld(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	first := env.issue(t, entity.OTPContextLogin)

	res := env.verify(wrongCode(first), entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusInvalidCode, res.Status)

	second := env.issue(t, entity.OTPContextLogin)
	for second == first {
		second = env.issue(t, entity.OTPContextLogin)
	}

	require.Zero(t, env.repo.get(env.account.ID).OTP.Attempts)

	res = env.verify(first, entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusInvalidCode, res.Status)

	res = env.verify(second, entity.OTPContextLogin)
	require.Equal(t, entity.OTPStatusOK, res.Status)
}

func TestOTPEngine_MailFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	mailer := mocks.NewMockMailer(ctrl)

	repo := newMemRepo()
	account := repo.add(entity.Account{Email: testEmail})

	mailer.EXPECT().
		Send(gomock.Any(), testEmail, "Reset your password", gomock.Any()).
		Return(errors.New("smtp unavailable"))

	engine := service.NewOTPEngine(testOTPConfig, repo, mailer, hasher.NewBcrypt(bcrypt.MinCost), lock.NewLocal())

	res := engine.GenerateAndSend(context.Background(), testEmail, entity.OTPContextPasswordReset, testIP)
	require.True(t, res.Success())
	require.True(t, repo.get(account.ID).OTP.HasCode())
}

func TestOTPEngine_LockerFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	locker := mocks.NewMockLocker(ctrl)

	locker.EXPECT().Lock(gomock.Any(), testEmail).Return(nil, context.DeadlineExceeded).Times(2)

	engine := service.NewOTPEngine(testOTPConfig, newMemRepo(), &mailbox{}, hasher.NewBcrypt(bcrypt.MinCost), locker)

	res := engine.GenerateAndSend(context.Background(), "  User@Example.com ", entity.OTPContextLogin, testIP)
	require.Equal(t, entity.OTPStatusInternal, res.Status)
	require.ErrorIs(t, res.Err(), entity.ErrCodeUnavailable)

	res = engine.Verify(context.Background(), testEmail, "1234", entity.OTPContextLogin, testIP)
	require.Equal(t, entity.OTPStatusInternal, res.Status)
}

func TestOTPEngine_StoreAndHasherFailures(t *testing.T) {
	t.Parallel()

	errDB := errors.New("connection reset")
	expires := time.Now().Add(time.Hour)
	account := entity.Account{
		ID:    uuid.Must(uuid.NewV4()),
		Email: testEmail,
		OTP:   entity.OtpState{CodeHash: "stored", ExpiresAt: &expires, LastAction: entity.OTPContextLogin},
	}

	tests := []struct {
		name  string
		setup func(store *mocks.MockOTPStore, h *mocks.MockHasher)
		run   func(e *service.OTPEngine) entity.OTPResult
	}{
		{
			name: "issue: account lookup fails",
			setup: func(store *mocks.MockOTPStore, _ *mocks.MockHasher) {
				store.EXPECT().AccountByEmail(gomock.Any(), testEmail).Return(entity.Account{}, errDB)
			},
			run: func(e *service.OTPEngine) entity.OTPResult {
				return e.GenerateAndSend(context.Background(), testEmail, entity.OTPContextLogin, testIP)
			},
		},
		{
			name: "issue: hashing fails",
			setup: func(store *mocks.MockOTPStore, h *mocks.MockHasher) {
				store.EXPECT().AccountByEmail(gomock.Any(), testEmail).Return(entity.Account{ID: account.ID, Email: testEmail}, nil)
				h.EXPECT().Hash(gomock.Any()).Return("", errors.New("cost out of range"))
			},
			run: func(e *service.OTPEngine) entity.OTPResult {
				return e.GenerateAndSend(context.Background(), testEmail, entity.OTPContextLogin, testIP)
			},
		},
		{
			name: "issue: save fails",
			setup: func(store *mocks.MockOTPStore, h *mocks.MockHasher) {
				store.EXPECT().AccountByEmail(gomock.Any(), testEmail).Return(entity.Account{ID: account.ID, Email: testEmail}, nil)
				h.EXPECT().Hash(gomock.Any()).Return("hash", nil)
				store.EXPECT().SaveOTP(gomock.Any(), account.ID, gomock.Any()).Return(errDB)
			},
			run: func(e *service.OTPEngine) entity.OTPResult {
				return e.GenerateAndSend(context.Background(), testEmail, entity.OTPContextLogin, testIP)
			},
		},
		{
			name: "verify: saving the attempt fails",
			setup: func(store *mocks.MockOTPStore, h *mocks.MockHasher) {
				store.EXPECT().AccountByEmail(gomock.Any(), testEmail).Return(account, nil)
				h.EXPECT().Compare("1234", "stored").Return(false)
				store.EXPECT().SaveOTP(gomock.Any(), account.ID, gomock.Any()).
					DoAndReturn(func(_ context.Context, _ uuid.UUID, otp entity.OtpState) error {
						require.Equal(t, 1, otp.Attempts)
						return errDB
					})
			},
			run: func(e *service.OTPEngine) entity.OTPResult {
				return e.Verify(context.Background(), testEmail, "1234", entity.OTPContextLogin, testIP)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			store := mocks.NewMockOTPStore(ctrl)
			h := mocks.NewMockHasher(ctrl)
			mailer := mocks.NewMockMailer(ctrl)

			tt.setup(store, h)

			engine := service.NewOTPEngine(testOTPConfig, store, mailer, h, lock.NewLocal())

			res := tt.run(engine)
			require.Equal(t, entity.OTPStatusInternal, res.Status)
			require.ErrorIs(t, res.Err(), entity.ErrCodeUnavailable)
		})
	}
}

func TestOTPEngine_ConcurrentFailures(t *testing.T) {
	t.Parallel()

	env := newEngineEnv(t)
	bad := wrongCode(env.issue(t, entity.OTPContextLogin))

	const workers = 10

	results := make([]entity.OTPResult, workers)

	var wg sync.WaitGroup

	for i := range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = env.verify(bad, entity.OTPContextLogin)
		}()
	}

	wg.Wait()

	var invalid, locked int

	for _, res := range results {
		switch res.Status {
		case entity.OTPStatusInvalidCode:
			invalid++
		case entity.OTPStatusLocked:
			locked++
		default:
			t.Fatalf("unexpected status %s", res.Status)
		}
	}

	require.Equal(t, 4, invalid)
	require.Equal(t, 6, locked)
	require.Zero(t, env.repo.get(env.account.ID).OTP.Attempts)
}
