package entity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samandr77/microservices/account/internal/entity"
)

func TestParseOTPContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    entity.OTPContext
		wantErr error
	}{
		{"", entity.OTPContextVerification, nil},
		{"registration", entity.OTPContextRegistration, nil},
		{"login", entity.OTPContextLogin, nil},
		{"password_reset", entity.OTPContextPasswordReset, nil},
		{"verification", entity.OTPContextVerification, nil},
		{"Login", "", entity.ErrInvalidContext},
		{"signup", "", entity.ErrInvalidContext},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := entity.ParseOTPContext(tt.raw)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestOTPContext_Rules(t *testing.T) {
	t.Parallel()

	require.Equal(t, 6, entity.OTPContextPasswordReset.CodeDigits())
	require.Equal(t, 4, entity.OTPContextLogin.CodeDigits())
	require.False(t, entity.OTPContextPasswordReset.ClearsOnVerify())
	require.True(t, entity.OTPContextRegistration.ClearsOnVerify())
}

func TestOtpState(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	require.False(t, entity.OtpState{}.LockedAt(now))
	require.False(t, entity.OtpState{LockUntil: &past}.LockedAt(now))
	require.True(t, entity.OtpState{LockUntil: &future}.LockedAt(now))

	require.True(t, entity.OtpState{}.ExpiredAt(now))
	require.True(t, entity.OtpState{ExpiresAt: &past}.ExpiredAt(now))
	require.False(t, entity.OtpState{ExpiresAt: &future}.ExpiredAt(now))
	require.False(t, entity.OtpState{ExpiresAt: &now}.ExpiredAt(now))

	require.False(t, entity.OtpState{}.HasCode())
	require.True(t, entity.OtpState{CodeHash: "$2a$"}.HasCode())
}

func TestOTPResult_Err(t *testing.T) {
	t.Parallel()

	lockUntil := time.Now().Add(10 * time.Minute)
	left := 3

	require.NoError(t, entity.OTPResult{Status: entity.OTPStatusOK}.Err())
	require.ErrorIs(t, entity.OTPResult{Status: entity.OTPStatusNotFound}.Err(), entity.ErrNotFound)
	require.ErrorIs(t, entity.OTPResult{Status: entity.OTPStatusExpired}.Err(), entity.ErrCodeExpired)
	require.ErrorIs(t, entity.OTPResult{Status: entity.OTPStatusNoActiveCode}.Err(), entity.ErrNoActiveCode)
	require.ErrorIs(t, entity.OTPResult{Status: entity.OTPStatusInternal, Message: "boom"}.Err(), entity.ErrCodeUnavailable)

	var lockedErr *entity.LockedError
	require.ErrorAs(t, entity.OTPResult{Status: entity.OTPStatusLocked, LockUntil: &lockUntil}.Err(), &lockedErr)
	require.Equal(t, lockUntil, lockedErr.LockUntil)

	var invalidErr *entity.InvalidCodeError
	err := entity.OTPResult{Status: entity.OTPStatusInvalidCode, AttemptsLeft: &left}.Err()
	require.ErrorAs(t, err, &invalidErr)
	require.Equal(t, 3, invalidErr.AttemptsLeft)
	require.ErrorIs(t, err, entity.ErrCodeInvalid)
}

func TestAccount_Profile(t *testing.T) {
	t.Parallel()

	p := entity.Account{Email: "user@example.com", PasswordHash: "secret", FirstName: "Ada"}.Profile()
	require.Equal(t, "user@example.com", p.Email)
	require.NotNil(t, p.Addresses)
	require.Empty(t, p.Addresses)

	require.Equal(t, "Ada", entity.Account{FirstName: "Ada", LastName: "L"}.DisplayName())
	require.Equal(t, "L", entity.Account{LastName: "L"}.DisplayName())
	require.True(t, entity.ProfileUpdate{}.Empty())
}
