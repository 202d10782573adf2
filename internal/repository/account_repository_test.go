package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/internal/repository"
)

type AccountRepositoryTestSuite struct {
	suite.Suite
	repo *repository.AccountRepository
}

func (ts *AccountRepositoryTestSuite) SetupTest() {
	ts.repo = repository.NewAccountRepository(repository.SetupTestDatabase(ts.T()))
}

func TestAccountRepositoryTestSuite(t *testing.T) { //nolint:paralleltest
	suite.Run(t, new(AccountRepositoryTestSuite))
}

func (ts *AccountRepositoryTestSuite) newAccount(email string) entity.Account {
	ctx := context.Background()

	a := entity.Account{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        email,
		PasswordHash: "password_hash",
		FirstName:    "Ada",
		Role:         entity.RoleClient,
		Addresses:    []entity.Address{{City: "Paris", Country: "France"}},
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}

	ts.Require().NoError(ts.repo.Create(ctx, a))

	return a
}

func (ts *AccountRepositoryTestSuite) TestCreateDuplicateEmail() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")

	dup := a
	dup.ID = uuid.Must(uuid.NewV4())
	dup.Email = "USER@example.com"

	err := ts.repo.Create(ctx, dup)
	ts.Require().ErrorIs(err, entity.ErrAlreadyExists)
}

func (ts *AccountRepositoryTestSuite) TestAccountByEmail() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")

	testCases := []struct {
		name  string
		email string
		errFn require.ErrorAssertionFunc
	}{
		{name: "exact email", email: "user@example.com", errFn: require.NoError},
		{name: "different case", email: "User@Example.com", errFn: require.NoError},
		{
			name:  "unknown email",
			email: "nobody@example.com",
			errFn: func(t require.TestingT, err error, _ ...interface{}) {
				require.ErrorIs(t, err, entity.ErrNotFound)
			},
		},
	}

	for _, tc := range testCases {
		ts.Run(tc.name, func() {
			got, err := ts.repo.AccountByEmail(ctx, tc.email)
			tc.errFn(ts.T(), err)

			if err == nil {
				ts.Require().Equal(a.ID, got.ID)
				ts.Require().Equal(a.Addresses, got.Addresses)
				ts.Require().Equal(entity.RoleClient, got.Role)
				ts.Require().False(got.IsVerified)
				ts.Require().False(got.OTP.HasCode())
			}
		})
	}
}

func (ts *AccountRepositoryTestSuite) TestSaveOTPRoundTrip() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")

	expires := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Microsecond)
	lock := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Microsecond)

	otp := entity.OtpState{
		CodeHash:   "code_hash",
		ExpiresAt:  &expires,
		Attempts:   3,
		LockUntil:  &lock,
		LastAction: entity.OTPContextPasswordReset,
		LastIP:     "10.0.0.1",
	}

	ts.Require().NoError(ts.repo.SaveOTP(ctx, a.ID, otp))

	got, err := ts.repo.AccountByID(ctx, a.ID)
	ts.Require().NoError(err)
	ts.Require().Equal(otp.CodeHash, got.OTP.CodeHash)
	ts.Require().Equal(otp.Attempts, got.OTP.Attempts)
	ts.Require().Equal(otp.LastAction, got.OTP.LastAction)
	ts.Require().Equal(otp.LastIP, got.OTP.LastIP)
	ts.Require().True(expires.Equal(*got.OTP.ExpiresAt))
	ts.Require().True(lock.Equal(*got.OTP.LockUntil))

	err = ts.repo.SaveOTP(ctx, uuid.Must(uuid.NewV4()), otp)
	ts.Require().ErrorIs(err, entity.ErrNotFound)
}

func (ts *AccountRepositoryTestSuite) TestCompleteVerificationIsConditional() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")

	expires := time.Now().Add(10 * time.Minute)
	ts.Require().NoError(ts.repo.SaveOTP(ctx, a.ID, entity.OtpState{CodeHash: "current", ExpiresAt: &expires}))

	err := ts.repo.CompleteVerification(ctx, a.ID, "stale")
	ts.Require().ErrorIs(err, entity.ErrNoActiveCode)

	ts.Require().NoError(ts.repo.CompleteVerification(ctx, a.ID, "current"))

	got, err := ts.repo.AccountByID(ctx, a.ID)
	ts.Require().NoError(err)
	ts.Require().True(got.IsVerified)
	ts.Require().False(got.OTP.HasCode())
	ts.Require().Nil(got.OTP.ExpiresAt)

	err = ts.repo.CompleteVerification(ctx, a.ID, "current")
	ts.Require().ErrorIs(err, entity.ErrNoActiveCode)
}

func (ts *AccountRepositoryTestSuite) TestResetPassword() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")

	expires := time.Now().Add(10 * time.Minute)
	ts.Require().NoError(ts.repo.SaveOTP(ctx, a.ID, entity.OtpState{
		CodeHash:   "reset",
		ExpiresAt:  &expires,
		Attempts:   2,
		LastAction: entity.OTPContextPasswordReset,
	}))

	refreshExpires := time.Now().Add(time.Hour)
	ts.Require().NoError(ts.repo.SaveRefreshToken(ctx, a.ID, "refresh_hash", &refreshExpires))

	ts.Require().NoError(ts.repo.ResetPassword(ctx, a.ID, "new_hash", "reset"))

	got, err := ts.repo.AccountByID(ctx, a.ID)
	ts.Require().NoError(err)
	ts.Require().Equal("new_hash", got.PasswordHash)
	ts.Require().False(got.OTP.HasCode())
	ts.Require().Zero(got.OTP.Attempts)
	ts.Require().Nil(got.OTP.LockUntil)
	ts.Require().Empty(got.RefreshTokenHash)
	ts.Require().Nil(got.RefreshTokenExpiresAt)
}

func (ts *AccountRepositoryTestSuite) TestUpdateProfile() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")

	last := "Lovelace"
	url := "https://cdn.example.com/profile-images/users/a.png"

	got, err := ts.repo.UpdateProfile(ctx, a.ID, entity.ProfileUpdate{
		LastName:   &last,
		ProfileURL: &url,
		Addresses:  []entity.Address{{City: "London", Country: "UK"}},
	})
	ts.Require().NoError(err)
	ts.Require().Equal("Ada", got.FirstName)
	ts.Require().Equal(last, got.LastName)
	ts.Require().Equal(url, got.ProfileURL)
	ts.Require().Equal([]entity.Address{{City: "London", Country: "UK"}}, got.Addresses)

	_, err = ts.repo.UpdateProfile(ctx, uuid.Must(uuid.NewV4()), entity.ProfileUpdate{LastName: &last})
	ts.Require().ErrorIs(err, entity.ErrNotFound)
}

func (ts *AccountRepositoryTestSuite) TestRefreshTokens() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")
	b := ts.newAccount("other@example.com")

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	ts.Require().NoError(ts.repo.SaveRefreshToken(ctx, a.ID, "expired", &past))
	ts.Require().NoError(ts.repo.SaveRefreshToken(ctx, b.ID, "active", &future))

	n, err := ts.repo.DeleteExpiredRefreshTokens(ctx)
	ts.Require().NoError(err)
	ts.Require().EqualValues(1, n)

	gotA, err := ts.repo.AccountByID(ctx, a.ID)
	ts.Require().NoError(err)
	ts.Require().Empty(gotA.RefreshTokenHash)

	gotB, err := ts.repo.AccountByID(ctx, b.ID)
	ts.Require().NoError(err)
	ts.Require().Equal("active", gotB.RefreshTokenHash)
}

func (ts *AccountRepositoryTestSuite) TestAccountsAndDelete() {
	ctx := context.Background()

	a := ts.newAccount("user@example.com")
	ts.newAccount("other@example.com")

	accounts, err := ts.repo.Accounts(ctx, 10, 0)
	ts.Require().NoError(err)
	ts.Require().Len(accounts, 2)

	ts.Require().NoError(ts.repo.Delete(ctx, a.ID))
	ts.Require().ErrorIs(ts.repo.Delete(ctx, a.ID), entity.ErrNotFound)

	accounts, err = ts.repo.Accounts(ctx, 10, 0)
	ts.Require().NoError(err)
	ts.Require().Len(accounts, 1)
}
