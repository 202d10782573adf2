package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/pkg/config"
	"github.com/samandr77/microservices/account/pkg/logger"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=service.go -destination=../mocks/service.go -package=mocks

const (
	AvatarMaxSize = 5 << 20

	defaultProfilesLimit = 50
	maxProfilesLimit     = 100
)

type AccountRepository interface {
	Create(ctx context.Context, a entity.Account) error
	AccountByEmail(ctx context.Context, email string) (entity.Account, error)
	AccountByID(ctx context.Context, id uuid.UUID) (entity.Account, error)
	Accounts(ctx context.Context, limit, offset uint64) ([]entity.Account, error)
	SaveOTP(ctx context.Context, id uuid.UUID, otp entity.OtpState) error
	CompleteVerification(ctx context.Context, id uuid.UUID, codeHash string) error
	ResetPassword(ctx context.Context, id uuid.UUID, passwordHash, codeHash string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateProfile(ctx context.Context, id uuid.UUID, upd entity.ProfileUpdate) (entity.Account, error)
	SaveRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error
	DeleteExpiredRefreshTokens(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AvatarStorage interface {
	UploadAvatar(ctx context.Context, accountID uuid.UUID, avatar entity.Avatar) (string, error)
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Addresses []entity.Address
}

type Service struct {
	cfg     config.Config
	repo    AccountRepository
	otp     *OTPEngine
	mailer  Mailer
	storage AvatarStorage
	hasher  Hasher
	tokens  *Tokens
}

func NewService(
	cfg config.Config,
	repo AccountRepository,
	otp *OTPEngine,
	mailer Mailer,
	storage AvatarStorage,
	hasher Hasher,
	tokens *Tokens,
) *Service {
	return &Service{
		cfg:     cfg,
		repo:    repo,
		otp:     otp,
		mailer:  mailer,
		storage: storage,
		hasher:  hasher,
		tokens:  tokens,
	}
}

// Register creates an unverified account and sends it a registration code.
func (s *Service) Register(ctx context.Context, in RegisterInput) (entity.OTPResult, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "invalid email for register", "email", in.Email, "error", err)
		return entity.OTPResult{}, err
	}

	err = ValidatePassword(in.Password, s.cfg.Password.MinEntropy)
	if err != nil {
		return entity.OTPResult{}, err
	}

	if err := ValidateName(in.FirstName); err != nil {
		return entity.OTPResult{}, fmt.Errorf("invalid first name: %w", err)
	}

	if err := ValidateName(in.LastName); err != nil {
		return entity.OTPResult{}, fmt.Errorf("invalid last name: %w", err)
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return entity.OTPResult{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()

	account := entity.Account{
		ID:           uuid.Must(uuid.NewV4()),
		Email:        email,
		PasswordHash: passwordHash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Addresses:    in.Addresses,
		Role:         entity.RoleClient,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.repo.Create(ctx, account)
	if err != nil {
		if errors.Is(err, entity.ErrAlreadyExists) {
			slog.WarnContext(ctx, "register with existing email", "email", email)
			return entity.OTPResult{}, entity.ErrAlreadyExists
		}

		return entity.OTPResult{}, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "account registered", "email", email, "account_id", account.ID)

	res := s.otp.GenerateAndSend(ctx, email, entity.OTPContextRegistration, entity.IPFromCtx(ctx))
	if !res.Success() {
		return res, res.Err()
	}

	return res, nil
}

// Login checks the password and opens a session. An unverified account gets
// a fresh login code instead.
func (s *Service) Login(ctx context.Context, email, password string) (entity.Session, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return entity.Session{}, err
	}

	if password == "" {
		return entity.Session{}, entity.ErrPasswordRequired
	}

	account, err := s.repo.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return entity.Session{}, entity.ErrNotFound
		}

		return entity.Session{}, fmt.Errorf("get account: %w", err)
	}

	if !s.hasher.Compare(password, account.PasswordHash) {
		slog.WarnContext(logger.SetLogType(ctx, "security"), "login with wrong password",
			"email", email, "ip", entity.IPFromCtx(ctx))

		return entity.Session{}, entity.ErrUnauthorized
	}

	if !account.IsVerified {
		res := s.otp.GenerateAndSend(ctx, email, entity.OTPContextLogin, entity.IPFromCtx(ctx))
		if !res.Success() {
			return entity.Session{}, res.Err()
		}

		return entity.Session{}, entity.ErrNotVerified
	}

	session, err := s.openSession(ctx, account)
	if err != nil {
		return entity.Session{}, err
	}

	slog.InfoContext(ctx, "account logged in", "email", email, "account_id", account.ID)

	return session, nil
}

func (s *Service) RequestCode(ctx context.Context, email string) (entity.OTPResult, error) {
	return s.sendCode(ctx, email, entity.OTPContextPasswordReset)
}

func (s *Service) ResendOTP(ctx context.Context, email, rawContext string) (entity.OTPResult, error) {
	otpCtx, err := entity.ParseOTPContext(rawContext)
	if err != nil {
		return entity.OTPResult{}, err
	}

	return s.sendCode(ctx, email, otpCtx)
}

func (s *Service) sendCode(ctx context.Context, email string, otpCtx entity.OTPContext) (entity.OTPResult, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return entity.OTPResult{}, err
	}

	res := s.otp.GenerateAndSend(ctx, email, otpCtx, entity.IPFromCtx(ctx))
	if !res.Success() {
		return res, res.Err()
	}

	return res, nil
}

// VerifyOTP checks the code. Outside of a password reset a valid code marks
// the account verified, consumes the code and opens a session.
func (s *Service) VerifyOTP(ctx context.Context, email, code, rawContext string) (entity.VerifyOutcome, error) {
	otpCtx, err := entity.ParseOTPContext(rawContext)
	if err != nil {
		return entity.VerifyOutcome{}, err
	}

	email, err = NormalizeEmail(email)
	if err != nil {
		return entity.VerifyOutcome{}, err
	}

	if strings.TrimSpace(code) == "" {
		return entity.VerifyOutcome{}, fmt.Errorf("%w: code is required", entity.ErrInvalidInput)
	}

	res := s.otp.Verify(ctx, email, code, otpCtx, entity.IPFromCtx(ctx))
	if !res.Success() {
		return entity.VerifyOutcome{}, res.Err()
	}

	account := *res.Account

	if !otpCtx.ClearsOnVerify() {
		return entity.VerifyOutcome{Context: otpCtx, Account: account}, nil
	}

	err = s.repo.CompleteVerification(ctx, account.ID, account.OTP.CodeHash)
	if err != nil {
		if errors.Is(err, entity.ErrNoActiveCode) {
			slog.WarnContext(ctx, "code replaced during verification", "email", email)
			return entity.VerifyOutcome{}, entity.ErrNoActiveCode
		}

		return entity.VerifyOutcome{}, fmt.Errorf("complete verification: %w", err)
	}

	account.IsVerified = true
	account.OTP = entity.OtpState{LockUntil: account.OTP.LockUntil, LastAction: account.OTP.LastAction, LastIP: account.OTP.LastIP}

	session, err := s.openSession(ctx, account)
	if err != nil {
		return entity.VerifyOutcome{}, err
	}

	return entity.VerifyOutcome{Context: otpCtx, Account: account, Session: &session}, nil
}

// ResetPassword re-verifies a password reset code and replaces the password.
// The code must have been issued for a password reset and is consumed.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	err = ValidatePassword(newPassword, s.cfg.Password.MinEntropy)
	if err != nil {
		return err
	}

	res := s.otp.Verify(ctx, email, code, entity.OTPContextPasswordReset, entity.IPFromCtx(ctx))
	if !res.Success() {
		return res.Err()
	}

	account := *res.Account

	if account.OTP.LastAction != entity.OTPContextPasswordReset {
		slog.WarnContext(logger.SetLogType(ctx, "security"), "password reset with code of another context",
			"email", email, "context", account.OTP.LastAction)

		return entity.ErrCodeContext
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.ResetPassword(ctx, account.ID, passwordHash, account.OTP.CodeHash)
	if err != nil {
		if errors.Is(err, entity.ErrNoActiveCode) {
			return entity.ErrNoActiveCode
		}

		return fmt.Errorf("reset password: %w", err)
	}

	slog.InfoContext(logger.SetLogType(ctx, "security"), "password reset", "email", email, "account_id", account.ID)

	s.sendPasswordChanged(ctx, account)

	return nil
}

func (s *Service) UpdatePassword(ctx context.Context, accountID uuid.UUID, current, newPassword string) error {
	account, err := s.repo.AccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get account: %w", err)
	}

	if !s.hasher.Compare(current, account.PasswordHash) {
		return entity.ErrUnauthorized
	}

	err = ValidatePassword(newPassword, s.cfg.Password.MinEntropy)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.repo.UpdatePassword(ctx, accountID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	slog.InfoContext(logger.SetLogType(ctx, "security"), "password updated", "account_id", accountID)

	s.sendPasswordChanged(ctx, account)

	return nil
}

func (s *Service) sendPasswordChanged(ctx context.Context, account entity.Account) {
	subject, body, err := PasswordChangedEmail(account.DisplayName())
	if err != nil {
		slog.ErrorContext(ctx, "failed to render password changed email", "email", account.Email, "error", err)
		return
	}

	err = s.mailer.Send(ctx, account.Email, subject, body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to send password changed email", "email", account.Email, "error", err)
	}
}

func (s *Service) Me(ctx context.Context, accountID uuid.UUID) (entity.Account, error) {
	account, err := s.repo.AccountByID(ctx, accountID)
	if err != nil {
		return entity.Account{}, fmt.Errorf("get account: %w", err)
	}

	return account, nil
}

// Profiles lists accounts for administrators.
func (s *Service) Profiles(ctx context.Context, caller entity.AccountClaims, limit, offset uint64) ([]entity.Account, error) {
	if caller.Role != entity.RoleAdmin {
		slog.WarnContext(logger.SetLogType(ctx, "security"), "profiles requested by non admin", "account_id", caller.ID)
		return nil, entity.ErrForbidden
	}

	if limit == 0 {
		limit = defaultProfilesLimit
	}

	limit = min(limit, maxProfilesLimit)

	accounts, err := s.repo.Accounts(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

// UpdateProfile applies the non-nil fields of upd. A non-nil avatar is
// uploaded first and its URL stored as the profile image.
func (s *Service) UpdateProfile(
	ctx context.Context, accountID uuid.UUID, upd entity.ProfileUpdate, avatar *entity.Avatar,
) (entity.Account, error) {
	for _, name := range []*string{upd.FirstName, upd.LastName} {
		if name == nil {
			continue
		}

		*name = strings.TrimSpace(*name)

		if err := ValidateName(*name); err != nil {
			return entity.Account{}, err
		}
	}

	if avatar != nil {
		if avatar.Size > AvatarMaxSize || int64(len(avatar.Data)) > AvatarMaxSize {
			return entity.Account{}, entity.ErrAvatarTooLarge
		}

		if !strings.HasPrefix(avatar.ContentType, "image/") {
			return entity.Account{}, entity.ErrAvatarNotAnImage
		}

		url, err := s.storage.UploadAvatar(ctx, accountID, *avatar)
		if err != nil {
			return entity.Account{}, fmt.Errorf("upload avatar: %w", err)
		}

		upd.ProfileURL = &url
	}

	if upd.Empty() {
		return entity.Account{}, fmt.Errorf("%w: nothing to update", entity.ErrInvalidInput)
	}

	account, err := s.repo.UpdateProfile(ctx, accountID, upd)
	if err != nil {
		return entity.Account{}, fmt.Errorf("update profile: %w", err)
	}

	slog.InfoContext(ctx, "profile updated", "account_id", accountID)

	return account, nil
}

// RefreshAccessToken issues a new access token for a stored refresh token.
// The refresh token itself is not rotated.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", entity.ErrUnauthorized
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", err
	}

	account, err := s.repo.AccountByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return "", entity.ErrInvalidToken
		}

		return "", fmt.Errorf("get account: %w", err)
	}

	if account.RefreshTokenHash == "" || account.RefreshTokenHash != HashToken(refreshToken) {
		slog.WarnContext(logger.SetLogType(ctx, "security"), "refresh with revoked token", "account_id", account.ID)
		return "", fmt.Errorf("refresh token revoked: %w", entity.ErrInvalidToken)
	}

	if account.RefreshTokenExpiresAt != nil && account.RefreshTokenExpiresAt.Before(time.Now()) {
		return "", entity.ErrTokenExpired
	}

	accessToken, err := s.tokens.Access(account)
	if err != nil {
		return "", err
	}

	return accessToken, nil
}

func (s *Service) Logout(ctx context.Context, accountID uuid.UUID) error {
	err := s.repo.SaveRefreshToken(ctx, accountID, "", nil)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	slog.InfoContext(ctx, "account logged out", "account_id", accountID)

	return nil
}

func (s *Service) Delete(ctx context.Context, accountID uuid.UUID) error {
	err := s.repo.Delete(ctx, accountID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slog.InfoContext(logger.SetLogType(ctx, "security"), "account deleted", "account_id", accountID)

	return nil
}

// Authenticate validates an access token and returns its claims.
func (s *Service) Authenticate(_ context.Context, accessToken string) (entity.AccountClaims, error) {
	return s.tokens.ParseAccess(accessToken)
}

func (s *Service) DeleteExpiredRefreshTokens(ctx context.Context) error {
	n, err := s.repo.DeleteExpiredRefreshTokens(ctx)
	if err != nil {
		return fmt.Errorf("delete expired refresh tokens: %w", err)
	}

	if n > 0 {
		slog.InfoContext(ctx, "expired refresh tokens deleted", "count", n)
	}

	return nil
}

func (s *Service) openSession(ctx context.Context, account entity.Account) (entity.Session, error) {
	accessToken, err := s.tokens.Access(account)
	if err != nil {
		return entity.Session{}, err
	}

	refreshToken, expiresAt, err := s.tokens.Refresh(account)
	if err != nil {
		return entity.Session{}, err
	}

	err = s.repo.SaveRefreshToken(ctx, account.ID, HashToken(refreshToken), &expiresAt)
	if err != nil {
		return entity.Session{}, fmt.Errorf("save refresh token: %w", err)
	}

	return entity.Session{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		RefreshTokenTTL: s.tokens.RefreshTTL(),
		Account:         account,
	}, nil
}
