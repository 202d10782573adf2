package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid/v5"
	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samandr77/microservices/account/internal/entity"
)

const uniqueViolation = "23505"

var accountColumns = []string{
	"id",
	"email",
	"password_hash",
	"first_name",
	"last_name",
	"phone",
	"addresses",
	"role",
	"profile_url",
	"is_verified",
	"otp_code_hash",
	"otp_expires_at",
	"otp_attempts",
	"otp_lock_until",
	"otp_last_action",
	"otp_last_ip",
	"refresh_token_hash",
	"refresh_token_expires_at",
	"created_at",
	"updated_at",
}

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a entity.Account) error {
	q := `
	INSERT INTO accounts (
		id, email, password_hash, first_name, last_name, phone, addresses, role, is_verified, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`

	addresses := a.Addresses
	if addresses == nil {
		addresses = []entity.Address{}
	}

	_, err := r.db.Exec(
		ctx, q,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Phone, addresses, a.Role, a.IsVerified, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return entity.ErrAlreadyExists
		}

		return err
	}

	return nil
}

func (r *AccountRepository) AccountByEmail(ctx context.Context, email string) (entity.Account, error) {
	return r.account(ctx, sq.Expr("LOWER(email) = LOWER(?)", email))
}

func (r *AccountRepository) AccountByID(ctx context.Context, id uuid.UUID) (entity.Account, error) {
	return r.account(ctx, sq.Eq{"id": id})
}

func (r *AccountRepository) account(ctx context.Context, pred sq.Sqlizer) (entity.Account, error) {
	q, args, err := sq.Select(accountColumns...).
		From("accounts").
		Where(pred).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return entity.Account{}, fmt.Errorf("build query: %w", err)
	}

	a, err := scanAccount(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Account{}, entity.ErrNotFound
		}

		return entity.Account{}, err
	}

	return a, nil
}

func (r *AccountRepository) Accounts(ctx context.Context, limit, offset uint64) ([]entity.Account, error) {
	q, args, err := sq.Select(accountColumns...).
		From("accounts").
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]entity.Account, 0, limit)

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// SaveOTP overwrites the whole OTP state of the account.
func (r *AccountRepository) SaveOTP(ctx context.Context, id uuid.UUID, otp entity.OtpState) error {
	q := `
	UPDATE accounts SET
		otp_code_hash = $2,
		otp_expires_at = $3,
		otp_attempts = $4,
		otp_lock_until = $5,
		otp_last_action = $6,
		otp_last_ip = $7,
		updated_at = NOW()
	WHERE id = $1
	`

	result, err := r.db.Exec(
		ctx, q,
		id, otp.CodeHash, otp.ExpiresAt, otp.Attempts, otp.LockUntil, otp.LastAction, otp.LastIP,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

// CompleteVerification marks the account verified and consumes the code, but
// only while codeHash is still the stored one.
func (r *AccountRepository) CompleteVerification(ctx context.Context, id uuid.UUID, codeHash string) error {
	q := `
	UPDATE accounts SET
		is_verified = TRUE,
		otp_code_hash = '',
		otp_expires_at = NULL,
		otp_attempts = 0,
		updated_at = NOW()
	WHERE id = $1 AND otp_code_hash = $2 AND otp_code_hash <> ''
	`

	result, err := r.db.Exec(ctx, q, id, codeHash)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNoActiveCode
	}

	return nil
}

// ResetPassword stores the new password hash, clears the OTP state and
// revokes the refresh token, but only while codeHash is still the stored one.
func (r *AccountRepository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash, codeHash string) error {
	q := `
	UPDATE accounts SET
		password_hash = $3,
		otp_code_hash = '',
		otp_expires_at = NULL,
		otp_attempts = 0,
		otp_lock_until = NULL,
		refresh_token_hash = '',
		refresh_token_expires_at = NULL,
		updated_at = NOW()
	WHERE id = $1 AND otp_code_hash = $2 AND otp_code_hash <> ''
	`

	result, err := r.db.Exec(ctx, q, id, codeHash, passwordHash)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNoActiveCode
	}

	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	q := `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) UpdateProfile(ctx context.Context, id uuid.UUID, upd entity.ProfileUpdate) (entity.Account, error) {
	stmt := sq.Update("accounts").
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(accountColumns, ", ")).
		PlaceholderFormat(sq.Dollar)

	if upd.FirstName != nil {
		stmt = stmt.Set("first_name", *upd.FirstName)
	}

	if upd.LastName != nil {
		stmt = stmt.Set("last_name", *upd.LastName)
	}

	if upd.Phone != nil {
		stmt = stmt.Set("phone", *upd.Phone)
	}

	if upd.Addresses != nil {
		stmt = stmt.Set("addresses", upd.Addresses)
	}

	if upd.ProfileURL != nil {
		stmt = stmt.Set("profile_url", *upd.ProfileURL)
	}

	q, args, err := stmt.ToSql()
	if err != nil {
		return entity.Account{}, fmt.Errorf("build query: %w", err)
	}

	a, err := scanAccount(r.db.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.Account{}, entity.ErrNotFound
		}

		return entity.Account{}, err
	}

	return a, nil
}

// SaveRefreshToken stores the refresh token hash. An empty hash clears it.
func (r *AccountRepository) SaveRefreshToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error {
	q := `UPDATE accounts SET refresh_token_hash = $2, refresh_token_expires_at = $3, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, q, id, tokenHash, expiresAt)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func (r *AccountRepository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	q := `
	UPDATE accounts SET refresh_token_hash = '', refresh_token_expires_at = NULL
	WHERE refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < NOW()
	`

	result, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	q := `DELETE FROM accounts WHERE id = $1`

	result, err := r.db.Exec(ctx, q, id)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return entity.ErrNotFound
	}

	return nil
}

func scanAccount(row pgx.Row) (entity.Account, error) {
	var (
		a          entity.Account
		lastAction string
	)

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordHash,
		&a.FirstName,
		&a.LastName,
		&a.Phone,
		&a.Addresses,
		&a.Role,
		&a.ProfileURL,
		&a.IsVerified,
		&a.OTP.CodeHash,
		&a.OTP.ExpiresAt,
		&a.OTP.Attempts,
		&a.OTP.LockUntil,
		&lastAction,
		&a.OTP.LastIP,
		&a.RefreshTokenHash,
		&a.RefreshTokenExpiresAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return entity.Account{}, err
	}

	a.OTP.LastAction = entity.OTPContext(lastAction)

	return a, nil
}
