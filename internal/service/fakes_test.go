package service_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"regexp"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/pkg/config"
)

// memRepo keeps accounts in memory and mirrors the conditional updates of
// the postgres repository.
type memRepo struct {
	mu        sync.Mutex
	accounts  map[uuid.UUID]entity.Account
	lastLimit uint64
	now       func() time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{accounts: make(map[uuid.UUID]entity.Account), now: time.Now}
}

func (r *memRepo) add(a entity.Account) entity.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.Must(uuid.NewV4())
	}

	if a.Role == "" {
		a.Role = entity.RoleClient
	}

	r.accounts[a.ID] = a

	return a
}

func (r *memRepo) get(id uuid.UUID) entity.Account {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.accounts[id]
}

func (r *memRepo) byEmail(email string) (entity.Account, bool) {
	for _, a := range r.accounts {
		if a.Email == email {
			return a, true
		}
	}

	return entity.Account{}, false
}

func (r *memRepo) Create(_ context.Context, a entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail(a.Email); ok {
		return entity.ErrAlreadyExists
	}

	r.accounts[a.ID] = a

	return nil
}

func (r *memRepo) AccountByEmail(_ context.Context, email string) (entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byEmail(email)
	if !ok {
		return entity.Account{}, entity.ErrNotFound
	}

	return a, nil
}

func (r *memRepo) AccountByID(_ context.Context, id uuid.UUID) (entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return entity.Account{}, entity.ErrNotFound
	}

	return a, nil
}

func (r *memRepo) Accounts(_ context.Context, limit, offset uint64) ([]entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastLimit = limit

	list := make([]entity.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		list = append(list, a)
	}

	slices.SortFunc(list, func(a, b entity.Account) int { return a.CreatedAt.Compare(b.CreatedAt) })

	if offset >= uint64(len(list)) {
		return []entity.Account{}, nil
	}

	list = list[offset:]
	if uint64(len(list)) > limit {
		list = list[:limit]
	}

	return list, nil
}

func (r *memRepo) update(id uuid.UUID, fn func(a *entity.Account) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return entity.ErrNotFound
	}

	err := fn(&a)
	if err != nil {
		return err
	}

	r.accounts[id] = a

	return nil
}

func (r *memRepo) SaveOTP(_ context.Context, id uuid.UUID, otp entity.OtpState) error {
	return r.update(id, func(a *entity.Account) error {
		a.OTP = otp
		return nil
	})
}

func (r *memRepo) CompleteVerification(_ context.Context, id uuid.UUID, codeHash string) error {
	return r.update(id, func(a *entity.Account) error {
		if codeHash == "" || a.OTP.CodeHash != codeHash {
			return entity.ErrNoActiveCode
		}

		a.IsVerified = true
		a.OTP.CodeHash = ""
		a.OTP.ExpiresAt = nil
		a.OTP.Attempts = 0

		return nil
	})
}

func (r *memRepo) ResetPassword(_ context.Context, id uuid.UUID, passwordHash, codeHash string) error {
	return r.update(id, func(a *entity.Account) error {
		if codeHash == "" || a.OTP.CodeHash != codeHash {
			return entity.ErrNoActiveCode
		}

		a.PasswordHash = passwordHash
		a.OTP.CodeHash = ""
		a.OTP.ExpiresAt = nil
		a.OTP.Attempts = 0
		a.OTP.LockUntil = nil
		a.RefreshTokenHash = ""
		a.RefreshTokenExpiresAt = nil

		return nil
	})
}

func (r *memRepo) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	return r.update(id, func(a *entity.Account) error {
		a.PasswordHash = passwordHash
		return nil
	})
}

func (r *memRepo) UpdateProfile(_ context.Context, id uuid.UUID, upd entity.ProfileUpdate) (entity.Account, error) {
	var updated entity.Account

	err := r.update(id, func(a *entity.Account) error {
		if upd.FirstName != nil {
			a.FirstName = *upd.FirstName
		}

		if upd.LastName != nil {
			a.LastName = *upd.LastName
		}

		if upd.Phone != nil {
			a.Phone = *upd.Phone
		}

		if upd.Addresses != nil {
			a.Addresses = upd.Addresses
		}

		if upd.ProfileURL != nil {
			a.ProfileURL = *upd.ProfileURL
		}

		updated = *a

		return nil
	})

	return updated, err
}

func (r *memRepo) SaveRefreshToken(_ context.Context, id uuid.UUID, tokenHash string, expiresAt *time.Time) error {
	return r.update(id, func(a *entity.Account) error {
		a.RefreshTokenHash = tokenHash
		a.RefreshTokenExpiresAt = expiresAt

		return nil
	})
}

func (r *memRepo) DeleteExpiredRefreshTokens(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64

	for id, a := range r.accounts {
		if a.RefreshTokenExpiresAt != nil && a.RefreshTokenExpiresAt.Before(r.now()) {
			a.RefreshTokenHash = ""
			a.RefreshTokenExpiresAt = nil
			r.accounts[id] = a
			n++
		}
	}

	return n, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[id]; !ok {
		return entity.ErrNotFound
	}

	delete(r.accounts, id)

	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type mailbox struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *mailbox) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})

	return nil
}

func (m *mailbox) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sent)
}

func (m *mailbox) last(t *testing.T) sentMail {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	require.NotEmpty(t, m.sent, "no mail sent")

	return m.sent[len(m.sent)-1]
}

var codeRegexp = regexp.MustCompile(`<b>(\d+)</b>`)

func (m *mailbox) lastCode(t *testing.T) string {
	t.Helper()

	match := codeRegexp.FindStringSubmatch(m.last(t).body)
	require.Len(t, match, 2, "no code in mail body")

	return match[1]
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = c.t.Add(d)
}

// wrongCode returns a code of the same length that differs from code.
func wrongCode(code string) string {
	b := []byte(code)

	last := len(b) - 1
	if b[last] == '9' {
		b[last] = '0'
	} else {
		b[last]++
	}

	return string(b)
}

func testJWTConfig(t *testing.T) config.JWTConfig {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privDER := x509.MarshalPKCS1PrivateKey(key)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER})
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	return config.JWTConfig{
		PrivateKey:         base64.StdEncoding.EncodeToString(privPEM),
		PublicKey:          base64.StdEncoding.EncodeToString(pubPEM),
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
}
