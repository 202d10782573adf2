package service

import (
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/pkg/config"
)

const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

// Tokens signs and parses RS256 session tokens.
type Tokens struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokens parses the base64 encoded PEM keys from cfg.
func NewTokens(cfg config.JWTConfig) (*Tokens, error) {
	pKey, err := decodeJWTKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(pKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubKey, err := decodeJWTKey(cfg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubKey)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Tokens{
		privateKey: privateKey,
		publicKey:  publicKey,
		accessTTL:  cfg.AccessTokenExpiry,
		refreshTTL: cfg.RefreshTokenExpiry,
		now:        time.Now,
	}, nil
}

func (t *Tokens) RefreshTTL() time.Duration {
	return t.refreshTTL
}

func (t *Tokens) Access(a entity.Account) (string, error) {
	now := t.now()

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256,
		entity.AccountClaims{
			ID:    a.ID,
			Email: a.Email,
			Role:  a.Role,
			RegisteredClaims: jwt.RegisteredClaims{
				Audience:  jwt.ClaimStrings{audienceAccess},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			},
		}).SignedString(t.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return token, nil
}

// Refresh returns a signed refresh token with its expiry.
func (t *Tokens) Refresh(a entity.Account) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.refreshTTL)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256,
		entity.AccountClaims{
			ID: a.ID,
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.Must(uuid.NewV4()).String(),
				Audience:  jwt.ClaimStrings{audienceRefresh},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
		}).SignedString(t.privateKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return token, expiresAt, nil
}

func (t *Tokens) ParseAccess(token string) (entity.AccountClaims, error) {
	return t.parse(token, audienceAccess)
}

func (t *Tokens) ParseRefresh(token string) (entity.AccountClaims, error) {
	return t.parse(token, audienceRefresh)
}

func (t *Tokens) parse(tokenStr, audience string) (entity.AccountClaims, error) {
	var claims entity.AccountClaims

	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (any, error) {
		_, ok := token.Method.(*jwt.SigningMethodRSA)
		if !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return t.publicKey, nil
	}, jwt.WithAudience(audience), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return entity.AccountClaims{}, fmt.Errorf("token expired: %w", entity.ErrTokenExpired)
		}

		return entity.AccountClaims{}, fmt.Errorf("%w: %w", entity.ErrInvalidToken, err)
	}

	if !token.Valid || claims.ID == uuid.Nil {
		return entity.AccountClaims{}, entity.ErrInvalidToken
	}

	return claims, nil
}

// HashToken is the form in which refresh tokens are stored.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func validateJWTKey(key string) string {
	return strings.TrimSpace(strings.NewReplacer(
		`\`, "", `"`, "", " ", "", "\n", "", "\r", "", "{", "", "}", "",
	).Replace(key))
}

func decodeJWTKey(key string) ([]byte, error) {
	cleaned := validateJWTKey(key)

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return decoded, nil
	}

	return base64.RawStdEncoding.DecodeString(cleaned)
}
