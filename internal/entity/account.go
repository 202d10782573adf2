package entity

import (
	"time"

	"github.com/gofrs/uuid/v5"
	jwt "github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

type Address struct {
	City    string `json:"city"`
	Country string `json:"country"`
}

type Account struct {
	ID                    uuid.UUID
	Email                 string
	PasswordHash          string
	FirstName             string
	LastName              string
	Phone                 string
	Addresses             []Address
	Role                  Role
	ProfileURL            string
	IsVerified            bool
	OTP                   OtpState
	RefreshTokenHash      string
	RefreshTokenExpiresAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// DisplayName is used to greet the account owner in emails.
func (a Account) DisplayName() string {
	if a.FirstName != "" {
		return a.FirstName
	}

	return a.LastName
}

// Profile is the public view of an account.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone,omitempty"`
	Addresses  []Address `json:"addresses"`
	Role       Role      `json:"role"`
	ProfileURL string    `json:"profile_url,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (a Account) Profile() Profile {
	addresses := a.Addresses
	if addresses == nil {
		addresses = []Address{}
	}

	return Profile{
		ID:         a.ID,
		Email:      a.Email,
		FirstName:  a.FirstName,
		LastName:   a.LastName,
		Phone:      a.Phone,
		Addresses:  addresses,
		Role:       a.Role,
		ProfileURL: a.ProfileURL,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// ProfileUpdate carries the optional fields of a profile update. Nil fields
// are left untouched.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Addresses  []Address
	ProfileURL *string
}

func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil && u.Addresses == nil && u.ProfileURL == nil
}

type Avatar struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

type AccountClaims struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email,omitempty"`
	Role  Role      `json:"role,omitempty"`
	jwt.RegisteredClaims
}
