package entity

import "time"

type Session struct {
	AccessToken     string        `json:"access_token"`
	RefreshToken    string        `json:"-"`
	RefreshTokenTTL time.Duration `json:"-"`
	Account         Account       `json:"-"`
}

type VerifyOutcome struct {
	Context OTPContext
	Account Account
	Session *Session
}
