package gomail

import (
	"gopkg.in/gomail.v2"

	"github.com/samandr77/microservices/account/pkg/config"
)

type DialerFunc func(m ...*gomail.Message) error

func (f DialerFunc) DialAndSend(m ...*gomail.Message) error { return f(m...) }

func NewWithDialer(cfg config.MailerConfig, d DialerFunc) *Client {
	return &Client{cfg: cfg, dialer: d}
}
