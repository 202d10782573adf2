package gomail

import (
	"context"
	"crypto/tls"
	"fmt"
	"regexp"

	"gopkg.in/gomail.v2"

	"github.com/samandr77/microservices/account/pkg/config"
)

var htmlTagRegexp = regexp.MustCompile("<[^>]+>")

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type Client struct {
	cfg    config.MailerConfig
	dialer dialer
}

func New(cfg config.MailerConfig) *Client {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Login, cfg.Password)

	d.TLSConfig = &tls.Config{
		ServerName: cfg.Host,
		MinVersion: tls.VersionTLS12,
	}

	return &Client{
		cfg:    cfg,
		dialer: d,
	}
}

// Send delivers a single HTML email.
func (c *Client) Send(_ context.Context, to, subject, htmlBody string) error {
	return c.SendMessage(subject, htmlBody, []string{to}, "text/html")
}

func (c *Client) SendMessage(subject, message string, recipients []string, contentType string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("send email %q: no recipients", subject)
	}

	msg := gomail.NewMessage(
		gomail.SetCharset("UTF-8"),
		gomail.SetEncoding(gomail.Base64),
	)

	msg.SetAddressHeader("From", c.cfg.From, c.cfg.FromName)
	msg.SetHeader("To", recipients...)
	msg.SetHeader("Subject", subject)

	if isHTML(contentType, message) {
		// Clients without HTML support fall back to the stripped text part.
		msg.SetBody("text/plain", htmlTagRegexp.ReplaceAllString(message, ""))
		msg.AddAlternative("text/html", message)
	} else {
		msg.SetBody("text/plain", message)
	}

	err := c.dialer.DialAndSend(msg)
	if err != nil {
		return fmt.Errorf("send email to %d recipient(s): %w", len(recipients), err)
	}

	return nil
}

func isHTML(contentType, message string) bool {
	switch contentType {
	case "text/html":
		return true
	case "text/plain":
		return false
	default:
		return htmlTagRegexp.MatchString(message)
	}
}
