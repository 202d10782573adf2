package gomail_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	gomailv2 "gopkg.in/gomail.v2"

	"github.com/samandr77/microservices/account/internal/clients/gomail"
	"github.com/samandr77/microservices/account/pkg/config"
)

var mailerCfg = config.MailerConfig{
	Host:     "smtp.example.com",
	Port:     587,
	From:     "no-reply@example.com",
	FromName: "Support Team",
}

func TestClient_Send(t *testing.T) {
	t.Parallel()

	var sent []*gomailv2.Message

	c := gomail.NewWithDialer(mailerCfg, func(m ...*gomailv2.Message) error {
		sent = append(sent, m...)
		return nil
	})

	err := c.Send(context.Background(), "user@example.com", "Verify your account", "<p>code</p>")
	require.NoError(t, err)
	require.Len(t, sent, 1)

	msg := sent[0]
	require.Equal(t, []string{"user@example.com"}, msg.GetHeader("To"))
	require.Equal(t, []string{"Verify your account"}, msg.GetHeader("Subject"))
	require.Len(t, msg.GetHeader("From"), 1)
	require.Contains(t, msg.GetHeader("From")[0], "no-reply@example.com")
}

func TestClient_SendMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		recipients []string
		dialErr    error
		errFn      require.ErrorAssertionFunc
	}{
		{"Delivered", []string{"a@example.com", "b@example.com"}, nil, require.NoError},
		{"No recipients", nil, nil, require.Error},
		{"Dial failure", []string{"a@example.com"}, errors.New("connection refused"), require.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := gomail.NewWithDialer(mailerCfg, func(...*gomailv2.Message) error {
				return tt.dialErr
			})

			err := c.SendMessage("Subject", "plain text", tt.recipients, "")
			tt.errFn(t, err)
		})
	}
}
