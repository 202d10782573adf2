package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samandr77/microservices/account/internal/entity"
	"github.com/samandr77/microservices/account/internal/service"
)

func TestCodeEmail_SubjectPerContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ctx     entity.OTPContext
		subject string
		intro   string
	}{
		{entity.OTPContextRegistration, "Verify your account", "Thank you for signing up."},
		{entity.OTPContextLogin, "Verify your account to sign in", "Your account is not verified yet."},
		{entity.OTPContextPasswordReset, "Reset your password", "You asked to reset your password."},
		{entity.OTPContextVerification, "Your verification code", "Use this code to confirm your email address."},
	}

	for _, tt := range tests {
		t.Run(string(tt.ctx), func(t *testing.T) {
			t.Parallel()

			subject, body, err := service.CodeEmail(tt.ctx, "Ada", "4821", 10*time.Minute)
			require.NoError(t, err)
			require.Equal(t, tt.subject, subject)
			require.Contains(t, body, "<b>4821</b>")
			require.Contains(t, body, "expires in 10 minutes")
			require.Contains(t, body, "Hello Ada,")
			require.Contains(t, body, "<p>"+tt.intro+" Your verification code is: <b>4821</b></p>")
			require.Contains(t, body, "The Support Team")
		})
	}
}

func TestCodeEmail_UnknownContextUsesGenericMail(t *testing.T) {
	t.Parallel()

	subject, body, err := service.CodeEmail(entity.OTPContext("other"), "Ada", "4821", 10*time.Minute)
	require.NoError(t, err)
	require.Equal(t, "Your verification code", subject)
	require.NotContains(t, body, "<p> ")
}

func TestCodeEmail_EscapesName(t *testing.T) {
	t.Parallel()

	_, body, err := service.CodeEmail(entity.OTPContextLogin, "<script>x</script>", "1234", 10*time.Minute)
	require.NoError(t, err)
	require.NotContains(t, body, "<script>")
	require.Contains(t, body, "&lt;script&gt;")
}

func TestPasswordChangedEmail(t *testing.T) {
	t.Parallel()

	subject, body, err := service.PasswordChangedEmail("Ada")
	require.NoError(t, err)
	require.Equal(t, "Password changed successfully", subject)
	require.Contains(t, body, "Your password has been changed successfully.")
}
