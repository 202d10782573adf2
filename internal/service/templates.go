package service

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/samandr77/microservices/account/internal/entity"
)

var layoutTmpl = template.Must(template.New("layout").Parse(`<div style="font-family: Arial, sans-serif; color: #333; padding: 20px;">
  <div style="max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 8px; padding: 20px;">
    <h2 style="color: #007bff; text-align: center; margin-bottom: 20px;">{{.Subject}}</h2>
    <div style="font-size: 15px; line-height: 1.6;">{{.Body}}</div>
    <p style="margin-top: 30px; font-size: 13px; color: #777; text-align: center;">
      Thank you for your trust.<br/>The Support Team
    </p>
  </div>
</div>`))

var codeTmpl = template.Must(template.New("code").Parse(`<p>Hello {{.Name}},</p>
<p>{{with .Intro}}{{.}} {{end}}Your verification code is: <b>{{.Code}}</b></p>
<p>This code expires in {{.Minutes}} minutes.</p>`))

var passwordChangedTmpl = template.Must(template.New("password_changed").Parse(`<p>Hello {{.Name}},</p>
<p>Your password has been changed successfully.</p>
<p>If you did not make this change, please contact support immediately.</p>`))

type codeMail struct {
	subject string
	intro   string
}

var codeMails = map[entity.OTPContext]codeMail{
	entity.OTPContextRegistration: {
		subject: "Verify your account",
		intro:   "Thank you for signing up.",
	},
	entity.OTPContextLogin: {
		subject: "Verify your account to sign in",
		intro:   "Your account is not verified yet.",
	},
	entity.OTPContextPasswordReset: {
		subject: "Reset your password",
		intro:   "You asked to reset your password.",
	},
}

var genericCodeMail = codeMail{
	subject: "Your verification code",
	intro:   "Use this code to confirm your email address.",
}

const passwordChangedSubject = "Password changed successfully"

// CodeEmail renders the subject and HTML body carrying the plaintext code for
// the given context.
func CodeEmail(otpCtx entity.OTPContext, name, code string, ttl time.Duration) (string, string, error) {
	m, ok := codeMails[otpCtx]
	if !ok {
		m = genericCodeMail
	}

	var body bytes.Buffer

	err := codeTmpl.Execute(&body, map[string]any{
		"Name":    name,
		"Intro":   m.intro,
		"Code":    code,
		"Minutes": int(ttl.Minutes()),
	})
	if err != nil {
		return "", "", fmt.Errorf("render code email: %w", err)
	}

	html, err := wrapLayout(m.subject, body.String())
	if err != nil {
		return "", "", err
	}

	return m.subject, html, nil
}

func PasswordChangedEmail(name string) (string, string, error) {
	var body bytes.Buffer

	err := passwordChangedTmpl.Execute(&body, map[string]any{"Name": name})
	if err != nil {
		return "", "", fmt.Errorf("render password changed email: %w", err)
	}

	html, err := wrapLayout(passwordChangedSubject, body.String())
	if err != nil {
		return "", "", err
	}

	return passwordChangedSubject, html, nil
}

func wrapLayout(subject, body string) (string, error) {
	var out bytes.Buffer

	err := layoutTmpl.Execute(&out, map[string]any{
		"Subject": subject,
		"Body":    template.HTML(body), //nolint:gosec // body is rendered by html/template above
	})
	if err != nil {
		return "", fmt.Errorf("render email layout: %w", err)
	}

	return out.String(), nil
}
