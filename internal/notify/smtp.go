package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"gopkg.in/gomail.v2"

	"vsgifts-api/internal/config"
)

const otpSubject = "Your VS Gifts Verification Code"

var otpEmail = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>VS Gifts Verification</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background-color: #f8f9fa; padding: 20px;">
  <div style="max-width: 500px; margin: 0 auto; background: white; border-radius: 12px; border: 1px solid #e9ecef;">
    <div style="background: #4a90e2; padding: 24px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 22px;">VS Gifts</h1>
    </div>
    <div style="padding: 32px; text-align: center;">
      <h2 style="color: #2c3e50;">Verify Your Email Address</h2>
      <p style="color: #6c757d;">Thanks for joining VS Gifts! To complete your registration, enter this verification code:</p>
      <div style="font-size: 32px; font-weight: 700; letter-spacing: 8px; font-family: 'Courier New', monospace;">{{.Code}}</div>
      <div style="color: #6c757d; font-size: 14px;">Expires in {{.Minutes}} minutes</div>
    </div>
    <div style="background: #f8f9fa; padding: 20px; text-align: center; font-size: 12px; color: #6c757d;">
      This is an automated message. Please do not reply. Never share this code with anyone.
    </div>
  </div>
</body>
</html>`))

// mailDialer is satisfied by *gomail.Dialer.
type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type SMTPNotifier struct {
	dialer mailDialer
	from   string
	expiry time.Duration
}

func NewSMTPNotifier(cfg config.SMTPConfig, expiry time.Duration) *SMTPNotifier {
	return &SMTPNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		expiry: expiry,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := n.message(email, code)
	if err != nil {
		return err
	}
	if err := n.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send OTP email: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) message(email, code string) (*gomail.Message, error) {
	minutes := int(n.expiry.Minutes())

	var html bytes.Buffer
	if err := otpEmail.Execute(&html, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return nil, fmt.Errorf("failed to render OTP email: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", otpSubject)
	m.SetBody("text/plain", fmt.Sprintf("Your VS Gifts verification code is %s. It expires in %d minutes.", code, minutes))
	m.AddAlternative("text/html", html.String())
	return m, nil
}
