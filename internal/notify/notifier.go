// Package notify delivers one-time codes to account holders.
package notify

import (
	"context"

	"go.uber.org/zap"

	"vsgifts-api/internal/config"
	"vsgifts-api/internal/util"
)

// Notifier sends a one-time code to an email address. A returned error
// means the code may not have reached the recipient.
type Notifier interface {
	Send(ctx context.Context, email, code string) error
}

// New picks SMTP delivery when credentials are configured and falls back
// to logging the code otherwise.
func New(cfg *config.Config, logger *zap.Logger) Notifier {
	if cfg.SMTP.User == "" || cfg.SMTP.Password == "" {
		logger.Info("Email credentials not found, OTP codes will be logged")
		return NewLogNotifier(logger, cfg.Auth.OTPTTL.String())
	}
	logger.Info("SMTP notifier configured",
		util.String("host", cfg.SMTP.Host),
		util.Int("port", cfg.SMTP.Port),
	)
	return NewSMTPNotifier(cfg.SMTP, cfg.Auth.OTPTTL)
}

// LogNotifier writes codes to the log for local development.
type LogNotifier struct {
	logger *zap.Logger
	expiry string
}

func NewLogNotifier(logger *zap.Logger, expiry string) *LogNotifier {
	return &LogNotifier{logger: logger.Named("notify"), expiry: expiry}
}

func (n *LogNotifier) Send(_ context.Context, email, code string) error {
	n.logger.Info("OTP verification (development mode)",
		util.String("to", email),
		util.String("otp", code),
		util.String("expires_in", n.expiry),
	)
	return nil
}
