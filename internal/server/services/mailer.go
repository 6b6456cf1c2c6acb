package services

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Purposes a code can be mailed for.
const (
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

// Mailer delivers one-time codes to an email address.
type Mailer interface {
	SendCode(ctx context.Context, email, code, purpose string) error
}

// LogMailer writes codes to the log instead of sending them. It is meant
// for development setups without an outbound mail relay.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer")}
}

func (m *LogMailer) SendCode(ctx context.Context, email, code, purpose string) error {
	m.logger.Info(ctx, "verification code issued", "email", email, "purpose", purpose, "code", code)
	return nil
}
