package email

import (
	"context"
	"fmt"
	"time"

	"jury_portal_backend/platform/config"

	"github.com/google/uuid"
)

// Message is a fully rendered outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Tags    []string
}

// Delivery describes a message the provider accepted.
type Delivery struct {
	Provider  string
	MessageID string
	SentAt    time.Time
}

// Sender delivers rendered messages. Errors carry the provider's raw message.
type Sender interface {
	Send(ctx context.Context, msg Message) (Delivery, error)
}

// NoopSender accepts every message without delivering it.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg Message) (Delivery, error) {
	return Delivery{Provider: "noop", MessageID: "noop-" + uuid.NewString(), SentAt: time.Now()}, nil
}

// NewSender builds the configured provider, or a NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	switch cfg.GetEmailProvider() {
	case "smtp":
		return NewSMTPSender(SMTPOptions{
			Host:      cfg.GetSMTPHost(),
			Port:      cfg.GetSMTPPort(),
			Username:  cfg.GetSMTPUsername(),
			Password:  cfg.GetSMTPPassword(),
			FromEmail: cfg.GetEmailFromAddress(),
			FromName:  cfg.GetEmailFromName(),
			Timeout:   cfg.GetEmailTimeout(),
		}), nil
	case "brevo":
		return NewBrevoSender(cfg.GetBrevoAPIKey(), cfg.GetEmailFromName(), cfg.GetEmailFromAddress(), cfg.GetEmailTimeout()), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.GetEmailProvider())
	}
}
