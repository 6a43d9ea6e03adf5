// Package email delivers transactional mail for the pipeline, primarily
// next-action reminders to sales actors.
package email

import (
	"context"
	"time"

	"realty_pipeline_backend/platform/config"
)

// Attachment represents a file attachment for an email.
type Attachment struct {
	Content  []byte
	FileName string
	MIMEType string
}

// Sender delivers pipeline emails.
type Sender interface {
	SendNextActionReminderEmail(ctx context.Context, toEmail, actorName, leadName, stage, nextAction string, dueAt time.Time) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email delivery is not configured.
type NoopSender struct{}

func (NoopSender) SendNextActionReminderEmail(ctx context.Context, toEmail, actorName, leadName, stage, nextAction string, dueAt time.Time) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender creates a sender from the email configuration. Without an SMTP
// host configured, delivery is a no-op.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
