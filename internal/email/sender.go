package email

import (
	"context"
	"fmt"
	"log"
	"net/smtp"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
)

// Sender delivers one rendered message. rawMessage is a full RFC 5322 message as
// produced by BuildMessage.
type Sender interface {
	Send(ctx context.Context, to []string, subject string, rawMessage []byte) error
}

// SMTPSender implements the Sender interface using Go's net/smtp package.
type SMTPSender struct {
	cfg  *config.Config
	auth smtp.Auth
	addr string
}

// NewSMTPSender returns an SMTPSender, or a LoggingSender when SMTP_HOST is unset.
func NewSMTPSender(cfg *config.Config) Sender {
	if cfg.SmtpHost == "" {
		log.Println("SMTP host not configured, using logging email sender.")
		return &LoggingSender{cfg: cfg}
	}

	return &SMTPSender{
		cfg:  cfg,
		auth: smtp.PlainAuth("", cfg.SmtpUsername, cfg.SmtpPassword, cfg.SmtpHost),
		addr: fmt.Sprintf("%s:%d", cfg.SmtpHost, cfg.SmtpPort),
	}
}

// Send relays the message through the configured SMTP server.
func (s *SMTPSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := smtp.SendMail(s.addr, s.auth, s.cfg.SmtpFromAddress, to, rawMessage); err != nil {
		return fmt.Errorf("smtp error: %w", err)
	}
	log.Printf("SMTPSender: %s email sent to %v", templateIDOf(rawMessage), to)
	return nil
}

// LoggingSender writes messages to the process log.
type LoggingSender struct {
	cfg *config.Config
}

// Send logs the email details, raw message included, instead of sending.
func (s *LoggingSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	log.Printf("LoggingSender: %s email from %s to %v, subject %q\n%s",
		templateIDOf(rawMessage), s.cfg.SmtpFromAddress, to, subject, rawMessage)
	return nil
}
