package email

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// CompositeEmailSender delivers through a primary sender and copies every message to
// mirror senders (the LOG_EMAILS file, for instance). Only the primary decides the
// outcome: a delivery task that retried on a mirror failure would mail the bidder twice.
type CompositeEmailSender struct {
	primary Sender
	mirrors []Sender
}

// NewCompositeEmailSender creates a CompositeEmailSender around primary.
func NewCompositeEmailSender(primary Sender, mirrors ...Sender) *CompositeEmailSender {
	cs := &CompositeEmailSender{primary: primary}
	for _, m := range mirrors {
		cs.AddSender(m)
	}
	return cs
}

// AddSender adds a mirror.
func (cs *CompositeEmailSender) AddSender(sender Sender) {
	if sender != nil {
		cs.mirrors = append(cs.mirrors, sender)
	}
}

// Send delivers rawMessage through the primary sender, then through each mirror.
func (cs *CompositeEmailSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	if cs.primary == nil {
		return errors.New("composite email sender has no primary sender")
	}
	templateID := templateIDOf(rawMessage)

	if err := cs.primary.Send(ctx, to, subject, rawMessage); err != nil {
		return fmt.Errorf("failed to deliver %s email to %v: %w", templateID, to, err)
	}
	for _, m := range cs.mirrors {
		if err := m.Send(ctx, to, subject, rawMessage); err != nil {
			log.Printf("CompositeEmailSender: %T failed to copy %s email to %v: %v", m, templateID, to, err)
		}
	}
	return nil
}
