// Package mail defines the email sender consumed by the send-email action.
// Delivery mechanics beyond SMTP handoff are owned by the platform's
// notification subsystem.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

type (
	// Message is a single outbound email
	Message struct {
		From    string
		To      []string
		Subject string
		Body    string
	}

	// Sender delivers outbound email
	Sender interface {
		Send(ctx context.Context, msg *Message) error
	}

	// SMTPSender hands messages to an SMTP relay
	SMTPSender struct {
		addr string
		auth smtp.Auth
	}
)

var (
	ErrNoRecipients = errors.New("message has no recipients")
	ErrNoSubject    = errors.New("message has no subject")
)

var _ Sender = (*SMTPSender)(nil)

// NewSMTPSender creates a sender relaying through the given SMTP address
func NewSMTPSender(addr string, auth smtp.Auth) *SMTPSender {
	return &SMTPSender{
		addr: addr,
		auth: auth,
	}
}

// Validate checks that the message is deliverable
func (m *Message) Validate() error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}
	if m.Subject == "" {
		return ErrNoSubject
	}
	return nil
}

func (s *SMTPSender) Send(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	return smtp.SendMail(s.addr, s.auth, msg.From, msg.To, []byte(b.String()))
}
