// Package mail is the outbound-mail collaborator. It is injected into the
// services that need it; nothing in the application reaches for a global
// transport.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Message is a plain-text outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPMailer delivers through a plain SMTP relay.
type SMTPMailer struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTP builds a Mailer for host:port with optional PLAIN auth.
func NewSMTP(host, port, user, pass, from string) *SMTPMailer {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPMailer{
		addr: host + ":" + port,
		auth: auth,
		from: from,
	}
}

func (m *SMTPMailer) Send(_ context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return fmt.Errorf("mail: recipient is required")
	}
	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from, to, msg.Subject, msg.Body)
	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{to}, []byte(body)); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// LogMailer logs instead of delivering. Used in development and tests.
type LogMailer struct {
	Logger *logrus.Logger
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.Logger.WithFields(logrus.Fields{
		"to":      msg.To,
		"subject": msg.Subject,
	}).Info("mail suppressed (log mailer)")
	return nil
}
