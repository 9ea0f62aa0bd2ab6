package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mailer sends a single email. Implementations are expected to do their own
// timeout handling; callers treat a failed send as ErrDispatchFailed and do
// not retry.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// logMailer is the development mailer: it records what would have been sent
// instead of talking to an SMTP relay.
type logMailer struct {
	logger *logrus.Logger
	from   string
}

// NewLogMailer creates a mailer that only logs outgoing messages
func NewLogMailer(logger *logrus.Logger, from string) Mailer {
	return &logMailer{logger: logger, from: from}
}

func (m *logMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.WithFields(logrus.Fields{
		"from":    m.from,
		"to":      to,
		"subject": subject,
	}).Info("Would send email")
	return nil
}

// smtpMailer delivers through a plain SMTP relay
type smtpMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer creates a mailer backed by an SMTP relay. Credentials are
// optional; leaving the username empty sends unauthenticated, which is
// common for internal relays.
func NewSMTPMailer(host string, port int, username, password, from string) Mailer {
	m := &smtpMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
	if username != "" {
		m.auth = smtp.PlainAuth("", username, password, host)
	}
	return m
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, buildMessage(m.from, to, subject, body))
}

// buildMessage assembles a minimal plain-text RFC 5322 message
func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
