// Package mail delivers the one notification the portal sends: the generated
// first-access password for a new account.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sink receives outbound notifications. The SMTP implementation is used in
// production; tests substitute a recording fake.
type Sink interface {
	// SendPassword emails a freshly generated password to a new user.
	SendPassword(ctx context.Context, to, name, password string) error
}

type SMTPMailer struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string
}

func (m *SMTPMailer) addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

func (m *SMTPMailer) SendPassword(ctx context.Context, to, name, password string) error {
	subject := "Sua senha de acesso ao portal"
	body := fmt.Sprintf(
		"Olá %s,\r\n\r\n"+
			"Sua conta no portal foi criada. Sua senha de primeiro acesso é:\r\n\r\n"+
			"    %s\r\n\r\n"+
			"Recomendamos alterá-la após o primeiro login.\r\n",
		name, password,
	)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	fmt.Fprintf(&msg, "Message-ID: <%s@portal>\r\n", uuid.NewString())
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	// net/smtp has no context support; honour cancellation before dialing.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := smtp.SendMail(m.addr(), auth, m.From, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send password mail: %w", err)
	}
	return nil
}
