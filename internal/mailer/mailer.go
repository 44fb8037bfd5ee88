package mailer

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

// Message is one outbound email, fully resolved.
type Message struct {
	FromName  string
	FromEmail string
	ReplyTo   string
	ToName    string
	ToEmail   string
	Subject   string
	TextBody  string
	HTMLBody  string
}

// Sender delivers email. The SMTP implementation lives here; tests use
// an in-memory fake.
type Sender interface {
	Send(msg Message) error
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
}

func NewEmailSender(host string, port int, user, password string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
	}
}

func (s *EmailSender) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", msg.FromEmail, msg.FromName)
	m.SetAddressHeader("To", msg.ToEmail, msg.ToName)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("X-Outreach-Token", uuid.NewString())
	m.SetBody("text/plain", msg.TextBody)
	if msg.HTMLBody != "" {
		m.AddAlternative("text/html", msg.HTMLBody)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via SMTP: %w", err)
	}

	return nil
}

var _ Sender = (*EmailSender)(nil)
