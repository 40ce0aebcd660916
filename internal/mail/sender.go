// Package mail delivers transactional email over SMTP.
package mail

import (
	"context"
	"errors"
	"strings"

	"gopkg.in/gomail.v2"
)

const senderName = "Nowlisten"

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// From defaults to no-reply@<Domain>.
	From   string
	Domain string
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Dialer sends composed messages. *gomail.Dialer satisfies it.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Sender delivers messages through an SMTP dialer.
type Sender struct {
	dialer Dialer
	from   string
}

// NewSender builds a Sender backed by a gomail dialer.
func NewSender(cfg Config) *Sender {
	return NewSenderWithDialer(gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), cfg)
}

// NewSenderWithDialer allows swapping the transport, mostly for tests.
func NewSenderWithDialer(d Dialer, cfg Config) *Sender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@" + cfg.Domain
	}
	return &Sender{dialer: d, from: from}
}

// From returns the envelope sender address.
func (s *Sender) From() string {
	return s.from
}

// Send delivers msg. The context is only checked before dialing since gomail
// does not accept one.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" {
		return errors.New("mail: recipient required")
	}
	return s.dialer.DialAndSend(s.compose(msg))
}

func (s *Sender) compose(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.from, senderName))
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			m.AddAlternative("text/html", msg.HTML)
		}
		return m
	}
	m.SetBody("text/html", msg.HTML)
	return m
}
