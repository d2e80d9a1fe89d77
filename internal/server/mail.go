package server

import (
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"
)

// Mailer delivers outgoing email for the gateway
type Mailer interface {
	Send(to []string, subject, body string, html bool) error
}

// SMTPConfig holds the outgoing mail server settings
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPMailer creates a mailer for cfg
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
	}
}

func (m *SMTPMailer) message(to []string, subject, body string, html bool) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	if html {
		msg.SetBody("text/html", body)
	} else {
		msg.SetBody("text/plain", body)
	}
	return msg
}

// Send delivers one message to every recipient
func (m *SMTPMailer) Send(to []string, subject, body string, html bool) error {
	if err := m.dialer.DialAndSend(m.message(to, subject, body, html)); err != nil {
		return fmt.Errorf("send email to %s: %w", strings.Join(to, ", "), err)
	}
	return nil
}

// LogMailer writes messages to a logger instead of sending them. Used when
// no SMTP host is configured.
type LogMailer struct {
	Logger *log.Logger
}

func (m LogMailer) Send(to []string, subject, body string, html bool) error {
	m.Logger.Printf("email to %s: %s", strings.Join(to, ", "), subject)
	return nil
}
