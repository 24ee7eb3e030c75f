package mailer

import (
	"crypto/tls"
	"strings"

	"gopkg.in/gomail.v2"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	UseTLS   bool
}

// Sender is what services depend on, so tests can capture outgoing mail.
type Sender interface {
	Send(to, subject, body string) error
}

type Mailer struct {
	cfg    Config
	dialer *gomail.Dialer
}

func New(cfg Config) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.UseTLS {
		d.TLSConfig = &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12}
	}
	// Port 465 expects implicit TLS; gomail switches on SSL for it.
	d.SSL = cfg.UseTLS && cfg.Port == 465
	return &Mailer{cfg: cfg, dialer: d}
}

func (m *Mailer) Send(to, subject, body string) error {
	from := m.cfg.From
	if strings.TrimSpace(from) == "" {
		from = m.cfg.Username
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	return m.dialer.DialAndSend(msg)
}

// Noop discards mail. Used when SMTP is not configured.
type Noop struct{}

func (Noop) Send(to, subject, body string) error { return nil }
