package email

import (
	"gopkg.in/gomail.v2"

	"github.com/spec-kit/service-queue/internal/config"
)

// Message is one outbound email resolved from a template.
type Message struct {
	To       string
	Template Template
	Data     TemplateData
}

// Sender delivers a single email. Callers must treat delivery as fallible
// and never tie a primary mutation to its outcome.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender delivers mail through an SMTP relay using gomail.
type SMTPSender struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
}

// NewSMTPSender builds a sender from config.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (s *SMTPSender) Send(msg Message) error {
	subject, htmlBody, plainBody, err := Render(msg.Template, msg.Data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.FromAddress, s.cfg.FromName)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	return s.dialer.DialAndSend(m)
}

// NopSender discards mail. Used when SMTP is disabled.
type NopSender struct{}

func (NopSender) Send(Message) error { return nil }
