package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SendText sends a plain-text email.
func SendText(cfg SMTPConfig, to, subject, body string) error {
	return send(cfg, to, "", subject, body)
}

// SendTextWithReplyTo sends a plain-text email with a Reply-To header so the
// recipient can answer the originating user directly.
func SendTextWithReplyTo(cfg SMTPConfig, to, replyTo, subject, body string) error {
	return send(cfg, to, replyTo, subject, body)
}

func send(cfg SMTPConfig, to, replyTo, subject, body string) error {
	if cfg.Host == "" || cfg.From == "" {
		return fmt.Errorf("smtp not configured")
	}

	var msg strings.Builder
	msg.WriteString("From: " + cfg.From + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	if replyTo != "" {
		msg.WriteString("Reply-To: " + replyTo + "\r\n")
	}
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}
	return smtp.SendMail(addr, auth, cfg.From, []string{to}, []byte(msg.String()))
}

// Sender adapts the package funcs to the escalation.Mailer interface.
type Sender struct {
	Cfg SMTPConfig
}

func (s Sender) SendText(to, replyTo, subject, body string) error {
	return send(s.Cfg, to, replyTo, subject, body)
}
