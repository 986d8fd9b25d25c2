package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"streamcast/internal/core/ports"

	"go.uber.org/zap"
)

// SMTPConfig holds the email transport settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// EmailNotifier sends one plain-text email per notification. Failures
// are logged and swallowed.
type EmailNotifier struct {
	cfg    SMTPConfig
	logger *zap.SugaredLogger
}

func NewEmailNotifier(cfg SMTPConfig, logger *zap.SugaredLogger) ports.Notifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

func (n *EmailNotifier) Notify(ctx context.Context, subject, message string) {
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", n.cfg.To)
	fmt.Fprintf(&body, "Subject: %s\r\n", subject)
	body.WriteString("\r\n")
	body.WriteString(message)
	body.WriteString("\r\n")

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{n.cfg.To}, []byte(body.String())); err != nil {
		n.logger.Errorw("failed to send email", "subject", subject, "error", err)
	}
}
