package mail

import (
	"context"
	"errors"
	"strings"

	"github.com/sodiqbhoy1/wears/internal/pkg/env"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("email service not configured")

// Mailer delivers a single message.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Message is a transport neutral email. At least one body must be set.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
	Headers  map[string]string
}

// Config holds the SMTP settings.
type Config struct {
	Host       string
	Port       string
	Username   string
	Password   string
	Sender     string
	SenderName string
	// Security is one of "tls", "starttls" or "none".
	Security string
}

// ConfigFromEnv reads SMTP_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		Host:       env.GetEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:       env.GetEnv("SMTP_PORT", "587"),
		Username:   env.GetEnv("SMTP_USERNAME", ""),
		Password:   env.GetEnv("SMTP_PASSWORD", ""),
		Sender:     env.GetEnv("SMTP_SENDER", ""),
		SenderName: env.GetEnv("SMTP_SENDER_NAME", "WearHouse"),
		Security:   strings.ToLower(env.GetEnv("SMTP_SECURITY", "")),
	}
	if cfg.Sender == "" {
		cfg.Sender = cfg.Username
	}
	if cfg.Security == "" {
		switch cfg.Port {
		case "465":
			cfg.Security = "tls"
		case "25", "1025":
			cfg.Security = "none"
		default:
			cfg.Security = "starttls"
		}
	}
	return cfg
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return c.Host != "" && c.Username != "" && c.Password != ""
}

// Status is the health view of the email configuration.
type Status struct {
	Configured  bool   `json:"configured"`
	HasHost     bool   `json:"hasHost"`
	HasUser     bool   `json:"hasUser"`
	HasPassword bool   `json:"hasPassword"`
	Sender      string `json:"sender,omitempty"`
}

func (c Config) Status() Status {
	return Status{
		Configured:  c.Configured(),
		HasHost:     c.Host != "",
		HasUser:     c.Username != "",
		HasPassword: c.Password != "",
		Sender:      c.Sender,
	}
}
