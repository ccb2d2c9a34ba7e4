// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers transactional mail and renders its texts.
package email

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/ipo-allotment/server/internal/config"
	"github.com/wneessen/go-mail"
)

// ErrNotConfigured is returned by Disabled for every message.
var ErrNotConfigured = errors.New("email delivery is not configured")

// Sender delivers a single plain text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service sends email via SMTP.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg}, nil
}

// New returns an SMTP Service when cfg names a host, and Disabled otherwise.
func New(cfg *config.SMTPConfig) (Sender, error) {
	if cfg == nil || cfg.Host == "" {
		return Disabled{}, nil
	}
	return NewService(cfg)
}

// Send sends a plain text email via SMTP using go-mail.
func (s *Service) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Implicit TLS on 465, STARTTLS elsewhere.
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}

// Disabled is a Sender for deployments without SMTP. Every Send fails.
type Disabled struct{}

// Send returns ErrNotConfigured.
func (Disabled) Send(context.Context, string, string, string) error {
	return ErrNotConfigured
}
