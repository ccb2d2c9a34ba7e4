// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"time"

	"codeberg.org/ipo-allotment/server/internal/i18n"
)

// Message is a rendered subject and body.
type Message struct {
	Subject string
	Body    string
}

// RegistrationCode renders the mail carrying a registration code.
func RegistrationCode(ctx context.Context, username, code string, ttl time.Duration) Message {
	return Message{
		Subject: i18n.T(ctx, "email_registration_subject"),
		Body: i18n.TData(ctx, "email_registration_body", map[string]any{
			"Username": username,
			"Code":     code,
			"Minutes":  int(ttl.Minutes()),
		}),
	}
}

// RecoveryCode renders the mail carrying a password reset code.
func RecoveryCode(ctx context.Context, username, code string, ttl time.Duration) Message {
	return Message{
		Subject: i18n.T(ctx, "email_recovery_code_subject"),
		Body: i18n.TData(ctx, "email_recovery_code_body", map[string]any{
			"Username": username,
			"Code":     code,
			"Minutes":  int(ttl.Minutes()),
		}),
	}
}

// TemporaryPassword renders the mail carrying a freshly generated password.
func TemporaryPassword(ctx context.Context, username, plain string) Message {
	return Message{
		Subject: i18n.T(ctx, "email_temporary_password_subject"),
		Body: i18n.TData(ctx, "email_temporary_password_body", map[string]any{
			"Username": username,
			"Password": plain,
		}),
	}
}
