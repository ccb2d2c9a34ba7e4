// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account runs the code-gated registration and password recovery
// flows and the administrative account bootstrap.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/email"
	"codeberg.org/ipo-allotment/server/internal/services/otp"
	"codeberg.org/ipo-allotment/server/internal/services/password"
)

// Caller-facing messages.
const (
	MsgUsernameTaken   = "Username already exists"
	MsgEmailTaken      = "Email already registered"
	MsgInvalidCode     = "Invalid or expired OTP"
	MsgCodeNotSent     = "Failed to send OTP email"
	MsgPasswordNotSent = "Password reset successful but failed to send email. Contact support."
)

// Options tune the workflow.
type Options struct {
	CodeTTL            time.Duration
	BcryptCost         int
	TempPasswordLength int
}

// Service orchestrates codes, mail and account mutations.
type Service struct {
	repo   *repository.Repository
	codes  otp.Store
	mailer email.Sender
	opts   Options
}

// NewService wires the workflow. Zero options fall back to the defaults.
func NewService(repo *repository.Repository, codes otp.Store, mailer email.Sender, opts Options) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = otp.DefaultTTL
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = password.DefaultCost
	}
	if opts.TempPasswordLength <= 0 {
		opts.TempPasswordLength = password.TemporaryLength
	}
	return &Service{repo: repo, codes: codes, mailer: mailer, opts: opts}
}

// RequestRegistrationCode mails a registration code to addr if neither the
// username nor the address is taken.
func (s *Service) RequestRegistrationCode(ctx context.Context, username, addr string) error {
	username, addr, err := normalizeIdentity(username, addr)
	if err != nil {
		return err
	}

	if err := s.ensureAvailable(ctx, username, addr); err != nil {
		return err
	}

	code, err := s.codes.Issue(ctx, addr, otp.PurposeRegistration, s.opts.CodeTTL)
	if err != nil {
		return fmt.Errorf("failed to issue code: %w", err)
	}
	slog.Info("otp_issued", "purpose", otp.PurposeRegistration, "email", addr)

	msg := email.RegistrationCode(ctx, username, code, s.opts.CodeTTL)
	if err := s.mailer.Send(ctx, addr, msg.Subject, msg.Body); err != nil {
		slog.Error("email_send_failed", "purpose", otp.PurposeRegistration, "email", addr, "error", err)
		return apperr.New(apperr.ErrEmailDelivery, MsgCodeNotSent)
	}
	return nil
}

// CompleteRegistration consumes the code and creates a verified account.
func (s *Service) CompleteRegistration(ctx context.Context, addr, code, username, plain string) (*models.User, error) {
	username, addr, err := normalizeIdentity(username, addr)
	if err != nil {
		return nil, err
	}
	if plain == "" {
		return nil, apperr.New(apperr.ErrValidation, "Password is required")
	}

	ok, err := s.codes.Verify(ctx, addr, strings.TrimSpace(code), otp.PurposeRegistration)
	if err != nil {
		return nil, fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		slog.Warn("otp_rejected", "purpose", otp.PurposeRegistration, "email", addr)
		return nil, apperr.New(apperr.ErrInvalidCode, MsgInvalidCode)
	}

	// Either may have been claimed since the code went out.
	if err := s.ensureAvailable(ctx, username, addr); err != nil {
		return nil, err
	}

	hash, err := password.Hash(plain, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        &addr,
		PasswordHash: hash,
		Verified:     true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.New(apperr.ErrConflict, MsgUsernameTaken)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("registration_complete", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// RequestRecoveryCode mails a recovery code when addr belongs to an account.
// The outcome for unknown addresses is indistinguishable from success.
func (s *Service) RequestRecoveryCode(ctx context.Context, addr string) error {
	addr = normalizeEmail(addr)
	if addr == "" {
		return apperr.New(apperr.ErrValidation, "Email is required")
	}

	user, err := s.repo.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("recovery_requested_unknown_email")
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	code, err := s.codes.Issue(ctx, addr, otp.PurposeRecovery, s.opts.CodeTTL)
	if err != nil {
		return fmt.Errorf("failed to issue code: %w", err)
	}
	slog.Info("otp_issued", "purpose", otp.PurposeRecovery, "user_id", user.ID)

	msg := email.RecoveryCode(ctx, user.Username, code, s.opts.CodeTTL)
	if err := s.mailer.Send(ctx, addr, msg.Subject, msg.Body); err != nil {
		slog.Error("email_send_failed", "purpose", otp.PurposeRecovery, "user_id", user.ID, "error", err)
		return apperr.New(apperr.ErrEmailDelivery, MsgCodeNotSent)
	}
	return nil
}

// CompleteRecovery consumes the code, rotates the password to a random
// temporary one and mails it. When mailing fails the rotation has already
// happened.
func (s *Service) CompleteRecovery(ctx context.Context, addr, code string) error {
	addr = normalizeEmail(addr)
	if addr == "" {
		return apperr.New(apperr.ErrValidation, "Email is required")
	}

	// The code is checked first so an unknown address looks like a bad code.
	ok, err := s.codes.Verify(ctx, addr, strings.TrimSpace(code), otp.PurposeRecovery)
	if err != nil {
		return fmt.Errorf("failed to verify code: %w", err)
	}
	if !ok {
		slog.Warn("otp_rejected", "purpose", otp.PurposeRecovery)
		return apperr.New(apperr.ErrInvalidCode, MsgInvalidCode)
	}

	user, err := s.repo.GetUserByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.ErrInvalidCode, MsgInvalidCode)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	temp, err := password.NewTemporary(s.opts.TempPasswordLength)
	if err != nil {
		return err
	}
	hash, err := password.Hash(temp, s.opts.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	slog.Info("password_recovered", "user_id", user.ID)

	msg := email.TemporaryPassword(ctx, user.Username, temp)
	if err := s.mailer.Send(ctx, addr, msg.Subject, msg.Body); err != nil {
		slog.Error("email_send_failed", "purpose", otp.PurposeRecovery, "user_id", user.ID, "error", err)
		return apperr.New(apperr.ErrEmailDelivery, MsgPasswordNotSent)
	}
	return nil
}

// EnsureAdmin creates a verified user named username unless one exists.
func (s *Service) EnsureAdmin(ctx context.Context, username, plain string) error {
	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check admin: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := password.Hash(plain, s.opts.BcryptCost)
	if err != nil {
		return err
	}
	user := &models.User{Username: username, PasswordHash: hash, Verified: true}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return fmt.Errorf("failed to create admin: %w", err)
	}

	slog.Info("admin_created", "user_id", user.ID, "username", username)
	return nil
}

// ResetPassword sets the password of username, creating the user if needed.
// The user ends up verified and signed out. It reports whether the user was
// created.
func (s *Service) ResetPassword(ctx context.Context, username, plain string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, apperr.New(apperr.ErrValidation, "Username is required")
	}
	if plain == "" {
		return false, apperr.New(apperr.ErrValidation, "Password is required")
	}

	hash, err := password.Hash(plain, s.opts.BcryptCost)
	if err != nil {
		return false, err
	}

	created := false
	err = s.repo.InTx(ctx, func(tx *repository.Repository) error {
		user, err := tx.GetUserByUsername(ctx, username)
		if errors.Is(err, repository.ErrNotFound) {
			created = true
			return tx.CreateUser(ctx, &models.User{Username: username, PasswordHash: hash, Verified: true})
		}
		if err != nil {
			return err
		}
		return tx.ResetUserCredentials(ctx, user.ID, hash)
	})
	if err != nil {
		return false, fmt.Errorf("failed to reset password: %w", err)
	}

	slog.Info("password_reset", "username", username, "created", created)
	return created, nil
}

func (s *Service) ensureAvailable(ctx context.Context, username, addr string) error {
	taken, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return apperr.New(apperr.ErrConflict, MsgUsernameTaken)
	}

	taken, err = s.repo.EmailExists(ctx, addr)
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return apperr.New(apperr.ErrConflict, MsgEmailTaken)
	}
	return nil
}

func normalizeIdentity(username, addr string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", "", apperr.New(apperr.ErrValidation, "Username is required")
	}
	addr = normalizeEmail(addr)
	if addr == "" {
		return "", "", apperr.New(apperr.ErrValidation, "Email is required")
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Name != "" || parsed.Address != addr {
		return "", "", apperr.New(apperr.ErrValidation, "Invalid email address")
	}
	return username, parsed.Address, nil
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
