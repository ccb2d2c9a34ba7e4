// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session authenticates operators with opaque bearer tokens.
//
// Each user holds at most one live token. Login overwrites it, logout clears
// it, and Resolve is a direct lookup so invalidation takes effect at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"codeberg.org/ipo-allotment/server/internal/models"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/password"
)

// MsgInvalidCredentials is returned for any failed login.
const MsgInvalidCredentials = "Invalid username or password"

// dummyHash is compared against on unknown usernames so both failure paths
// cost one bcrypt comparison.
var dummyHash = mustHash("dummy-password-for-timing")

func mustHash(plain string) string {
	hash, err := password.Hash(plain, password.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("session: failed to hash timing password: %v", err))
	}
	return hash
}

// Authenticator issues, revokes and resolves session tokens.
type Authenticator struct {
	repo *repository.Repository
}

// New returns an Authenticator backed by repo.
func New(repo *repository.Repository) *Authenticator {
	return &Authenticator{repo: repo}
}

// Login checks the credentials and stores a fresh token for the user,
// replacing any previous one.
func (a *Authenticator) Login(ctx context.Context, username, plain string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	user, err := a.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = password.Verify(plain, dummyHash)
			slog.Warn("login_failed", "username", username, "reason", "user_not_found")
			return nil, "", apperr.New(apperr.ErrUnauthorized, MsgInvalidCredentials)
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}

	if !password.Verify(plain, user.PasswordHash) {
		slog.Warn("login_failed", "username", username, "reason", "invalid_password")
		return nil, "", apperr.New(apperr.ErrUnauthorized, MsgInvalidCredentials)
	}

	token, err := password.NewSessionToken()
	if err != nil {
		return nil, "", err
	}
	if err := a.repo.SetSessionToken(ctx, user.ID, &token); err != nil {
		return nil, "", fmt.Errorf("failed to store session token: %w", err)
	}
	user.SessionToken = &token

	slog.Info("login_success", "user_id", user.ID, "username", user.Username)
	return user, token, nil
}

// Logout clears the user's token. Logging out twice is not an error.
func (a *Authenticator) Logout(ctx context.Context, user *models.User) error {
	if err := a.repo.SetSessionToken(ctx, user.ID, nil); err != nil {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	user.SessionToken = nil
	slog.Info("logout", "user_id", user.ID)
	return nil
}

// Resolve returns the user currently holding token.
func (a *Authenticator) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.New(apperr.ErrUnauthorized, "No token provided")
	}

	user, err := a.repo.GetUserBySessionToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.New(apperr.ErrUnauthorized, "Invalid token")
		}
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	return user, nil
}
