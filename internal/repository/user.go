// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/ipo-allotment/server/internal/models"
)

const userColumns = `id, username, email, password_hash, session_token, verified, created_at`

// CreateUser inserts a new user and fills in its ID and creation time.
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	return r.get(ctx, &user.ID,
		`INSERT INTO users (username, email, password_hash, session_token, verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
		user.Username, user.Email, user.PasswordHash, user.SessionToken, user.Verified, user.CreatedAt)
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername retrieves a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByEmail retrieves a user by email address.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetUserBySessionToken retrieves the user currently holding token.
func (r *Repository) GetUserBySessionToken(ctx context.Context, token string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE session_token = ?`, token)
}

func (r *Repository) getUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	var user models.User
	if err := r.get(ctx, &user, query, args...); err != nil {
		return nil, err
	}
	return &user, nil
}

// UsernameExists checks if a user with the given username exists.
func (r *Repository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.get(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`, username)
	return exists, err
}

// EmailExists checks if a user with the given email exists.
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.get(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`, email)
	return exists, err
}

// SetSessionToken replaces the user's session token. A nil token clears it.
func (r *Repository) SetSessionToken(ctx context.Context, id int64, token *string) error {
	_, err := r.exec(ctx, `UPDATE users SET session_token = ? WHERE id = ?`, token, id)
	return err
}

// UpdateUserPassword updates a user's password hash.
func (r *Repository) UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error {
	n, err := r.exec(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetUserCredentials sets a new password hash, marks the user verified and
// signs out any active session.
func (r *Repository) ResetUserCredentials(ctx context.Context, id int64, passwordHash string) error {
	n, err := r.exec(ctx,
		`UPDATE users SET password_hash = ?, verified = ?, session_token = NULL WHERE id = ?`,
		passwordHash, true, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
