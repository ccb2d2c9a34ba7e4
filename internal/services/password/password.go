// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password hashes passwords and generates opaque secrets.
package password

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinCost is the cheapest bcrypt cost, for tests.
	MinCost = bcrypt.MinCost
	// DefaultCost is the bcrypt cost used when none is configured.
	DefaultCost = bcrypt.DefaultCost
	// SessionTokenBytes is the entropy of a session token (256 bits).
	SessionTokenBytes = 32
	// TemporaryLength is the default length of a temporary password.
	TemporaryLength = 12
)

// alphabet for temporary passwords.
const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%"

// Hash returns a salted bcrypt hash of plain. A cost outside bcrypt's range
// falls back to DefaultCost.
func Hash(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash.
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewSessionToken returns a random URL-safe bearer token.
func NewSessionToken() (string, error) {
	b := make([]byte, SessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewTemporary returns a random password of the given length.
func NewTemporary(length int) (string, error) {
	if length <= 0 {
		length = TemporaryLength
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}

	for i := range b {
		b[i] = alphabet[int(b[i])%len(alphabet)]
	}
	return string(b), nil
}
