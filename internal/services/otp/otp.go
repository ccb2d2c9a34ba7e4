// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp keeps short-lived, single-use numeric codes keyed by identity.
//
// At most one code is pending per key. Issuing a new code for a key replaces
// whatever was pending for it, regardless of purpose. A definitive mismatch
// (wrong purpose, expired, wrong code) destroys the pending entry.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

// Purpose tags what a code may be used for.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeRecovery     Purpose = "recovery"
)

const (
	// DefaultLength is the number of digits in a code.
	DefaultLength = 6
	// DefaultTTL is how long a code stays valid.
	DefaultTTL = 10 * time.Minute
)

// Store issues and verifies codes. Issue and Verify are atomic per key.
type Store interface {
	Issue(ctx context.Context, key string, purpose Purpose, ttl time.Duration) (string, error)
	Verify(ctx context.Context, key, code string, purpose Purpose) (bool, error)
}

// entry is a pending code.
type entry struct {
	Code      string    `json:"code"`
	Purpose   Purpose   `json:"purpose"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// check reports whether code matches e at now. The entry must be discarded
// after any check, matched or not.
func (e *entry) check(code string, purpose Purpose, now time.Time) bool {
	if e.Purpose != purpose {
		return false
	}
	if now.After(e.ExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(e.Code), []byte(code)) == 1
}

func newEntry(length int, purpose Purpose, ttl time.Duration, now time.Time) (*entry, error) {
	code, err := generateCode(length)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &entry{
		Code:      code,
		Purpose:   purpose,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// generateCode returns length uniformly random decimal digits.
func generateCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	ten := big.NewInt(10)
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
