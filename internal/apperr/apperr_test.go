// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"codeberg.org/ipo-allotment/server/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestError_IsKind(t *testing.T) {
	err := apperr.New(apperr.ErrConflict, "IPO name already exists")

	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "IPO name already exists", err.Error())
}

func TestError_EmptyMessageFallsBackToKind(t *testing.T) {
	err := apperr.New(apperr.ErrUnauthorized, "")

	assert.Equal(t, "unauthorized", err.Error())
}

func TestError_Wrapped(t *testing.T) {
	err := fmt.Errorf("adding applicant: %w", apperr.New(apperr.ErrValidation, "Name is required"))

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "Name is required", apperr.Message(err, "internal error"))
}

func TestMessage_Fallback(t *testing.T) {
	assert.Equal(t, "internal error", apperr.Message(errors.New("disk full"), "internal error"))
}
