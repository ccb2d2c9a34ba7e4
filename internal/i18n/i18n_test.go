// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package i18n_test

import (
	"context"
	"testing"

	"codeberg.org/ipo-allotment/server/internal/i18n"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestInit(t *testing.T) {
	require.NoError(t, i18n.Init())
	require.NoError(t, i18n.Init())
}

func TestT(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	assert.Equal(t, "IPO Allotment Tracker", i18n.T(ctx, "app_name"))
}

func TestT_German(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.German)

	assert.Equal(t, "IPO-Zuteilungsverwaltung", i18n.T(ctx, "app_name"))
}

func TestT_UnknownKey(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	result := i18n.T(ctx, "unknown_key_that_does_not_exist")
	assert.Equal(t, "unknown_key_that_does_not_exist", result)
}

func TestT_NoLocaleContext(t *testing.T) {
	result := i18n.T(context.Background(), "email_registration_subject")

	assert.Equal(t, "Your registration code", result)
}

func TestTData(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.English)

	body := i18n.TData(ctx, "email_registration_body", map[string]any{
		"Username": "alice",
		"Code":     "123456",
		"Minutes":  10,
	})

	assert.Contains(t, body, "Hello alice")
	assert.Contains(t, body, "123456")
	assert.Contains(t, body, "10 minutes")
}

func TestTData_German(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.German)

	body := i18n.TData(ctx, "email_temporary_password_body", map[string]any{
		"Username": "alice",
		"Password": "Xy7!abcdEFGH",
	})

	assert.Contains(t, body, "Hallo alice")
	assert.Contains(t, body, "Xy7!abcdEFGH")
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		expected       language.Tag
		acceptLanguage string
	}{
		{language.English, "en"},
		{language.English, "en-US"},
		{language.German, "de"},
		{language.German, "de-DE"},
		{language.German, "de-AT"},
		{language.English, "fr"},
		{language.English, ""},
		{language.German, "de, en;q=0.9"},
		{language.English, "en, de;q=0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.acceptLanguage, func(t *testing.T) {
			tag := i18n.MatchLanguage(tt.acceptLanguage)
			assert.Equal(t, tt.expected.String()[:2], tag.String()[:2])
		})
	}
}

func TestWithLocale(t *testing.T) {
	ctx := i18n.WithLocale(context.Background(), language.German)

	assert.Equal(t, "de", i18n.GetLocale(ctx))
}

func TestGetLocale_Default(t *testing.T) {
	assert.Equal(t, "en", i18n.GetLocale(context.Background()))
}
