// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"codeberg.org/ipo-allotment/server/internal/database"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &out
	require.NoError(t, cmd.Run(context.Background(), append([]string{"app"}, args...)))
	return out.String()
}

func TestResetPasswordCommand(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "app.db")

	out := run(t, "--database-dsn", dsn, "--bcrypt-cost", "4", "reset-password", "--username", "unnayan", "--password", "first-pass")
	assert.Contains(t, out, `created user "unnayan"`)

	out = run(t, "--database-dsn", dsn, "--bcrypt-cost", "4", "reset-password", "-u", "unnayan", "-p", "second-pass")
	assert.Contains(t, out, `reset password of user "unnayan"`)

	db, err := database.Open(dsn)
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()
	user, err := repository.New(db).GetUserByUsername(context.Background(), "unnayan")
	require.NoError(t, err)
	assert.True(t, user.Verified)
	assert.Nil(t, user.SessionToken)
	assert.True(t, password.Verify("second-pass", user.PasswordHash))
	assert.False(t, password.Verify("first-pass", user.PasswordHash))
}

func TestMigrateCommands(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "app.db")

	assert.Contains(t, run(t, "--database-dsn", dsn, "migrate", "up"), "schema version 2 (sqlite)")
	assert.Contains(t, run(t, "--database-dsn", dsn, "migrate", "down"), "schema version 1 (sqlite)")
	assert.Contains(t, run(t, "--database-dsn", dsn, "migrate", "status"), "schema version 1 (sqlite)")
	assert.Contains(t, run(t, "--database-dsn", dsn, "migrate", "reset"), "schema version 0 (sqlite)")
}
