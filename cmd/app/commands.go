// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"

	"codeberg.org/ipo-allotment/server/internal/config"
	"codeberg.org/ipo-allotment/server/internal/database"
	"codeberg.org/ipo-allotment/server/internal/repository"
	"codeberg.org/ipo-allotment/server/internal/services/account"
	"codeberg.org/ipo-allotment/server/internal/services/email"
	"codeberg.org/ipo-allotment/server/internal/services/otp"
	"github.com/urfave/cli/v3"
)

func migrateAction(direction string) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		cfg := config.NewFromCLI(cmd)

		db, dialect, err := database.Connect(cfg.Database.DSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()

		switch direction {
		case "up":
			err = database.RunMigrations(db.DB, dialect)
		case "down":
			err = database.MigrateDown(db.DB, dialect)
		case "reset":
			err = database.MigrateReset(db.DB, dialect)
		}
		if err != nil {
			return fmt.Errorf("migrate %s failed: %w", direction, err)
		}

		version, err := database.MigrationVersion(db.DB, dialect)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.Root().Writer, "schema version %d (%s)\n", version, dialect)
		return err
	}
}

func resetPasswordAction(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)

	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	accounts := account.NewService(repository.New(db), otp.NewMemoryStore(cfg.OTP.Length), email.Disabled{}, account.Options{
		BcryptCost: cfg.Auth.BcryptCost,
	})

	username := cmd.String("username")
	created, err := accounts.ResetPassword(ctx, username, cmd.String("password"))
	if err != nil {
		return err
	}

	verb := "reset password of"
	if created {
		verb = "created"
	}
	_, err = fmt.Fprintf(cmd.Root().Writer, "%s user %q\n", verb, username)
	return err
}
