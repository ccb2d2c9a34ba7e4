// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"codeberg.org/ipo-allotment/server/internal/config"
	"codeberg.org/ipo-allotment/server/internal/server"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "app",
		Usage:   "IPO allotment tracker server",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Action: server.Run,
			},
			{
				Name:  "migrate",
				Usage: "Manage the database schema",
				Commands: []*cli.Command{
					{Name: "up", Usage: "Apply all pending migrations", Action: migrateAction("up")},
					{Name: "down", Usage: "Roll back the last migration", Action: migrateAction("down")},
					{Name: "reset", Usage: "Roll back all migrations", Action: migrateAction("reset")},
					{Name: "status", Usage: "Print the current schema version", Action: migrateAction("status")},
				},
			},
			{
				Name:  "reset-password",
				Usage: "Create a user or reset its password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "New password", Required: true},
				},
				Action: resetPasswordAction,
			},
		},
	}
}
