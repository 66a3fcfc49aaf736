// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 UE-1 Contributors

package main

import (
	"fmt"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/UniversoExpandido2018/UE-1/internal/config"
	"github.com/UniversoExpandido2018/UE-1/internal/store"
)

// Migrator is the subset of store.Migrator the migrate command uses.
type Migrator interface {
	Up() error
	Down() error
	Status() (store.Status, error)
	Close() error
}

// MigratorFactory opens a Migrator for a database URL.
type MigratorFactory func(databaseURL string) (Migrator, error)

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// NewMigrateCmd creates the migrate subcommand. A nil factory uses the
// embedded golang-migrate migrations.
func NewMigrateCmd(factory MigratorFactory) *cobra.Command {
	if factory == nil {
		factory = defaultMigratorFactory
	}
	var confirm bool

	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Manage the login database schema",
		Long:      `Apply (up, the default), roll back (down), or report (status) the login database migrations.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runMigrate(cmd, factory, cfg.Database.URL, action, confirm)
		},
	}
	cmd.Flags().String("database-url", "", "PostgreSQL URL (default: $"+config.DatabaseURLEnv+")")
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm rolling back every migration")
	return cmd
}

func runMigrate(cmd *cobra.Command, factory MigratorFactory, databaseURL, action string, confirm bool) (err error) {
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database URL is required (set database.url or %s)", config.DatabaseURLEnv)
	}
	if action == "down" && !confirm {
		return oops.Code("MIGRATION_CONFIRM_REQUIRED").Errorf("down drops every login table; rerun with --yes")
	}

	m, err := factory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	switch action {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations applied")
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
		cmd.Println("All migrations rolled back")
	}
	return printStatus(cmd, m)
}

func printStatus(cmd *cobra.Command, m Migrator) error {
	st, err := m.Status()
	if err != nil {
		return err
	}

	cmd.Printf("Schema version: %d", st.Version)
	if st.Dirty {
		cmd.Print(" (dirty)")
	}
	cmd.Println()
	for _, v := range st.Applied {
		cmd.Printf("  [x] %s\n", migrationLabel(v))
	}
	for _, v := range st.Pending {
		cmd.Printf("  [ ] %s\n", migrationLabel(v))
	}
	return nil
}

func migrationLabel(v uint) string {
	name, err := store.MigrationName(v)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", v)
	}
	return name
}
