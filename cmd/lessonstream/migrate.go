// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ManuGH/lessonstream/internal/config"
	"github.com/ManuGH/lessonstream/internal/daemon"
	"github.com/ManuGH/lessonstream/internal/persistence/migrations"
	"github.com/ManuGH/lessonstream/internal/persistence/sqlite"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var verify, full bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			db, err := daemon.OpenDB(cfg.Store)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			v, err := migrations.Up(ctx, db, cfg.Store.Driver)
			if err != nil {
				return err
			}
			cmd.Printf("schema version %d (%s)\n", v, cfg.Store.Driver)

			if !verify {
				return nil
			}
			if cfg.Store.Driver != config.StoreDriverSQLite {
				cmd.Println("integrity check skipped: only supported for sqlite")
				return nil
			}
			problems, err := sqlite.VerifyIntegrity(ctx, db, full)
			if err != nil {
				return err
			}
			if len(problems) > 0 {
				return fmt.Errorf("integrity check failed: %w", errors.New(strings.Join(problems, "; ")))
			}
			cmd.Println("integrity check ok")
			return nil
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "run an integrity check after migrating (sqlite)")
	cmd.Flags().BoolVar(&full, "full", false, "use the full integrity_check instead of quick_check")
	return cmd
}
