// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"

	"github.com/ManuGH/lessonstream/internal/config"
	"github.com/ManuGH/lessonstream/internal/log"
	"github.com/ManuGH/lessonstream/internal/version"
	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "lessonstream",
		Short:         "Stream lesson videos from object storage",
		Long:          "lessonstream resolves lesson topics to stored videos, signs short lived URLs and proxies byte ranges to players.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newSignCmd(opts),
		newTokenCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig loads the merged configuration and points the global logger at it.
func (o *rootOptions) loadConfig() (config.AppConfig, error) {
	cfg, err := config.NewLoader(o.configPath, version.Version).Load()
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	log.Configure(log.Config{
		Level:   cfg.Log.Level,
		Service: cfg.Log.Service,
		Version: version.Version,
		File:    cfg.Log.File,
	})
	logger := log.WithComponent("config")
	logger.Debug().
		Interface("config", config.MaskSecrets(cfg)).
		Msg("configuration loaded")
	return cfg, nil
}
