// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"errors"
	"time"

	"github.com/ManuGH/lessonstream/internal/auth"
	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var req auth.DevTokenRequest

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a development JWT signed with the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return errors.New("auth.jwtSecret is not configured")
			}
			token, err := auth.IssueDevToken(cfg.Auth.JWTSecret, req, time.Now())
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Role, "role", "student", "role claim")
	cmd.Flags().StringVar(&req.Username, "username", "", "username claim (default: test_<role>)")
	cmd.Flags().StringVar(&req.LabID, "labid", "", "lab id claim (default: lab_123)")
	cmd.Flags().DurationVar(&req.TTL, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
