// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/ManuGH/lessonstream/internal/daemon"
	"github.com/ManuGH/lessonstream/internal/resolver"
	"github.com/spf13/cobra"
)

func newSignCmd(opts *rootOptions) *cobra.Command {
	var (
		topicID string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Resolve a topic and print a signed URL for its video",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if topicID == "" {
				return errors.New("--topic is required")
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.Signing.IssueTTL
			}

			ctx := cmd.Context()
			store, err := daemon.OpenStore(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer store.Close()

			issuer, err := daemon.NewIssuer(ctx, cfg)
			if err != nil {
				return err
			}

			src, err := resolver.New(store, cfg.Storage.DefaultBucket).Resolve(ctx, topicID)
			if err != nil {
				return err
			}
			signed, err := issuer.Issue(ctx, src.Locator, ttl)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				TopicID   string `json:"topicId"`
				Origin    string `json:"origin"`
				URL       string `json:"url"`
				ExpiresIn *int   `json:"expiresIn"`
			}{topicID, string(src.Origin), signed.URL, signed.ExpiresIn})
		},
	}
	cmd.Flags().StringVar(&topicID, "topic", "", "topic id to resolve")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "validity of the signed URL (default: signing.issueTTL)")
	return cmd
}
