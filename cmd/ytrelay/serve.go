// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/ytrelay/internal/config"
	"github.com/ManuGH/ytrelay/internal/daemon"
	xglog "github.com/ManuGH/ytrelay/internal/log"
	"github.com/ManuGH/ytrelay/internal/version"
)

type serveOptions struct {
	configPath string
	envFile    string
	listen     string
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", os.Getenv("YTRELAY_CONFIG"), "path to config file (YAML)")
	f.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before env overrides (missing is fine)")
	f.StringVar(&opts.listen, "listen", "", "override the listen address, e.g. :3001")
	return cmd
}

func loadConfig(opts serveOptions) (config.AppConfig, error) {
	loader := config.NewLoader(strings.TrimSpace(opts.configPath), version.Version)
	if opts.envFile != "" {
		loader = loader.WithEnvFile(opts.envFile)
	}
	cfg, err := loader.Load()
	if err != nil {
		return cfg, err
	}
	if opts.listen != "" {
		cfg.Server.ListenAddr = opts.listen
		if err := config.Validate(cfg); err != nil {
			return cfg, fmt.Errorf("config validation failed: %w", err)
		}
	}
	return cfg, nil
}

func runServe(parent context.Context, opts serveOptions) error {
	// Safe defaults until the config is known.
	xglog.Configure(xglog.Config{Level: "info", Service: "ytrelay"})

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "ytrelay",
	})
	logger := xglog.WithComponent("main")

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := daemon.WaitForShutdown(parent)
	defer stop()

	rt, err := daemon.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	if err := rt.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("relay stopped with error")
		return err
	}
	logger.Info().Msg("relay stopped")
	return nil
}
