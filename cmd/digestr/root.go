package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/thomaskoefod/digestr/internal/app"
	"github.com/thomaskoefod/digestr/internal/config"
	"github.com/thomaskoefod/digestr/internal/logger"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "digestr",
		Short: "Personalized tech digests from RSS feeds",
		Long: `digestr ingests RSS feeds, embeds and summarizes every new article,
and mails each subscriber the posts closest to their interests.

Run "digestr serve" for the scheduler and HTTP API, or the individual
commands for one-off runs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultConfigPath(), "config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format override (json, console)")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newDigestCmd(opts),
		newRegisterCmd(opts),
		newUnsubscribeCmd(opts),
		newPreviewCmd(opts),
		newInitConfigCmd(opts),
	)
	return cmd
}

// loadConfig reads the config file and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	return cfg, nil
}

// openApp loads configuration, builds the logger and wires the application.
func (o *rootOptions) openApp(ctx context.Context) (*app.App, zerolog.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, log, err
	}
	return a, log, nil
}
