package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/chatrelay/pkg/cli"
	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/security/secrets"
	"mercator-hq/chatrelay/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "chatrelay",
	Short: "Chatrelay - streaming chat relay for hosted language models",
	Long: `Chatrelay relays chat conversations between clients and a hosted
language model, incrementally, over three transports:
  - POST /chat          unary JSON reply
  - POST /chat/stream   NDJSON event stream
  - /ws                 managed WebSocket connections with pushed frames

The chat command is a terminal client that keeps a persistent transcript.

Without --config, built-in defaults and CHATRELAY_* environment variables
are used.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration named by --config, resolves its
// secret references, runs steps and publishes it as the process
// configuration.
func loadConfig(ctx context.Context, steps ...config.Finisher) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, finishConfig(ctx, steps...))
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}

func finishConfig(ctx context.Context, steps ...config.Finisher) config.Finisher {
	return func(cfg *config.Config) error {
		if err := resolveSecrets(ctx, cfg); err != nil {
			return err
		}
		for _, step := range steps {
			if err := step(cfg); err != nil {
				return err
			}
		}
		return nil
	}
}

// resolveSecrets replaces ${secret:name} references in the credential
// fields of cfg.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	m, err := secrets.FromConfig(&cfg.Security.Secrets)
	if err != nil {
		return err
	}
	return m.ResolveFields(ctx, cfg.SecretFields())
}

// newLogger builds the process logger from cfg. --verbose forces debug.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Telemetry.Logging
	level := lc.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:          level,
		Format:         lc.Format,
		AddSource:      lc.AddSource,
		RedactSecrets:  lc.RedactionEnabled(),
		RedactPatterns: lc.RedactPatterns,
	})
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	logger.SetDefault()
	return logger, nil
}
