package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/chatrelay/pkg/cli"
	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/server"
	"mercator-hq/chatrelay/pkg/telemetry/tracing"
)

// reloadDebounce collapses bursts of editor writes into one reload.
const reloadDebounce = 500 * time.Millisecond

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	noWatch       bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the chat relay server",
	Long: `Start the chat relay server with the specified configuration.

The server listens on the configured address and relays chat requests to
the configured model over the unary, streaming and WebSocket routes.

The configuration file is watched and reloaded on change or on SIGHUP.
Model settings, metadata emission, the log level and the token set apply
immediately; listener and route changes need a restart.

Examples:
  # Start with defaults
  chatrelay run

  # Start with custom config
  chatrelay run --config /etc/chatrelay/config.yaml

  # Override listen address
  chatrelay run --listen 0.0.0.0:8080

  # Validate config without starting server
  chatrelay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
}

// applyRunOverrides applies the run flags to cfg and revalidates it.
func applyRunOverrides(cfg *config.Config) error {
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	return config.Validate(cfg)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context(), applyRunOverrides)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to flush traces", "error", err)
		}
	}()

	srv, err := server.New(ctx, cfg, server.WithLogger(logger), server.WithTracer(tracer))
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	printBanner(cmd, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Start(gctx)
	})

	reload := func() error {
		next, err := config.Load(cfgFile, finishConfig(gctx, applyRunOverrides))
		if err != nil {
			return err
		}
		return srv.ApplyConfig(gctx, next)
	}

	if cfgFile != "" && !runFlags.noWatch {
		watcher, err := config.NewFileWatcher(cfgFile, reloadDebounce, logger.Slog())
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watcher.Stop()
		g.Go(func() error {
			return watcher.Watch(gctx, reload)
		})
	}

	hup, stopHup := cli.ReloadSignals()
	defer stopHup()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				slog.Info("received SIGHUP, reloading configuration")
				if err := reload(); err != nil {
					slog.Error("configuration reload failed", "error", err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Chatrelay v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(out, "Configuration: %s\n", cfgFile)
	}
	fmt.Fprintf(out, "✓ Model: %s (%s)\n", cfg.Model.Provider, cfg.Model.ModelID)
	httpScheme, wsScheme := "http", "ws"
	if cfg.Server.TLS.Enabled {
		httpScheme, wsScheme = "https", "wss"
	}
	addr := cfg.Server.ListenAddress
	fmt.Fprintf(out, "✓ Listening on %s\n", addr)
	fmt.Fprintf(out, "✓ Chat: %s://%s%s, stream: %s://%s%s\n",
		httpScheme, addr, server.ChatPath, httpScheme, addr, server.StreamPath)
	if cfg.WebSocket.WebSocketEnabled() {
		fmt.Fprintf(out, "✓ WebSocket: %s://%s%s\n", wsScheme, addr, cfg.WebSocket.Path)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics: %s://%s%s\n", httpScheme, addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	slog.Debug("configuration loaded",
		"auth", cfg.Security.Authentication.Enabled,
		"emit_metadata", cfg.Model.EmitMetadata,
		"tracing", cfg.Telemetry.Tracing.Enabled,
	)
}
