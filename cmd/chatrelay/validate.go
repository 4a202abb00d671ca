package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/chatrelay/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and CHATRELAY_* environment
overrides, and report every validation error.

Examples:
  chatrelay validate --config config.yaml
  CHATRELAY_MODEL_PROVIDER=openai chatrelay validate -c config.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		var verr config.ValidationError
		if errors.As(err, &verr) {
			for _, fe := range verr.Errors {
				fmt.Fprintf(out, "✗ %s\n", fe.Error())
			}
		}
		return err
	}

	fmt.Fprintln(out, "✓ Configuration valid")
	if verbose {
		fmt.Fprintf(out, "  server:    %s\n", cfg.Server.ListenAddress)
		fmt.Fprintf(out, "  model:     %s (%s)\n", cfg.Model.Provider, cfg.Model.ModelID)
		fmt.Fprintf(out, "  websocket: %t (%s pusher)\n", cfg.WebSocket.WebSocketEnabled(), cfg.WebSocket.Pusher)
		fmt.Fprintf(out, "  client:    %s, history %s\n", cfg.Client.Endpoint, cfg.Client.History.Backend)
		fmt.Fprintf(out, "  auth:      %t\n", cfg.Security.Authentication.Enabled)
	}
	return nil
}
