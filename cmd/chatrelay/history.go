package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/chatrelay/pkg/cli"
	"mercator-hq/chatrelay/pkg/client"
	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/transcript"
)

var historyFlags struct {
	format string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect or clear the persisted chat transcript",
	Long: `Inspect or clear the transcript kept by the chat command in the
configured history store (client.history).`,
}

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted transcript",
	Long: `Print the persisted transcript.

Examples:
  chatrelay history show
  chatrelay history show --format json
  chatrelay history show --format csv > transcript.csv`,
	RunE: showHistory,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the persisted transcript",
	RunE:  clearHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyClearCmd)

	historyShowCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "text", "output format: text, json, csv")
}

// transcriptTable renders turns as rows; as JSON it is the turn array.
type transcriptTable []transcript.Turn

func (t transcriptTable) Header() []string {
	return []string{"ID", "SENDER", "STATUS", "TEXT"}
}

func (t transcriptTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, turn := range t {
		rows = append(rows, []string{strconv.Itoa(turn.ID), string(turn.Sender), string(turn.Status), turn.Text})
	}
	return rows
}

// openTranscript opens and loads the configured transcript. The returned
// function closes the history store.
func openTranscript(cmd *cobra.Command, cfg *config.Config) (*transcript.Store, func() error, error) {
	kv, err := client.OpenHistory(cmd.Context(), &cfg.Client.History)
	if err != nil {
		return nil, nil, err
	}
	store := transcript.New(kv, transcript.Options{Key: cfg.Client.History.Key})
	if err := store.Load(cmd.Context()); err != nil {
		kv.Close()
		return nil, nil, err
	}
	return store, kv.Close, nil
}

func showHistory(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(historyFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	store, closeFn, err := openTranscript(cmd, cfg)
	if err != nil {
		return cli.NewCommandError("history show", err)
	}
	defer closeFn()

	turns := transcriptTable(store.Turns())
	if turns == nil {
		turns = transcriptTable{}
	}
	if len(turns) == 0 && format == cli.FormatText {
		fmt.Fprintln(cmd.OutOrStdout(), "No chat history.")
		return nil
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), turns)
}

func clearHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	store, closeFn, err := openTranscript(cmd, cfg)
	if err != nil {
		return cli.NewCommandError("history clear", err)
	}
	defer closeFn()

	n := store.Len()
	if err := store.Clear(cmd.Context()); err != nil {
		return cli.NewCommandError("history clear", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d turns\n", n)
	return nil
}
