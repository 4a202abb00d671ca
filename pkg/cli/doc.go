/*
Package cli provides command-line helpers shared by the chatrelay commands.

Output Formatting:

History and status commands render through a Formatter selected by the
--format flag. Tabular data implements Table and renders as aligned text
columns or CSV; anything else is printed with %v or encoded as JSON:

	format, err := cli.ParseFormat(flagValue)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(os.Stdout, table)

Typing Indicator:

The chat REPL shows an Indicator while a reply is pending:

	ind := cli.NewIndicator(os.Stderr, "thinking")
	ind.Start()
	defer ind.Stop()

Signal Handling:

SignalContext cancels on SIGINT/SIGTERM, and ReloadSignals delivers SIGHUP
for configuration reloads:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Errors:

ConfigError and CommandError wrap failures; ExitCode maps them to the
process exit status.
*/
package cli
