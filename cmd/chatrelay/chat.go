package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"mercator-hq/chatrelay/pkg/cli"
	"mercator-hq/chatrelay/pkg/client"
	"mercator-hq/chatrelay/pkg/transcript"
)

var chatFlags struct {
	endpoint string
	token    string
	history  string
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the relay from the terminal",
	Long: `Open an interactive chat session against a running relay.

Replies are printed as they stream in. The transcript is persisted in the
configured history store and restored on the next start.

Commands:
  /clear   clear the transcript
  /exit    leave the chat (also Ctrl+D)

Examples:
  # Chat over the streaming endpoint
  chatrelay chat

  # Chat over the WebSocket route with a token
  chatrelay chat --endpoint websocket --token "$TOKEN"`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVarP(&chatFlags.endpoint, "endpoint", "e", "", "override endpoint (stream, unary, websocket)")
	chatCmd.Flags().StringVar(&chatFlags.token, "token", "", "override the static identity token")
	chatCmd.Flags().StringVar(&chatFlags.history, "history", "", "override history backend (memory, sqlite, redis)")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	if _, err := newLogger(cfg); err != nil {
		return err
	}

	ccfg := cfg.Client
	if chatFlags.endpoint != "" {
		ccfg.Endpoint = chatFlags.endpoint
	}
	if chatFlags.token != "" {
		ccfg.Credentials.IDToken = chatFlags.token
	}
	if chatFlags.history != "" {
		ccfg.History.Backend = chatFlags.history
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "/exit",
	})
	if err != nil {
		return cli.NewCommandError("chat", err)
	}
	defer rl.Close()

	printer := newTurnPrinter(rl.Stdout(), cli.NewIndicator(rl.Stderr(), "thinking"))

	ctx := cmd.Context()
	sess, closeHistory, err := client.Open(ctx, &ccfg, client.Options{OnChange: printer.OnChange})
	if err != nil {
		return cli.NewCommandError("chat", err)
	}
	defer closeHistory()

	printer.Replay(sess.Turns())
	fmt.Fprintf(rl.Stdout(), "Connected via %s. Type /exit to leave.\n", ccfg.Endpoint)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return cli.NewCommandError("chat", err)
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			if err := sess.Clear(ctx); err != nil {
				fmt.Fprintf(rl.Stderr(), "failed to clear history: %v\n", err)
				continue
			}
			fmt.Fprintln(rl.Stdout(), "History cleared.")
			continue
		}

		printer.Begin()
		err = sess.Submit(ctx, line)
		printer.End()
		if err != nil {
			// The transcript already shows the failure entry.
			slog.DebugContext(ctx, "submission failed", "error", err)
		}
	}
}

// turnPrinter renders bot turns as they change. Text is printed
// incrementally, so a streamed reply grows on one line.
type turnPrinter struct {
	w   io.Writer
	ind *cli.Indicator

	mu      sync.Mutex
	id      int
	printed int
	open    bool
}

func newTurnPrinter(w io.Writer, ind *cli.Indicator) *turnPrinter {
	return &turnPrinter{w: w, ind: ind}
}

// Replay prints a restored transcript.
func (p *turnPrinter) Replay(turns []transcript.Turn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range turns {
		fmt.Fprintf(p.w, "%s> %s\n", t.Sender, t.Text)
	}
}

// Begin starts the indicator for a submission.
func (p *turnPrinter) Begin() {
	if p.ind != nil {
		p.ind.Start()
	}
}

// End stops the indicator and terminates an unfinished line.
func (p *turnPrinter) End() {
	if p.ind != nil {
		p.ind.Stop()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLineLocked()
}

// OnChange is the transcript observer.
func (p *turnPrinter) OnChange(t transcript.Turn) {
	if t.Sender != transcript.SenderBot {
		return
	}
	if p.ind != nil {
		p.ind.Stop()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if t.ID != p.id {
		p.closeLineLocked()
		p.id = t.ID
		p.printed = 0
		fmt.Fprint(p.w, "bot> ")
		p.open = true
	}
	if len(t.Text) > p.printed {
		fmt.Fprint(p.w, t.Text[p.printed:])
		p.printed = len(t.Text)
	}
	if t.Status == transcript.StatusComplete || t.Status == transcript.StatusErrored {
		p.closeLineLocked()
	}
}

func (p *turnPrinter) closeLineLocked() {
	if p.open {
		fmt.Fprintln(p.w)
		p.open = false
	}
}
