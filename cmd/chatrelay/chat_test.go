package main

import (
	"bytes"
	"testing"

	"mercator-hq/chatrelay/pkg/transcript"
)

func TestTurnPrinterStreams(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newTurnPrinter(buf, nil)

	p.OnChange(transcript.Turn{ID: 1, Sender: transcript.SenderUser, Text: "Hi"})
	p.OnChange(transcript.Turn{ID: 2, Sender: transcript.SenderBot, Text: "Hel", Status: transcript.StatusStreaming})
	p.OnChange(transcript.Turn{ID: 2, Sender: transcript.SenderBot, Text: "Hello!", Status: transcript.StatusStreaming})
	p.OnChange(transcript.Turn{ID: 2, Sender: transcript.SenderBot, Text: "Hello!", Status: transcript.StatusComplete})
	p.End()

	if got, want := buf.String(), "bot> Hello!\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTurnPrinterFailureAfterPartial(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newTurnPrinter(buf, nil)

	p.OnChange(transcript.Turn{ID: 2, Sender: transcript.SenderBot, Text: "Hel", Status: transcript.StatusStreaming})
	p.OnChange(transcript.Turn{ID: 3, Sender: transcript.SenderBot, Text: transcript.ApologyText, Status: transcript.StatusErrored})
	p.End()

	want := "bot> Hel\nbot> " + transcript.ApologyText + "\n"
	if got := buf.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTurnPrinterEndClosesLine(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newTurnPrinter(buf, nil)

	p.OnChange(transcript.Turn{ID: 2, Sender: transcript.SenderBot, Text: "partial", Status: transcript.StatusStreaming})
	p.End()
	p.End()

	if got, want := buf.String(), "bot> partial\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTurnPrinterReplay(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newTurnPrinter(buf, nil)

	p.Replay([]transcript.Turn{
		{ID: 1, Sender: transcript.SenderUser, Text: "Hi"},
		{ID: 2, Sender: transcript.SenderBot, Text: "Hello!"},
	})

	if got, want := buf.String(), "user> Hi\nbot> Hello!\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}
