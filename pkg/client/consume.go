package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"

	"mercator-hq/chatrelay/pkg/relay"
)

// Summary describes a consumed stream.
type Summary struct {
	Chunks    int
	Malformed int
	Metadata  *relay.Metadata
}

// Consume reads newline-delimited wire events from r until EOF. Lines may
// arrive split across any number of reads. Malformed or unknown lines are
// logged and skipped. An error event stops reading and is returned as
// *StreamError; lines after it are never decoded.
func Consume(ctx context.Context, r io.Reader, onChunk ChunkFunc) (Summary, error) {
	var sum Summary
	br := bufio.NewReader(r)

	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			if err := consumeLine(ctx, line, onChunk, &sum); err != nil {
				return sum, err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return sum, nil
			}
			return sum, readErr
		}
	}
}

func consumeLine(ctx context.Context, line []byte, onChunk ChunkFunc, sum *Summary) error {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil
	}

	ev, err := relay.Decode(line)
	if err != nil {
		sum.Malformed++
		slog.WarnContext(ctx, "skipping undecodable stream line", "error", err)
		return nil
	}

	switch e := ev.(type) {
	case relay.Headers:
		slog.DebugContext(ctx, "stream headers received", "headers", len(e.Headers))
	case relay.Chunk:
		sum.Chunks++
		return onChunk(e.Content)
	case relay.Metadata:
		sum.Metadata = &e
	case relay.ErrorEvent:
		slog.ErrorContext(ctx, "stream error", "kind", e.Kind, "message", e.Message)
		return &StreamError{Kind: e.Kind, Message: e.Message}
	}
	return nil
}
