package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/proxy"
	"mercator-hq/chatrelay/pkg/proxy/middleware"
	"mercator-hq/chatrelay/pkg/proxy/types"
	"mercator-hq/chatrelay/pkg/relay"
)

// Transport labels used in logs and metrics.
const (
	TransportUnary     = "unary"
	TransportStream    = "stream"
	TransportWebSocket = "websocket"
)

// ChatHandler is the unary binding: one complete model response as JSON.
type ChatHandler struct {
	invoker ModelInvoker
	opts    Options
	cors    *middleware.CORSConfig
}

// NewChatHandler creates the unary binding.
func NewChatHandler(invoker ModelInvoker, opts Options) *ChatHandler {
	return &ChatHandler{invoker: invoker, opts: opts, cors: opts.cors()}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if answerPreflight(w, r, h.cors) {
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	setCORSHeaders(w, h.cors)

	req, err := proxy.ParseChatRequest(r)
	if err != nil {
		slog.WarnContext(ctx, "invalid chat request", "request_id", requestID, "error", err)
		h.writeError(ctx, w, proxy.HandleError(err))
		return
	}

	slog.InfoContext(ctx, "processing chat request",
		"request_id", requestID,
		"messages", len(req.Messages),
	)

	start := time.Now()
	resp, err := h.invoker.Converse(ctx, req.Messages)
	latency := time.Since(start)
	if err != nil {
		h.finish(relay.OutcomeModelError, latency)
		slog.ErrorContext(ctx, "model invocation failed",
			"request_id", requestID,
			"error", err,
			"latency_ms", latency.Milliseconds(),
		)
		h.writeError(ctx, w, types.NewServerError())
		return
	}
	h.finish(relay.OutcomeComplete, latency)

	slog.InfoContext(ctx, "chat request completed",
		"request_id", requestID,
		"stop_reason", resp.StopReason,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"latency_ms", latency.Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, resp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}
}

func (h *ChatHandler) finish(outcome relay.Outcome, d time.Duration) {
	if h.opts.Observer != nil {
		h.opts.Observer.RelayFinished(TransportUnary, outcome, d)
	}
}

func (h *ChatHandler) writeError(ctx context.Context, w http.ResponseWriter, errResp *types.ErrorResponse) {
	if err := proxy.WriteErrorResponse(w, errResp); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StreamHandler is the streaming HTTP binding: an NDJSON response whose
// first line is a headers event, followed by one line per wire event.
type StreamHandler struct {
	invoker    ModelInvoker
	normalizer *relay.Normalizer
	cors       *middleware.CORSConfig
}

// NewStreamHandler creates the streaming binding.
func NewStreamHandler(invoker ModelInvoker, opts Options) *StreamHandler {
	return &StreamHandler{
		invoker:    invoker,
		normalizer: opts.normalizer(TransportStream),
		cors:       opts.cors(),
	}
}

// ServeHTTP implements http.Handler.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if answerPreflight(w, r, h.cors) {
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	setCORSHeaders(w, h.cors)

	req, err := proxy.ParseChatRequest(r)
	if err != nil {
		slog.WarnContext(ctx, "invalid chat request", "request_id", requestID, "error", err)
		if werr := proxy.WriteErrorResponse(w, proxy.HandleError(err)); werr != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", werr)
		}
		return
	}

	proxy.SetStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	sink := relay.NewLineSink(w, nil)
	if err := sink.Send(ctx, relay.Headers{Headers: h.cors.Headers()}); err != nil {
		slog.WarnContext(ctx, "client went away before streaming", "request_id", requestID, "error", err)
		_ = sink.Close()
		return
	}

	open := func(ctx context.Context) (providers.EventStream, error) {
		return h.invoker.ConverseStream(ctx, req.Messages)
	}
	res, err := h.normalizer.Relay(ctx, open, sink)

	var sinkErr *relay.SinkError
	switch {
	case err == nil:
	case errors.As(err, &sinkErr) && res.Outcome == relay.OutcomeDeliveryError:
		slog.WarnContext(ctx, "client disconnected during streaming",
			"request_id", requestID,
			"chunks_sent", res.Chunks,
			"error", err,
		)
	default:
		slog.ErrorContext(ctx, "streaming chat request failed",
			"request_id", requestID,
			"chunks_sent", res.Chunks,
			"error", err,
		)
	}
}
