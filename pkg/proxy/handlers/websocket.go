package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/relay"
	"mercator-hq/chatrelay/pkg/telemetry/logging"
	"mercator-hq/chatrelay/pkg/wsgateway"
)

// Route response bodies.
const (
	BodyConnected      = "Connected"
	BodyDisconnected   = "Disconnected"
	BodyProcessed      = "Message processed successfully"
	BodyConnectionGone = "Client connection no longer available"
	BodyInternalError  = "Internal server error"
)

// WebSocketHandler is the WebSocket binding. Every chat message is a fresh
// relay invocation whose chunks are pushed back to the sending connection,
// followed by an end frame once the reply is complete.
type WebSocketHandler struct {
	invoker    ModelInvoker
	delivery   *wsgateway.Delivery
	normalizer *relay.Normalizer
}

// NewWebSocketHandler creates the WebSocket binding over delivery.
func NewWebSocketHandler(invoker ModelInvoker, delivery *wsgateway.Delivery, opts Options) *WebSocketHandler {
	return &WebSocketHandler{
		invoker:    invoker,
		delivery:   delivery,
		normalizer: opts.normalizer(TransportWebSocket),
	}
}

// HandleRoute implements wsgateway.RouteHandler.
func (h *WebSocketHandler) HandleRoute(ctx context.Context, ev wsgateway.RouteEvent) wsgateway.RouteResponse {
	ctx = logging.WithConnectionID(ctx, ev.ConnectionID)

	switch ev.RouteKey {
	case wsgateway.RouteConnect:
		slog.InfoContext(ctx, "client connected", "connection_id", ev.ConnectionID, "identity", ev.Identity)
		return wsgateway.RouteResponse{StatusCode: http.StatusOK, Body: BodyConnected}
	case wsgateway.RouteDisconnect:
		slog.InfoContext(ctx, "client disconnected", "connection_id", ev.ConnectionID)
		return wsgateway.RouteResponse{StatusCode: http.StatusOK, Body: BodyDisconnected}
	}

	endpoint := ev.Endpoint()
	req, parseErr := relay.ParseChatRequest(ev.Body)
	if parseErr == nil && req.Action != "" && req.Action != relay.ActionSendMessage {
		slog.DebugContext(ctx, "unrecognized action handled as chat", "action", req.Action)
	}

	open := func(ctx context.Context) (providers.EventStream, error) {
		if parseErr != nil {
			return nil, parseErr
		}
		return h.invoker.ConverseStream(ctx, req.Messages)
	}

	sink := &pushSink{delivery: h.delivery, endpoint: endpoint, connectionID: ev.ConnectionID}
	res, err := h.normalizer.Relay(ctx, open, sink)

	switch {
	case err == nil:
		if err := h.delivery.Send(ctx, endpoint, ev.ConnectionID, relay.EndFrame().Bytes()); err != nil {
			if wsgateway.IsGone(err) {
				slog.InfoContext(ctx, "client went away before the end frame", "connection_id", ev.ConnectionID)
				return wsgateway.RouteResponse{StatusCode: http.StatusGone, Body: BodyConnectionGone}
			}
			slog.WarnContext(ctx, "failed to push end frame", "connection_id", ev.ConnectionID, "error", err)
		}
		return wsgateway.RouteResponse{StatusCode: http.StatusOK, Body: BodyProcessed}

	case res.Outcome == relay.OutcomeDeliveryError && wsgateway.IsGone(err):
		slog.InfoContext(ctx, "client went away during streaming",
			"connection_id", ev.ConnectionID,
			"chunks_sent", res.Chunks,
		)
		return wsgateway.RouteResponse{StatusCode: http.StatusGone, Body: BodyConnectionGone}

	case res.Outcome == relay.OutcomeDeliveryError:
		slog.ErrorContext(ctx, "push delivery failed",
			"connection_id", ev.ConnectionID,
			"chunks_sent", res.Chunks,
			"error", err,
		)
		frame := relay.ErrorFrame(relay.GenericErrorMessage).Bytes()
		if serr := h.delivery.Send(ctx, endpoint, ev.ConnectionID, frame); serr != nil {
			slog.WarnContext(ctx, "failed to push error frame", "connection_id", ev.ConnectionID, "error", serr)
		}
		return wsgateway.RouteResponse{StatusCode: http.StatusInternalServerError, Body: BodyInternalError}

	default:
		// The normalizer already pushed the error frame through the sink.
		return wsgateway.RouteResponse{StatusCode: http.StatusInternalServerError, Body: BodyInternalError}
	}
}

// pushSink maps wire events to WebSocket frames and pushes them to one
// connection. Error events carry only the generic message.
type pushSink struct {
	delivery     *wsgateway.Delivery
	endpoint     string
	connectionID string
}

func (s *pushSink) Send(ctx context.Context, ev relay.Event) error {
	var frame relay.Frame
	switch ev.(type) {
	case relay.ErrorEvent:
		frame = relay.ErrorFrame(relay.GenericErrorMessage)
	default:
		f, err := relay.EventFrame(ev)
		if err != nil {
			return err
		}
		frame = f
	}
	return s.delivery.Send(ctx, s.endpoint, s.connectionID, frame.Bytes())
}

func (s *pushSink) Close() error {
	return nil
}
