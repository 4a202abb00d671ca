package wsgateway

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxPushBytes bounds one pushed message.
const maxPushBytes = 128 * 1024

// ManagementHandler serves the push API:
//
//	POST   /@connections/{id}  send the request body to the connection
//	GET    /@connections/{id}  connection state
//	DELETE /@connections/{id}  close the connection
//
// Unknown or disconnected connections answer 410 Gone.
type ManagementHandler struct {
	gateway *Gateway
	pusher  *LocalPusher
	token   string
}

// NewManagementHandler creates the push API for gateway. When token is
// non-empty, requests must carry it as a bearer token.
func NewManagementHandler(gateway *Gateway, token string) *ManagementHandler {
	return &ManagementHandler{
		gateway: gateway,
		pusher:  NewLocalPusher(gateway.Registry(), gateway.cfg.WriteTimeout),
		token:   token,
	}
}

// ServeHTTP implements http.Handler.
func (h *ManagementHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Forbidden"})
		return
	}

	idx := strings.Index(r.URL.EscapedPath(), ConnectionsPath)
	if idx < 0 {
		http.NotFound(w, r)
		return
	}
	id, err := url.PathUnescape(r.URL.EscapedPath()[idx+len(ConnectionsPath):])
	if err != nil || id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid connection id"})
		return
	}

	switch r.Method {
	case http.MethodPost:
		data, err := io.ReadAll(io.LimitReader(r.Body, maxPushBytes+1))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Failed to read body"})
			return
		}
		if len(data) > maxPushBytes {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"message": "Payload too large"})
			return
		}
		if err := h.pusher.PostToConnection(r.Context(), "", id, data); err != nil {
			h.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodGet:
		info, err := h.pusher.GetConnection(r.Context(), "", id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, info)

	case http.MethodDelete:
		if !h.gateway.Disconnect(id, "closed by server") {
			h.writeError(w, &GoneError{ConnectionID: id})
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "Method not allowed"})
	}
}

func (h *ManagementHandler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

func (h *ManagementHandler) writeError(w http.ResponseWriter, err error) {
	if IsGone(err) {
		writeJSON(w, http.StatusGone, map[string]string{"message": "GoneException"})
		return
	}
	h.gateway.logger.Warn("push failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
