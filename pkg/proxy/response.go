package proxy

import (
	"encoding/json"
	"net/http"

	"mercator-hq/chatrelay/pkg/proxy/types"
)

// NDJSONContentType is the content type of the streaming binding.
const NDJSONContentType = "application/x-ndjson"

// WriteJSONResponse writes v as a JSON response with the given status.
func WriteJSONResponse(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteErrorResponse writes errResp with its status.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	return WriteJSONResponse(w, errResp.HTTPStatusCode(), errResp)
}

// SetStreamHeaders prepares w for a chunked NDJSON response.
func SetStreamHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", NDJSONContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
