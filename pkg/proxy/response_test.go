package proxy

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/proxy/types"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "request error keeps its message",
			err:        &RequestError{Message: "bad body", Code: types.CodeInvalidJSON, Status: http.StatusBadRequest},
			wantStatus: http.StatusBadRequest,
			wantMsg:    "bad body",
		},
		{
			name:       "model error is generic",
			err:        &providers.ModelInvocationError{Provider: "scripted", ModelID: "m", Cause: errors.New("secret detail")},
			wantStatus: http.StatusInternalServerError,
			wantMsg:    types.InternalServerErrorMessage,
		},
		{
			name:       "unknown error is generic",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    types.InternalServerErrorMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)
			if resp.HTTPStatusCode() != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.HTTPStatusCode(), tt.wantStatus)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteErrorResponse(w, types.NewServerError()); err != nil {
		t.Fatalf("WriteErrorResponse failed: %v", err)
	}

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["message"] != types.InternalServerErrorMessage {
		t.Errorf("message = %v", body["message"])
	}
	if _, ok := body["Status"]; ok {
		t.Error("status must not be serialized")
	}
}

func TestSetStreamHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	SetStreamHeaders(w)
	if ct := w.Header().Get("Content-Type"); ct != NDJSONContentType {
		t.Errorf("Content-Type = %q, want %q", ct, NDJSONContentType)
	}
}
