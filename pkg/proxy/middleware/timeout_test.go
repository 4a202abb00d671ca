package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("passes through fast handlers", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test", "yes")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte("done"))
		})

		wrapped := TimeoutMiddleware(time.Second)(handler)

		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusCreated)
		}
		if w.Body.String() != "done" {
			t.Errorf("Body = %q, want done", w.Body.String())
		}
		if w.Header().Get("X-Test") != "yes" {
			t.Error("handler headers should be copied")
		}
	})

	t.Run("sends 504 when the deadline passes", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-release:
			}
			_, _ = w.Write([]byte("late"))
		})

		wrapped := TimeoutMiddleware(20 * time.Millisecond)(handler)

		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)

		if w.Code != http.StatusGatewayTimeout {
			t.Errorf("Status code = %v, want %v", w.Code, http.StatusGatewayTimeout)
		}
		if strings.Contains(w.Body.String(), "late") {
			t.Errorf("late handler output leaked: %q", w.Body.String())
		}
	})
}
