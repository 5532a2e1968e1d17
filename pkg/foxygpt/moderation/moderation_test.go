package moderation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

// newTestClient points a moderation client at a stub HTTP server.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return New(openai.NewClientWithConfig(cfg), "", nil)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantFlagged bool
	}{
		{"clean text", `{"results":[{"flagged":false}]}`, false},
		{"flagged text", `{"results":[{"flagged":true}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tt.body))
			})

			flagged, err := c.Classify(context.Background(), "some message")
			if err != nil {
				t.Fatalf("Classify returned error: %v", err)
			}
			if flagged != tt.wantFlagged {
				t.Fatalf("flagged = %v, want %v", flagged, tt.wantFlagged)
			}
		})
	}
}

func TestClassifyServiceFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})

	if _, err := c.Classify(context.Background(), "some message"); err == nil {
		t.Fatal("expected error when the moderation service fails, got nil")
	}
}

func TestClassifyEmptyResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	})

	if _, err := c.Classify(context.Background(), "some message"); err == nil {
		t.Fatal("expected error on empty result set, got nil")
	}
}
