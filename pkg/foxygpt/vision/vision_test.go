package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newTestClient builds a client against a stub predict endpoint using the
// static-bearer auth path (no credential exchange in tests).
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.ProjectID = "test-project"
	cfg.BearerToken = "test-token"
	cfg.Endpoint = srv.URL

	c, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestCaption(t *testing.T) {
	var gotAuth string
	var gotReq predictRequest

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"predictions":["a red fox sitting in the snow"]}`))
	})

	caption, err := c.Caption(context.Background(), []byte("fake image bytes"))
	if err != nil {
		t.Fatalf("Caption: %v", err)
	}
	if caption != "a red fox sitting in the snow" {
		t.Fatalf("caption = %q", caption)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if len(gotReq.Instances) != 1 || gotReq.Instances[0].Image.BytesBase64Encoded == "" {
		t.Fatalf("request missing base64 image: %+v", gotReq)
	}
	if gotReq.Parameters.SampleCount != 1 || gotReq.Parameters.Language != "en" {
		t.Fatalf("unexpected parameters: %+v", gotReq.Parameters)
	}
}

func TestCaptionFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"no predictions", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"predictions":[]}`))
		}},
		{"blank prediction", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"predictions":["   "]}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			if _, err := c.Caption(context.Background(), []byte("img")); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestFetchAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.png") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	data, err := c.FetchAttachment(context.Background(), srv.URL+"/cat.png")
	if err != nil {
		t.Fatalf("FetchAttachment: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("got %q", data)
	}

	if _, err := c.FetchAttachment(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Fatal("expected error for 404 attachment")
	}
}

func TestCaptionContent(t *testing.T) {
	got := CaptionContent("a fox")
	if got != `[Image description: "a fox"]` {
		t.Fatalf("CaptionContent = %q", got)
	}

	want := `[Image description: "Vertex AI could not describe this image"]`
	if SentinelContent() != want {
		t.Fatalf("SentinelContent = %q, want %q", SentinelContent(), want)
	}
}
