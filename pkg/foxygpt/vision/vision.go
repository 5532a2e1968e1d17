// Package vision implements the perception adapter: it downloads an image
// attachment and converts it into a text caption via the Vertex AI
// imagetext:predict endpoint, so the rest of the pipeline only ever sees
// text turns.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ServiceName is used in logs and in the sentinel caption committed when
// the captioning call fails.
const ServiceName = "Vertex AI"

// maxAttachmentBytes caps attachment downloads (Discord allows files far
// larger than anything worth captioning).
const maxAttachmentBytes = 20 << 20

// Config holds perception adapter configuration.
type Config struct {
	// Enabled turns image captioning on. When off, image attachments are
	// ignored entirely.
	Enabled bool `yaml:"enabled"`

	// ProjectID is the Google Cloud project hosting the imagetext model.
	ProjectID string `yaml:"project_id"`

	// Location is the Vertex AI region (default us-central1).
	Location string `yaml:"location"`

	// BearerToken authenticates requests directly when set. When empty the
	// client exchanges Application Default Credentials for tokens instead.
	BearerToken string `yaml:"bearer_token"`

	// SampleCount is the number of caption candidates to request.
	SampleCount int `yaml:"sample_count"`

	// Language is the caption language code.
	Language string `yaml:"language"`

	// Endpoint overrides the prediction URL (regional endpoints, tests).
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Location:    "us-central1",
		SampleCount: 1,
		Language:    "en",
	}
}

// Client calls the Vertex AI captioning model.
type Client struct {
	cfg        Config
	endpoint   string
	httpClient *http.Client
	tokens     oauth2.TokenSource // nil when a static bearer token is configured
	logger     *slog.Logger
}

// New creates a perception client. Without a static bearer token it resolves
// Application Default Credentials, which fails fast at startup rather than
// on the first image.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("vision: project_id is required (set GOOGLE_PROJECT_ID or vision.project_id)")
	}
	if cfg.Location == "" {
		cfg.Location = "us-central1"
	}
	if cfg.SampleCount <= 0 {
		cfg.SampleCount = 1
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}

	c := &Client{
		cfg:        cfg,
		endpoint:   cfg.Endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With("component", "vision"),
	}
	if c.endpoint == "" {
		c.endpoint = fmt.Sprintf(
			"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/imagetext:predict",
			cfg.Location, cfg.ProjectID, cfg.Location,
		)
	}

	if cfg.BearerToken == "" {
		ts, err := google.DefaultTokenSource(ctx, "https://www.googleapis.com/auth/cloud-platform")
		if err != nil {
			return nil, fmt.Errorf("vision: resolving Google credentials: %w", err)
		}
		c.tokens = ts
	}

	return c, nil
}

// predictRequest is the imagetext:predict wire format.
type predictRequest struct {
	Instances  []predictInstance `json:"instances"`
	Parameters predictParameters `json:"parameters"`
}

type predictInstance struct {
	Image predictImage `json:"image"`
}

type predictImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
}

type predictParameters struct {
	SampleCount int    `json:"sampleCount"`
	Language    string `json:"language"`
}

type predictResponse struct {
	Predictions []string `json:"predictions"`
}

// Caption describes an image. A non-nil error here means the caption call
// failed; the dispatcher degrades to the sentinel caption and continues.
func (c *Client) Caption(ctx context.Context, image []byte) (string, error) {
	body, err := json.Marshal(predictRequest{
		Instances: []predictInstance{
			{Image: predictImage{BytesBase64Encoded: base64.StdEncoding.EncodeToString(image)}},
		},
		Parameters: predictParameters{
			SampleCount: c.cfg.SampleCount,
			Language:    c.cfg.Language,
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("vision: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision: predict call: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("vision: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vision: predict returned %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed predictResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("vision: decoding response: %w", err)
	}
	if len(parsed.Predictions) == 0 || strings.TrimSpace(parsed.Predictions[0]) == "" {
		return "", fmt.Errorf("vision: no prediction returned")
	}

	caption := strings.TrimSpace(parsed.Predictions[0])
	c.logger.Debug("captioned image", "caption", caption)
	return caption, nil
}

// authorize attaches either the static bearer token or a token from the
// Google credential exchange.
func (c *Client) authorize(req *http.Request) error {
	if c.cfg.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.BearerToken)
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("vision: fetching access token: %w", err)
	}
	tok.SetAuthHeader(req)
	return nil
}

// FetchAttachment downloads attachment bytes. This is a separate fallible
// step from captioning: a fetch failure aborts the whole pass, while a
// caption failure only degrades it.
func (c *Client) FetchAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("vision: building fetch request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision: fetching attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision: attachment fetch returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentBytes))
	if err != nil {
		return nil, fmt.Errorf("vision: reading attachment: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("vision: attachment is empty")
	}
	return data, nil
}

// CaptionContent wraps a caption in the fixed delimiter pattern so the
// generator can tell model-authored perception from user-authored text.
func CaptionContent(caption string) string {
	return fmt.Sprintf("[Image description: %q]", caption)
}

// SentinelContent is the fixed fallback committed when captioning fails.
func SentinelContent() string {
	return CaptionContent(ServiceName + " could not describe this image")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
