package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// HTTPClient talks to a sidecar inference server over plain HTTP. The server
// readiness probe runs once per process and the outcome is reused: an engine
// that fails its probe stays degraded (empty results) instead of adding a
// timeout to every chunk.
type HTTPClient struct {
	baseURL string
	client  *http.Client

	readyOnce sync.Once
	ready     bool
}

// NewHTTPClient creates a client for the engine server at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) available(ctx context.Context) bool {
	c.readyOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
		if err != nil {
			log.Printf("[engine] probe request build failed for %s: %v", c.baseURL, err)
			return
		}
		resp, err := c.client.Do(req)
		if err != nil {
			log.Printf("[engine] %s unreachable, running degraded: %v", c.baseURL, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			log.Printf("[engine] %s probe returned %d, running degraded", c.baseURL, resp.StatusCode)
			return
		}
		c.ready = true
	})
	return c.ready
}

func (c *HTTPClient) post(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build engine request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("engine returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode engine response: %w", err)
	}
	return nil
}

// HTTPFaceEngine implements FaceEngine against a detection sidecar.
type HTTPFaceEngine struct {
	client *HTTPClient
}

// NewHTTPFaceEngine creates a face engine client.
func NewHTTPFaceEngine(baseURL string, timeout time.Duration) *HTTPFaceEngine {
	return &HTTPFaceEngine{client: NewHTTPClient(baseURL, timeout)}
}

// DetectFaces posts the frame to /detect and returns the detections. An
// unavailable engine yields no detections and no error.
func (e *HTTPFaceEngine) DetectFaces(ctx context.Context, frame []byte) ([]FaceDetection, error) {
	if !e.client.available(ctx) {
		return nil, nil
	}

	var result struct {
		Faces []FaceDetection `json:"faces"`
	}
	if err := e.client.post(ctx, "/detect", frame, &result); err != nil {
		return nil, err
	}
	return result.Faces, nil
}

// HTTPSpeechEngine implements SpeechEngine against a transcription sidecar.
type HTTPSpeechEngine struct {
	client *HTTPClient
}

// NewHTTPSpeechEngine creates a speech engine client.
func NewHTTPSpeechEngine(baseURL string, timeout time.Duration) *HTTPSpeechEngine {
	return &HTTPSpeechEngine{client: NewHTTPClient(baseURL, timeout)}
}

// Transcribe posts the audio fragment to /transcribe. An unavailable engine
// yields an empty transcription and no error.
func (e *HTTPSpeechEngine) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if !e.client.available(ctx) {
		return "", nil
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := e.client.post(ctx, "/transcribe", audio, &result); err != nil {
		return "", err
	}
	return result.Text, nil
}
