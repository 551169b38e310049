// Package ocr provides the optional image text extraction capability.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Extractor pulls readable text out of an image. An empty string means no
// text was found or extraction failed.
type Extractor interface {
	Extract(ctx context.Context, image []byte) string
	Available() bool
}

// Unavailable is the placeholder used when no OCR service is configured.
type Unavailable struct{}

// Extract always returns "".
func (Unavailable) Extract(context.Context, []byte) string { return "" }

// Available reports false.
func (Unavailable) Available() bool { return false }

// New resolves the extractor once at startup.
func New(cfg domain.OCRConfig) Extractor {
	if cfg.URL == "" {
		slog.Info("ocr service not configured")
		return Unavailable{}
	}
	slog.Info("ocr service configured", "url", cfg.URL)
	return NewRemote(cfg.URL, cfg.Timeout)
}

// RemoteExtractor posts the image as multipart field "file" and expects
// {"text": "..."} back.
type RemoteExtractor struct {
	url    string
	client *http.Client
}

// NewRemote creates a remote extractor.
func NewRemote(url string, timeout time.Duration) *RemoteExtractor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteExtractor{url: url, client: &http.Client{Timeout: timeout}}
}

// Extract returns the trimmed text, or "" on any failure.
func (e *RemoteExtractor) Extract(ctx context.Context, image []byte) string {
	text, err := e.extract(ctx, image)
	if err != nil {
		slog.Warn("ocr extraction failed", "url", e.url, "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// Available reports true; reachability is checked per request.
func (e *RemoteExtractor) Available() bool { return true }

func (e *RemoteExtractor) extract(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "upload")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(image); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return out.Text, nil
}
