package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// RemoteClassifier calls an external model server.
//
// Request:  POST {"text": "..."}
// Response: {"label": "scam", "confidence": 0.97} or {"logits": [..]}
type RemoteClassifier struct {
	url    string
	client *http.Client
}

type remoteRequest struct {
	Text string `json:"text"`
}

type remoteResponse struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Logits     []float32 `json:"logits"`
}

// NewRemote creates a remote classifier with a strict timeout.
func NewRemote(url string, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RemoteClassifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Predict posts text to the model server. Any failure is logged and
// reported as the unknown signal.
func (c *RemoteClassifier) Predict(ctx context.Context, text string) domain.MLSignal {
	sig, err := c.predict(ctx, text)
	if err != nil {
		slog.Warn("ml remote prediction failed", "url", c.url, "error", err)
		return domain.UnknownMLSignal()
	}
	return sig
}

// Available reports true; reachability is checked per request.
func (c *RemoteClassifier) Available() bool { return true }

func (c *RemoteClassifier) predict(ctx context.Context, text string) (domain.MLSignal, error) {
	body, err := json.Marshal(remoteRequest{Text: text})
	if err != nil {
		return domain.MLSignal{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return domain.MLSignal{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.MLSignal{}, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.MLSignal{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.MLSignal{}, fmt.Errorf("decode response: %w", err)
	}

	if len(out.Logits) > 0 {
		return FromLogits(out.Logits), nil
	}
	switch out.Label {
	case domain.MLLabelSafe, domain.MLLabelScam:
	default:
		return domain.MLSignal{}, fmt.Errorf("unknown label %q", out.Label)
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return domain.MLSignal{}, fmt.Errorf("confidence out of range: %v", out.Confidence)
	}
	return domain.MLSignal{Label: out.Label, Confidence: out.Confidence}, nil
}
