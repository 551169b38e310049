// Package ml provides the optional scam text classifier capability.
//
// A Classifier never fails from the caller's point of view: any load,
// transport or inference problem yields domain.UnknownMLSignal().
package ml

import (
	"context"
	"log/slog"
	"math"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Classifier labels text as safe or scam with a confidence.
type Classifier interface {
	Predict(ctx context.Context, text string) domain.MLSignal
	Available() bool
}

// Unavailable is the placeholder used when no model is configured.
type Unavailable struct{}

// Predict always returns the unknown signal.
func (Unavailable) Predict(context.Context, string) domain.MLSignal {
	return domain.UnknownMLSignal()
}

// Available reports false.
func (Unavailable) Available() bool { return false }

// New resolves the classifier once at startup. A local model directory wins
// over a remote URL; failures are logged and degrade to Unavailable.
func New(cfg domain.MLConfig) Classifier {
	switch {
	case cfg.ModelDir != "":
		c, err := LoadONNX(cfg.ModelDir, cfg.SharedLibraryPath, cfg.MaxSequenceLength)
		if err != nil {
			slog.Warn("ml model unavailable", "model_dir", cfg.ModelDir, "error", err)
			return Unavailable{}
		}
		slog.Info("ml model loaded", "model_dir", cfg.ModelDir, "seq_len", c.seqLen)
		return c
	case cfg.URL != "":
		slog.Info("ml remote classifier configured", "url", cfg.URL)
		return NewRemote(cfg.URL, cfg.Timeout)
	default:
		slog.Info("ml classifier not configured")
		return Unavailable{}
	}
}

// FromLogits converts raw two-class logits into a signal. Index 0 is the
// safe class; any other argmax is scam. Confidence is the winning probability.
func FromLogits(logits []float32) domain.MLSignal {
	if len(logits) == 0 {
		return domain.UnknownMLSignal()
	}
	probs := softmax(logits)

	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}

	label := domain.MLLabelScam
	if best == 0 {
		label = domain.MLLabelSafe
	}
	return domain.MLSignal{Label: label, Confidence: probs[best]}
}

func softmax(logits []float32) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		maxLogit = math.Max(maxLogit, float64(l))
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
