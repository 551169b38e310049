// Package domain defines the core interfaces and types for ScamSniper.
package domain

// MaxRiskScore is the ceiling for every score the system returns.
// A perfect 100 is never reported.
const MaxRiskScore = 95

// RiskSignal is the (score, reasons) pair produced by one detector for one input.
type RiskSignal struct {
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// EmptySignal returns a zero-score signal with no reasons.
func EmptySignal() RiskSignal {
	return RiskSignal{Score: 0, Reasons: []string{}}
}

// ML labels produced by the external classifier.
const (
	MLLabelSafe    = "safe"
	MLLabelScam    = "scam"
	MLLabelUnknown = "unknown"
)

// MLSignal is the output of the ML classifier capability.
type MLSignal struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// UnknownMLSignal is the placeholder used when the classifier is unavailable or fails.
func UnknownMLSignal() MLSignal {
	return MLSignal{Label: MLLabelUnknown, Confidence: 0.0}
}

// IsScam reports whether the classifier labelled the input as a scam.
func (m MLSignal) IsScam() bool {
	return m.Label == MLLabelScam
}

// ClampScore bounds an integer score to [0, MaxRiskScore].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// ClampScoreFloat bounds a fractional score to [0, MaxRiskScore].
func ClampScoreFloat(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}
