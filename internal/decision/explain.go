package decision

import (
	"math"
	"strconv"
	"strings"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Explain builds the text-channel explanation: the ML reason when the model
// says scam, then heuristic reasons, then URL reasons, deduplicated.
func Explain(ml domain.MLSignal, heuristic, url []string) []string {
	var head []string
	if reason, ok := MLReason(ml); ok {
		head = []string{reason}
	}
	return Merge(head, heuristic, url)
}

// MLReason formats the high-confidence reason for a scam prediction.
func MLReason(ml domain.MLSignal) (string, bool) {
	if !ml.IsScam() {
		return "", false
	}
	return "AI Model High Confidence (" + formatPercent(ml.Confidence, 2) + "%)", true
}

// EmailMLReason formats the email-channel model reason.
func EmailMLReason(ml domain.MLSignal) string {
	return "AI Model Detection (" + formatPercent(ml.Confidence, 1) + "%)"
}

// Merge concatenates reason groups and drops exact duplicates, keeping the
// first occurrence. Detectors never deduplicate their own output; this is the
// only place reasons are collapsed.
func Merge(groups ...[]string) []string {
	out := []string{}
	seen := make(map[string]struct{})
	for _, g := range groups {
		for _, r := range g {
			if _, dup := seen[r]; dup {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// formatPercent renders confidence*100 rounded to places decimals, always
// with a fractional part ("97.0", "97.53").
func formatPercent(confidence float64, places int) string {
	scale := math.Pow(10, float64(places))
	v := math.Round(confidence*100*scale) / scale
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
