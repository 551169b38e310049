// Package decision aggregates detector signals into a bounded score, maps the
// score to a channel-specific tier and builds the outward-facing explanation.
//
// Each channel keeps its own formula and tier convention: text, URL and OCR
// use ">= 80 scam, >= 40 suspicious", email uses "< 40 Safe, < 80 Suspicious",
// and transactions have two tiers split at 40.
package decision

import (
	"math"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Channel weights and thresholds.
const (
	TextMLWeight        = 30.0
	OCRMLWeight         = 50.0
	EmailMLWeight       = 30.0
	ManySignalsBonus    = 15
	ManySignalsMin      = 3
	ScamThreshold       = 80
	SuspiciousThreshold = 40
)

// TextInput holds the signals of the text+URL channel.
type TextInput struct {
	Heuristic domain.RiskSignal
	URL       *domain.RiskSignal // nil when no URL was supplied
	ML        domain.MLSignal
}

// EmailInput holds the signals of the email channel.
type EmailInput struct {
	Auth        domain.RiskSignal
	Sender      domain.RiskSignal
	Subject     domain.RiskSignal
	Body        domain.RiskSignal
	ML          domain.MLSignal
	URLs        []domain.RiskSignal
	Attachments []string // suspicious attachment names only
}

// OCRInput holds the signals of the general OCR path.
type OCRInput struct {
	Heuristic domain.RiskSignal
	ML        domain.MLSignal
}

// AggregateText computes heuristic + confidence*30 + url, plus the
// many-signals bonus, clamped to [0, 95]. The result is unrounded; tiers are
// chosen on it and only the displayed score is rounded.
func AggregateText(in TextInput) float64 {
	total := float64(in.Heuristic.Score) + in.ML.Confidence*TextMLWeight
	if in.URL != nil {
		total += float64(in.URL.Score)
	}
	if len(in.Heuristic.Reasons) >= ManySignalsMin {
		total += ManySignalsBonus
	}
	return domain.ClampScoreFloat(total)
}

// AggregateEmail sums every email sub-score. The ML term only counts when the
// classifier says scam and is truncated to an integer.
func AggregateEmail(in EmailInput) int {
	total := in.Auth.Score + in.Sender.Score + in.Subject.Score + in.Body.Score
	if in.ML.IsScam() {
		total += int(in.ML.Confidence * EmailMLWeight)
	}
	for _, u := range in.URLs {
		total += u.Score
	}
	total += len(in.Attachments) * 30
	return domain.ClampScore(total)
}

// AggregateOCR computes heuristic + confidence*50 clamped to [0, 95], unrounded.
func AggregateOCR(in OCRInput) float64 {
	total := float64(in.Heuristic.Score) + in.ML.Confidence*OCRMLWeight
	return domain.ClampScoreFloat(total)
}

// ClassifyText maps a text, URL or OCR score to safe/suspicious/scam.
func ClassifyText(score float64) string {
	switch {
	case score >= ScamThreshold:
		return domain.LabelScam
	case score >= SuspiciousThreshold:
		return domain.LabelSuspicious
	default:
		return domain.LabelSafe
	}
}

// ClassifyEmail maps an email score to Safe/Suspicious/Scam.
func ClassifyEmail(score int) string {
	switch {
	case score < SuspiciousThreshold:
		return domain.EmailLabelSafe
	case score < ScamThreshold:
		return domain.EmailLabelSuspicious
	default:
		return domain.EmailLabelScam
	}
}

// ClassifyTransaction maps a transaction score to legitimate/suspicious.
func ClassifyTransaction(score int) string {
	if score >= SuspiciousThreshold {
		return domain.TxLabelSuspicious
	}
	return domain.TxLabelLegitimate
}

// DecideText runs the text+URL channel end to end.
func DecideText(in TextInput) domain.ClassificationResult {
	score := AggregateText(in)
	var urlReasons []string
	if in.URL != nil {
		urlReasons = in.URL.Reasons
	}
	return domain.ClassificationResult{
		Status:  ClassifyText(score),
		Score:   round2(score),
		Reasons: Explain(in.ML, in.Heuristic.Reasons, urlReasons),
	}
}

// DecideEmail runs the email channel end to end.
func DecideEmail(in EmailInput) domain.EmailResult {
	score := AggregateEmail(in)

	groups := [][]string{in.Auth.Reasons, in.Sender.Reasons, in.Subject.Reasons, in.Body.Reasons}
	if in.ML.IsScam() {
		groups = append(groups, []string{EmailMLReason(in.ML)})
	}
	for _, u := range in.URLs {
		groups = append(groups, u.Reasons)
	}
	for _, name := range in.Attachments {
		groups = append(groups, []string{"Suspicious attachment: " + name})
	}

	return domain.EmailResult{
		RiskScore: score,
		Label:     ClassifyEmail(score),
		Reasons:   Merge(groups...),
	}
}

// DecideOCR runs the general OCR path.
func DecideOCR(in OCRInput) domain.OCRResult {
	score := AggregateOCR(in)
	return domain.OCRResult{
		Status:        ClassifyText(score),
		Score:         round2(score),
		Reasons:       Explain(in.ML, in.Heuristic.Reasons, nil),
		DetectionType: domain.DetectionGeneralScam,
	}
}

// DecideOCRTransaction classifies a transaction-like OCR image on the
// three-tier text scale.
func DecideOCRTransaction(a domain.TransactionAssessment) domain.OCRResult {
	score := float64(a.RiskScore)
	return domain.OCRResult{
		Status:        ClassifyText(score),
		Score:         score,
		Reasons:       Merge(a.Reasons),
		DetectionType: domain.DetectionTransactionFraud,
	}
}

// DecideTransaction converts a validator assessment into a response.
func DecideTransaction(a domain.TransactionAssessment) domain.TransactionResult {
	return domain.TransactionResult{
		Status:    ClassifyTransaction(a.RiskScore),
		RiskScore: a.RiskScore,
		Reasons:   Merge(a.Reasons),
	}
}

// MaxExtractedText bounds the OCR text echoed in image responses.
const MaxExtractedText = 500

// DecideTransactionImage converts a cross-checked image assessment into a response.
func DecideTransactionImage(a domain.TransactionAssessment, extracted string) domain.TransactionImageResult {
	return domain.TransactionImageResult{
		Status:        ClassifyTransaction(a.RiskScore),
		RiskScore:     a.RiskScore,
		ExtractedText: truncateRunes(extracted, MaxExtractedText),
		Reasons:       Merge(a.Reasons),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
