package decision_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/opensource-finance/scamsniper/internal/decision"
	"github.com/opensource-finance/scamsniper/internal/domain"
	"github.com/opensource-finance/scamsniper/internal/heuristics"
	"github.com/opensource-finance/scamsniper/internal/reputation"
)

func signal(score int, reasons ...string) domain.RiskSignal {
	return domain.RiskSignal{Score: score, Reasons: reasons}
}

func TestClassifyText_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, domain.LabelScam},
		{80, domain.LabelScam},
		{79.99, domain.LabelSuspicious},
		{79, domain.LabelSuspicious},
		{40, domain.LabelSuspicious},
		{39, domain.LabelSafe},
		{0, domain.LabelSafe},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, decision.ClassifyText(tt.score), "score %v", tt.score)
	}
}

func TestClassifyEmail_Boundaries(t *testing.T) {
	assert.Equal(t, domain.EmailLabelSafe, decision.ClassifyEmail(39))
	assert.Equal(t, domain.EmailLabelSuspicious, decision.ClassifyEmail(40))
	assert.Equal(t, domain.EmailLabelSuspicious, decision.ClassifyEmail(79))
	assert.Equal(t, domain.EmailLabelScam, decision.ClassifyEmail(80))
}

func TestClassifyTransaction(t *testing.T) {
	assert.Equal(t, domain.TxLabelLegitimate, decision.ClassifyTransaction(39))
	assert.Equal(t, domain.TxLabelSuspicious, decision.ClassifyTransaction(40))
	assert.Equal(t, domain.TxLabelSuspicious, decision.ClassifyTransaction(95))
}

func TestAggregateText(t *testing.T) {
	t.Run("heuristic only", func(t *testing.T) {
		score := decision.AggregateText(decision.TextInput{Heuristic: signal(35, "a", "b"), ML: domain.UnknownMLSignal()})
		assert.Equal(t, 35.0, score)
	})

	t.Run("ml confidence counts regardless of label", func(t *testing.T) {
		score := decision.AggregateText(decision.TextInput{
			Heuristic: signal(10, "a"),
			ML:        domain.MLSignal{Label: domain.MLLabelSafe, Confidence: 0.5},
		})
		assert.Equal(t, 25.0, score)
	})

	t.Run("url and many signals bonus", func(t *testing.T) {
		url := signal(20, "Suspicious TLD: .xyz")
		score := decision.AggregateText(decision.TextInput{
			Heuristic: signal(30, "a", "b", "c"),
			URL:       &url,
			ML:        domain.UnknownMLSignal(),
		})
		assert.Equal(t, 65.0, score)
	})

	t.Run("unrounded", func(t *testing.T) {
		score := decision.AggregateText(decision.TextInput{
			Heuristic: signal(50, "a"),
			ML:        domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.9999},
		})
		assert.InDelta(t, 79.997, score, 1e-9)
	})

	t.Run("clamped", func(t *testing.T) {
		score := decision.AggregateText(decision.TextInput{
			Heuristic: signal(95, "a", "b", "c"),
			ML:        domain.MLSignal{Label: domain.MLLabelScam, Confidence: 1},
		})
		assert.Equal(t, 95.0, score)
	})
}

func TestDecideText_TierUsesUnroundedScore(t *testing.T) {
	for _, conf := range []float64{0.9999, 0.99985} {
		res := decision.DecideText(decision.TextInput{
			Heuristic: signal(50, "a"),
			ML:        domain.MLSignal{Label: domain.MLLabelScam, Confidence: conf},
		})
		assert.Equal(t, domain.LabelSuspicious, res.Status, "confidence %v", conf)
		assert.Equal(t, 80.0, res.Score, "displayed score is rounded")
	}

	res := decision.DecideText(decision.TextInput{
		ML: domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.123456},
	})
	assert.Equal(t, 3.7, res.Score)
}

func TestDecideOCR_TierUsesUnroundedScore(t *testing.T) {
	res := decision.DecideOCR(decision.OCRInput{
		Heuristic: signal(30, "OTP Request"),
		ML:        domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.9999},
	})

	assert.Equal(t, domain.LabelSuspicious, res.Status)
	assert.Equal(t, 80.0, res.Score)
}

func TestDecideText_EndToEnd(t *testing.T) {
	text := "Your account will be locked in 24 hours, click here to verify your account now"
	res := decision.DecideText(decision.TextInput{
		Heuristic: heuristics.NewEngine().Score(text),
		ML:        domain.UnknownMLSignal(),
	})

	assert.Equal(t, domain.LabelScam, res.Status)
	assert.Equal(t, 95.0, res.Score)
	assert.Contains(t, res.Reasons, "Verify Account")
	assert.Contains(t, res.Reasons, "Click Link")
}

func TestDecideText_URLExample(t *testing.T) {
	url := reputation.NewAnalyzer().Score("http://paypa1-verify.xyz/login")
	res := decision.DecideText(decision.TextInput{
		Heuristic: heuristics.NewEngine().Score(""),
		URL:       &url,
		ML:        domain.UnknownMLSignal(),
	})

	assert.Equal(t, 95.0, res.Score)
	assert.Equal(t, domain.LabelScam, res.Status)
	assert.Contains(t, res.Reasons, "Homograph attack: Paypa1")
	assert.Contains(t, res.Reasons, "Suspicious TLD: .xyz")
	assert.Contains(t, res.Reasons, "Fake Login")
}

func TestDecideText_MLReasonFirstAndDeduplicated(t *testing.T) {
	url := signal(30, "Fake Login", "Credential Harvesting")
	res := decision.DecideText(decision.TextInput{
		Heuristic: signal(20, "Credential Harvesting"),
		URL:       &url,
		ML:        domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.9753},
	})

	assert.Equal(t, []string{
		"AI Model High Confidence (97.53%)",
		"Credential Harvesting",
		"Fake Login",
	}, res.Reasons)
}

func TestAggregateEmail(t *testing.T) {
	in := decision.EmailInput{
		Auth:    signal(40, "DMARC validation failed"),
		Sender:  signal(0),
		Subject: signal(0),
		Body:    signal(10, "Money/Financial"),
		ML:      domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.876},
		URLs:    []domain.RiskSignal{signal(5), signal(0)},
	}
	// 40 + 10 + int(26.28) + 5
	assert.Equal(t, 81, decision.AggregateEmail(in))

	in.ML.Label = domain.MLLabelSafe
	assert.Equal(t, 55, decision.AggregateEmail(in))

	in.Attachments = []string{"a.exe", "b.zip"}
	assert.Equal(t, 95, decision.AggregateEmail(in))
}

func TestDecideEmail(t *testing.T) {
	res := decision.DecideEmail(decision.EmailInput{
		Auth:        signal(0, "DMARC validation passed"),
		Sender:      signal(0),
		Subject:     signal(10, "Money/Financial"),
		Body:        signal(10, "Money/Financial"),
		ML:          domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.876},
		Attachments: []string{"invoice.html"},
	})

	assert.Equal(t, 76, res.RiskScore)
	assert.Equal(t, domain.EmailLabelSuspicious, res.Label)
	assert.Equal(t, []string{
		"DMARC validation passed",
		"Money/Financial",
		"AI Model Detection (87.6%)",
		"Suspicious attachment: invoice.html",
	}, res.Reasons)
}

func TestDecideOCR(t *testing.T) {
	res := decision.DecideOCR(decision.OCRInput{
		Heuristic: signal(20, "OTP Request"),
		ML:        domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.5},
	})

	assert.Equal(t, 45.0, res.Score)
	assert.Equal(t, domain.LabelSuspicious, res.Status)
	assert.Equal(t, domain.DetectionGeneralScam, res.DetectionType)
	assert.Equal(t, []string{"AI Model High Confidence (50.0%)", "OTP Request"}, res.Reasons)
}

func TestDecideOCRTransaction(t *testing.T) {
	res := decision.DecideOCRTransaction(domain.TransactionAssessment{RiskScore: 85, Reasons: []string{"x"}})

	assert.Equal(t, domain.LabelScam, res.Status)
	assert.Equal(t, 85.0, res.Score)
	assert.Equal(t, domain.DetectionTransactionFraud, res.DetectionType)
}

func TestDecideTransactionImage(t *testing.T) {
	long := strings.Repeat("é", 600)
	res := decision.DecideTransactionImage(domain.TransactionAssessment{
		RiskScore: 40,
		Reasons:   []string{"Missing sender", "Missing sender"},
	}, long)

	assert.Equal(t, domain.TxLabelSuspicious, res.Status)
	assert.Equal(t, 500, utf8.RuneCountInString(res.ExtractedText))
	assert.Equal(t, []string{"Missing sender"}, res.Reasons)
}

func TestMLReason(t *testing.T) {
	reason, ok := decision.MLReason(domain.MLSignal{Label: domain.MLLabelScam, Confidence: 0.97})
	assert.True(t, ok)
	assert.Equal(t, "AI Model High Confidence (97.0%)", reason)

	_, ok = decision.MLReason(domain.MLSignal{Label: domain.MLLabelSafe, Confidence: 0.99})
	assert.False(t, ok)

	_, ok = decision.MLReason(domain.UnknownMLSignal())
	assert.False(t, ok)
}

func TestMerge(t *testing.T) {
	merged := decision.Merge([]string{"a", "b"}, nil, []string{"b", "c", "a"})

	assert.Equal(t, []string{"a", "b", "c"}, merged)
	assert.NotNil(t, decision.Merge())
	assert.Empty(t, decision.Merge())
}
