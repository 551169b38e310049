package transaction

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

type weightedToken struct {
	token  string
	weight int
}

// firstMatchTable contributes at most one hit: the earliest token found.
type firstMatchTable struct {
	tokens []weightedToken
	format string
}

func (t firstMatchTable) scan(text string) (int, string, bool) {
	for _, tok := range t.tokens {
		if strings.Contains(text, tok.token) {
			return tok.weight, fmt.Sprintf(t.format, tok.token, tok.weight), true
		}
	}
	return 0, "", false
}

var editingArtifacts = firstMatchTable{
	format: "Image editing artifact detected: '%s' (+%d points)",
	tokens: []weightedToken{
		{"photoshop", 50},
		{"gimp", 50},
		{"edited image", 45},
		{"manipulated", 60},
		{"layer", 40},
		{"undo", 35},
		{"crop", 30},
		{"blur", 30},
	},
}

var manipulationClaims = firstMatchTable{
	format: "Explicit fraud claim detected: '%s' (+%d points)",
	tokens: []weightedToken{
		{"this image has been manipulated", 70},
		{"image has been modified", 65},
		{"fake transaction", 75},
		{"not a real transaction", 70},
		{"photoshopped", 60},
	},
}

var suspiciousPhrases = firstMatchTable{
	format: "Suspicious phrase in image: '%s' (+%d points)",
	tokens: []weightedToken{
		{"this is a test", 50},
		{"fake", 55},
		{"demo", 50},
		{"sample", 45},
		{"screenshot only", 45},
		{"not real", 60},
		{"edited", 45},
		{"for demonstration", 50},
	},
}

// Currency codes as printed on receipts.
var currencyCodes = regexp.MustCompile(`USD|EUR|GBP|INR|AUD|CAD`)

const (
	formattingWeight = 20
	currencyWeight   = 25
)

// ReasonFormatting is recorded when line lengths suggest pasted content.
const ReasonFormatting = "Inconsistent text formatting in image (possible copy-paste) (+20 points)"

// ImageAnalyzer scores OCR text of a transaction screenshot for signs of
// manipulation. It is safe for concurrent use.
type ImageAnalyzer struct{}

// NewImageAnalyzer returns an analyzer over the built-in tables.
func NewImageAnalyzer() *ImageAnalyzer {
	return &ImageAnalyzer{}
}

// Analyze scans the three keyword tables, then the formatting and
// multi-currency checks.
func (a *ImageAnalyzer) Analyze(text string) domain.TransactionAssessment {
	score := 0
	reasons := []string{}
	lower := strings.ToLower(text)

	for _, table := range []firstMatchTable{editingArtifacts, manipulationClaims, suspiciousPhrases} {
		if weight, reason, ok := table.scan(lower); ok {
			score += weight
			reasons = append(reasons, reason)
		}
	}

	if InconsistentFormatting(text) {
		score += formattingWeight
		reasons = append(reasons, ReasonFormatting)
	}

	if n := len(currencyCodes.FindAllStringIndex(text, -1)); n > 1 {
		score += currencyWeight
		reasons = append(reasons, fmt.Sprintf("Multiple currencies detected in image (%d) (+%d points)", n, currencyWeight))
	}

	return assess(score, reasons)
}

// InconsistentFormatting reports whether text has more than three non-blank
// lines and one of them is over twice the average length.
func InconsistentFormatting(text string) bool {
	var lengths []int
	total := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n := utf8.RuneCountInString(line)
		lengths = append(lengths, n)
		total += n
	}
	if len(lengths) <= 3 {
		return false
	}

	avg := float64(total) / float64(len(lengths))
	for _, n := range lengths {
		if float64(n) > avg*2 {
			return true
		}
	}
	return false
}

// CrossCheck combines an image assessment with an optional record
// validation: half the record score (integer division) is added to the image
// score. A nil validation adds nothing.
func CrossCheck(image domain.TransactionAssessment, record *domain.TransactionAssessment, extra ...string) domain.TransactionAssessment {
	score := image.RiskScore
	reasons := append([]string{}, image.Reasons...)
	if record != nil {
		score += record.RiskScore / 2
		reasons = append(reasons, record.Reasons...)
	}
	reasons = append(reasons, extra...)
	return assess(score, reasons)
}
