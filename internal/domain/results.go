package domain

// Text, URL and OCR channel tiers.
const (
	LabelSafe       = "safe"
	LabelSuspicious = "suspicious"
	LabelScam       = "scam"
)

// Email channel tiers.
const (
	EmailLabelSafe       = "Safe"
	EmailLabelSuspicious = "Suspicious"
	EmailLabelScam       = "Scam"
)

// Transaction channel tiers. The suspicious label is shared with LabelSuspicious.
const (
	TxLabelLegitimate = "legitimate"
	TxLabelSuspicious = LabelSuspicious
)

// OCR detection paths.
const (
	DetectionTransactionFraud = "transaction_fraud"
	DetectionGeneralScam      = "general_scam"
)

// ClassificationResult is the response of the text+URL channel.
// Score is rounded to two decimals.
type ClassificationResult struct {
	Status  string   `json:"status"`
	Score   float64  `json:"score"`
	Reasons []string `json:"reasons"`
}

// EmailResult is the response of the email channel.
type EmailResult struct {
	RiskScore int      `json:"risk_score"`
	Label     string   `json:"label"`
	Reasons   []string `json:"reasons"`
}

// OCRResult is the response of the OCR channel.
type OCRResult struct {
	Status        string   `json:"status"`
	Score         float64  `json:"score"`
	Reasons       []string `json:"reasons"`
	DetectionType string   `json:"detection_type"`
	TextExtracted string   `json:"text_extracted,omitempty"`
}

// TransactionResult is the response of the transaction validation channel.
type TransactionResult struct {
	Status    string   `json:"status"`
	RiskScore int      `json:"risk_score"`
	Reasons   []string `json:"reasons"`
}

// TransactionImageResult is the response of the transaction image channel.
type TransactionImageResult struct {
	Status        string   `json:"status"`
	RiskScore     int      `json:"risk_score"`
	ExtractedText string   `json:"extracted_text"`
	Reasons       []string `json:"reasons"`
}
