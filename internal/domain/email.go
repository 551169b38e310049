package domain

// Email authentication results.
const (
	AuthPass    = "pass"
	AuthFail    = "fail"
	AuthUnknown = "unknown"
)

// EmailMessage is an email submitted for scam classification.
type EmailMessage struct {
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	Attachments []string     `json:"attachments,omitempty"`
	Headers     EmailHeaders `json:"headers"`

	// ReturnPath is the Return-Path header; nil or empty means not supplied.
	ReturnPath *string `json:"return_path,omitempty"`

	// FromHeader is the From header when it differs from Sender; nil or empty means not supplied.
	FromHeader *string `json:"from_header,omitempty"`
}

// EmailHeaders carries DMARC/SPF/DKIM verdicts.
// Each field is "pass", "fail" or "unknown"; empty is treated as "unknown".
type EmailHeaders struct {
	DMARC string `json:"dmarc,omitempty"`
	SPF   string `json:"spf,omitempty"`
	DKIM  string `json:"dkim,omitempty"`
}
