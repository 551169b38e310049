package domain

// Report is a user-submitted scam report.
type Report struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Category  string `json:"category"`
	CreatedAt int64  `json:"created_at"` // unix milliseconds
}

// DefaultReportCategory is used when a report arrives without a category.
const DefaultReportCategory = "unspecified"

// Feedback is a free-form user message.
type Feedback struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Scan is one entry of the scan history.
type Scan struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Input     string `json:"input"`
	Verdict   string `json:"verdict"`
	Score     int    `json:"score"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// SupportTicket is a support request with an optional attachment name.
type SupportTicket struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Filename  string `json:"filename,omitempty"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// Setting is a single site setting.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DefaultSettings are seeded into an empty store.
func DefaultSettings() []Setting {
	return []Setting{
		{Key: "siteName", Value: "ScamSight"},
		{Key: "adminEmail", Value: "admin@gmail.com"},
		{Key: "theme", Value: "dark"},
	}
}
