// Package transaction scores claimed transaction records and the OCR text of
// transaction screenshots.
package transaction

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// SuspiciousThreshold is the score at which a transaction is flagged.
const SuspiciousThreshold = 40

// Validation reasons.
const (
	ReasonMissingID          = "Missing transaction ID"
	ReasonUnusualID          = "Unusual transaction ID format"
	ReasonMissingTimestamp   = "Missing transaction timestamp"
	ReasonInvalidTimestamp   = "Invalid timestamp format"
	ReasonFutureTimestamp    = "Transaction timestamp is in the future (impossible)"
	ReasonAncientTimestamp   = "Transaction is from 5+ years ago"
	ReasonMissingAmount      = "Missing transaction amount"
	ReasonNegativeAmount     = "Negative transaction amount"
	ReasonZeroAmount         = "Zero transaction amount"
	ReasonLargeAmount        = "Suspiciously large transaction amount"
	ReasonAmountDecimals     = "Unusual decimal places in amount"
	ReasonInvalidAmount      = "Invalid amount format"
	ReasonMissingCurrency    = "Missing currency"
	ReasonMissingStatus      = "Missing transaction status"
	ReasonMissingRecipient   = "Missing recipient"
	ReasonShortRecipient     = "Recipient name too short"
	ReasonMissingSender      = "Missing sender"
	ReasonShortSender        = "Sender name too short"
	ReasonSameParties        = "Sender and recipient are the same (impossible transaction)"
	ReasonInvalidTransaction = "Invalid transaction JSON provided"
)

var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "INR": true, "AUD": true,
	"CAD": true, "SGD": true, "JPY": true, "CNY": true, "CHF": true,
}

var validStatuses = map[string]bool{
	"completed": true, "pending": true, "processing": true, "success": true, "confirmed": true,
}

// suspiciousDescriptions is scanned in order; only the first hit counts.
var suspiciousDescriptions = []string{
	"test", "fake", "demo", "screenshot", "edited", "photoshopped",
	"manipulated", "forged", "payment@pending", "processing...",
}

var idCharset = regexp.MustCompile(`^[a-zA-Z0-9\-_]+$`)

var maxAmount = decimal.NewFromInt(1_000_000_000)

// isoLayouts are tried for timestamps containing a 'T'.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// fallbackLayouts are tried in order for all other timestamps.
var fallbackLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

const fiveYears = 5 * 365 * 24 * time.Hour

// RuleMatcher evaluates operator-defined rules against a record.
type RuleMatcher interface {
	Match(rec *domain.TransactionRecord) []domain.RuleHit
}

// Validator scores the plausibility of a transaction record.
type Validator struct {
	// Now is the evaluation clock.
	Now func() time.Time

	// Location is used for timestamps without an offset.
	Location *time.Location

	// Rules are applied after the field checks when set.
	Rules RuleMatcher
}

// NewValidator returns a validator using the local clock and time zone.
func NewValidator(rules RuleMatcher) *Validator {
	return &Validator{Now: time.Now, Location: time.Local, Rules: rules}
}

// Validate runs every field check and returns the clamped assessment.
// It never fails: malformed fields are scored, not rejected.
func (v *Validator) Validate(rec domain.TransactionRecord) domain.TransactionAssessment {
	now := v.now()
	score := 0
	reasons := []string{}
	add := func(weight int, reason string) {
		score += weight
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}

	// transaction id
	if id := strings.TrimSpace(rec.TransactionID); id != "" {
		if ValidTransactionID(id) {
			add(-5, "")
		} else {
			add(25, ReasonUnusualID)
		}
	} else {
		add(15, ReasonMissingID)
	}

	// timestamp
	ts, tsOK := time.Time{}, false
	if rec.Timestamp != "" {
		ts, tsOK = ParseTimestamp(rec.Timestamp, v.location())
		switch {
		case !tsOK:
			add(30, ReasonInvalidTimestamp)
		case ts.After(now):
			add(40, ReasonFutureTimestamp)
		case ts.Before(now.Add(-fiveYears)):
			add(0, ReasonAncientTimestamp)
		}
	} else {
		add(10, ReasonMissingTimestamp)
	}

	// amount
	if rec.Amount.Present() {
		if reason := CheckAmount(rec.Amount.Raw()); reason != "" {
			add(20, reason)
		}
	} else {
		add(10, ReasonMissingAmount)
	}

	// currency
	if currency := strings.ToUpper(rec.Currency); currency != "" {
		if !validCurrencies[currency] {
			add(15, "Invalid/uncommon currency: "+currency)
		}
	} else {
		add(5, ReasonMissingCurrency)
	}

	// status
	if status := strings.ToLower(rec.Status); status != "" {
		if !validStatuses[status] {
			add(20, "Suspicious transaction status: "+status)
		}
		if status == "pending" && tsOK && !ts.After(now) {
			if days := int(now.Sub(ts).Hours() / 24); days > 1 {
				add(25, fmt.Sprintf("Transaction pending for %d days (unusual)", days))
			}
		}
	} else {
		add(15, ReasonMissingStatus)
	}

	// parties
	recipient := strings.TrimSpace(rec.Recipient)
	sender := strings.TrimSpace(rec.Sender)
	switch {
	case recipient == "":
		add(10, ReasonMissingRecipient)
	case utf8.RuneCountInString(recipient) < 2:
		add(15, ReasonShortRecipient)
	}
	switch {
	case sender == "":
		add(10, ReasonMissingSender)
	case utf8.RuneCountInString(sender) < 2:
		add(15, ReasonShortSender)
	}

	// description
	description := strings.ToLower(rec.Description)
	for _, token := range suspiciousDescriptions {
		if strings.Contains(description, token) {
			add(20, fmt.Sprintf("Suspicious description pattern: '%s'", token))
			break
		}
	}

	if sender != "" && recipient != "" && strings.ToLower(sender) == strings.ToLower(recipient) {
		add(30, ReasonSameParties)
	}

	if v.Rules != nil {
		for _, hit := range v.Rules.Match(&rec) {
			add(hit.Weight, hit.Reason)
		}
	}

	return assess(score, reasons)
}

func assess(score int, reasons []string) domain.TransactionAssessment {
	score = domain.ClampScore(score)
	return domain.TransactionAssessment{
		RiskScore:    score,
		Reasons:      reasons,
		IsSuspicious: score >= SuspiciousThreshold,
	}
}

func (v *Validator) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

func (v *Validator) location() *time.Location {
	if v.Location == nil {
		return time.Local
	}
	return v.Location
}

// ValidTransactionID reports whether id is 6-25 characters of letters, digits,
// '-' or '_' containing at least one letter and one digit.
func ValidTransactionID(id string) bool {
	if len(id) < 6 || len(id) > 25 {
		return false
	}
	if !idCharset.MatchString(id) {
		return false
	}
	hasLetter := strings.IndexFunc(id, unicode.IsLetter) >= 0
	hasDigit := strings.IndexFunc(id, unicode.IsDigit) >= 0
	return hasLetter && hasDigit
}

// ParseTimestamp parses ISO-8601 timestamps (those containing 'T') or one of
// the fallback layouts. Timestamps without an offset are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	layouts := fallbackLayouts
	if strings.Contains(s, "T") {
		layouts = isoLayouts
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CheckAmount returns the reason an amount is implausible, or "" if it is fine.
func CheckAmount(raw string) string {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return ReasonInvalidAmount
	}
	switch {
	case d.IsNegative():
		return ReasonNegativeAmount
	case d.IsZero():
		return ReasonZeroAmount
	case d.GreaterThan(maxAmount):
		return ReasonLargeAmount
	case !d.Equal(d.Truncate(4)):
		return ReasonAmountDecimals
	}
	return ""
}
