package domain

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TransactionRecord is a transaction as claimed by a user or read from a receipt.
// Every field is optional: an empty string means the field was not supplied.
type TransactionRecord struct {
	Amount        Amount `json:"amount"`
	Currency      string `json:"currency,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Recipient     string `json:"recipient,omitempty"`
	Sender        string `json:"sender,omitempty"`
	Status        string `json:"status,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Amount keeps the raw textual form of a transaction amount so that
// malformed values can be scored instead of rejected at decode time.
// The zero value is an absent amount.
type Amount struct {
	raw     string
	present bool
}

// AmountOf returns a present amount holding a literal value.
func AmountOf(raw string) Amount {
	return Amount{raw: raw, present: true}
}

// Present reports whether an amount was supplied (JSON null counts as absent).
func (a Amount) Present() bool {
	return a.present
}

// Raw returns the supplied text, trimmed.
func (a Amount) Raw() string {
	return strings.TrimSpace(a.raw)
}

// UnmarshalJSON accepts numbers, numeric strings and null. Anything else is
// kept verbatim and later reported as an invalid amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = AmountOf(s)
		return nil
	}
	*a = AmountOf(string(data))
	return nil
}

// MarshalJSON writes absent amounts as null and numeric text unquoted.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.present {
		return []byte("null"), nil
	}
	raw := a.Raw()
	if json.Valid([]byte(raw)) && raw != "" && raw[0] != '"' && raw[0] != '{' && raw[0] != '[' {
		return []byte(raw), nil
	}
	return json.Marshal(a.raw)
}

// TransactionAssessment is the output of the transaction validator and the
// transaction image analyzer.
type TransactionAssessment struct {
	RiskScore    int      `json:"risk_score"`
	Reasons      []string `json:"reasons"`
	IsSuspicious bool     `json:"is_suspicious"`
}

// RuleHit is a match of an operator-defined transaction rule.
type RuleHit struct {
	RuleID string `json:"ruleId"`
	Reason string `json:"reason"`
	Weight int    `json:"weight"`
}
