package domain

// RuleConfig defines an operator transaction rule.
// The CEL expression is evaluated against a transaction record; when it is
// true the rule's weight and reason are added to the validation result.
type RuleConfig struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`

	// CEL expression to evaluate, e.g. `has_amount && amount > 5000.0 && currency == "USD"`
	Expression string `json:"expression" yaml:"expression"`

	// Weight added to the risk score on a match (may be negative)
	Weight int `json:"weight" yaml:"weight"`

	// Reason recorded on a match; defaults to the rule name
	Reason string `json:"reason" yaml:"reason"`

	// Whether rule is active
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// MatchReason returns the reason recorded when the rule fires.
func (r *RuleConfig) MatchReason() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Name
}
