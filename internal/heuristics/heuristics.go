// Package heuristics scores free text against a fixed table of scam-indicator patterns.
package heuristics

import (
	"regexp"
	"strings"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Rule is a named case-insensitive pattern with a weight.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  int
}

// Escalation bonuses applied after the rule pass.
const (
	UrgencyClusterBonus = 30
	MultiRuleBonus      = 10
)

// rule names that belong to the urgency cluster
var urgencyCluster = []string{"Urgency", "Threat", "Time Pressure", "Account Lockout"}

func rule(name, pattern string, weight int) Rule {
	return Rule{Name: name, Pattern: regexp.MustCompile("(?i)" + pattern), Weight: weight}
}

// defaultRules is evaluated in order; every matching rule contributes.
var defaultRules = []Rule{
	rule("Verify Account", `verify.*account|confirm.*identity|validate.*account`, 25),
	rule("Urgency Pressure", `urgent|immediately|now|right now|asap|24 hours|within.*hours`, 20),
	rule("Account Lockout", `locked|blocked|suspended|disabled|closed|frozen`, 20),
	rule("Unauthorized Activity", `unauthorized|suspicious activity|compromise|fraud|security alert`, 18),
	rule("Click Link", `click here|click link|click below|tap here|open link`, 15),
	rule("Credentials Request", `enter.*password|enter.*credentials|login|banking details|card details`, 20),
	rule("Money/Financial", `account|funds|money|transfer|payment|card|banking`, 10),
	rule("OTP Request", `otp|one time password|verification code|security code`, 20),
	rule("Shortened URL", `bit\.ly|tinyurl|t\.co|rb\.gy|short\.link|ow\.ly`, 15),
	rule("Fake Identity", `bank|paypal|amazon|apple|microsoft|google security`, 15),
	rule("Time Pressure", `expires? in|expires? at|deadline|act now|don't wait|limited time`, 18),
	rule("Threat Language", `will be closed|will be locked|will lose|will be charged|will be cancelled`, 18),
	rule("No Contact Info", `do not reply|do not respond`, 10),
	rule("Prize/Lottery Scam", `won|prize|claim.*reward|lottery|congratulations|you.*selected|you.*chosen`, 22),
	rule("Free Money/Offer", `free.*money|claim.*now|earn.*fast|easy money|get rich`, 20),
}

// Engine is the heuristic text detector. It is safe for concurrent use.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine over the built-in rule table.
func NewEngine() *Engine {
	return &Engine{rules: defaultRules}
}

// Rules returns a copy of the rule table.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Score matches text against every rule, applies the escalation bonuses
// and clamps the result to domain.MaxRiskScore.
func (e *Engine) Score(text string) domain.RiskSignal {
	sig := domain.EmptySignal()
	if text == "" {
		return sig
	}

	for _, r := range e.rules {
		if r.Pattern.MatchString(text) {
			sig.Score += r.Weight
			sig.Reasons = append(sig.Reasons, r.Name)
		}
	}

	if countUrgency(sig.Reasons) >= 2 {
		sig.Score += UrgencyClusterBonus
	}
	if len(sig.Reasons) >= 2 {
		sig.Score += MultiRuleBonus
	}

	sig.Score = domain.ClampScore(sig.Score)
	return sig
}

func countUrgency(reasons []string) int {
	n := 0
	for _, reason := range reasons {
		for _, kw := range urgencyCluster {
			if strings.Contains(reason, kw) {
				n++
				break
			}
		}
	}
	return n
}
