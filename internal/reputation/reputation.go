// Package reputation scores URLs on lexical and structural features only.
// No network lookups are performed.
package reputation

import (
	"regexp"
	"strings"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// PatternRule is matched against the host concatenated with the full URL.
type PatternRule struct {
	Name    string
	Pattern *regexp.Regexp
	Weight  int
}

// TLDRule flags a host ending with Suffix.
type TLDRule struct {
	Suffix string
	Weight int
}

// Weights of the structural checks.
const (
	IPHostWeight    = 30
	HomographWeight = 25
)

// IPHostReason is recorded when the host is a dotted-quad address.
const IPHostReason = "IP address used instead of domain"

func pattern(name, expr string, weight int) PatternRule {
	return PatternRule{Name: name, Pattern: regexp.MustCompile(expr), Weight: weight}
}

var patternRules = []PatternRule{
	pattern("KYC/Bank Update", `kyc|verify.*account|update.*bank|confirm.*identity`, 35),
	pattern("Fake Login", `login|signin|sign-in|authentication|verify.*password`, 30),
	pattern("Fake Bank", `bank.*verify|secure.*bank|mybank|bankupdate`, 35),
	pattern("Fake PayPal", `paypal|ebay.*verify`, 30),
	pattern("Fake Amazon", `amazon.*verify|amazone`, 30),
	pattern("Fake Apple", `apple.*verify|icloud.*verify|icloud.*login`, 30),
	pattern("Credential Harvesting", `secure|verify|confirm|authenticate|login`, 20),
	pattern("Prize/Giveaway Scam", `giveaway|claim.*reward|claim.*now|prize|won.*prize|free.*prize`, 35),
	pattern("Urgent Action", `urgent|immediate|act.*now|claim.*now|hurry`, 25),
}

// tldRules is scanned in order and stops at the first hit.
var tldRules = []TLDRule{
	{".xyz", 20},
	{".click", 20},
	{".online", 20},
	{".site", 15},
	{".top", 15},
	{".win", 20},
	{".bid", 20},
	{".party", 15},
	{".download", 18},
	{".review", 18},
	{".tk", 25},
	{".ml", 25},
	{".ga", 25},
}

var homographs = []PatternRule{
	pattern("Paypa1", `paypa[1l]`, HomographWeight),
	pattern("Goog1e", `goog[1l]e`, HomographWeight),
	pattern("Afrnazon", `amaz[0o]n`, HomographWeight),
}

var ipHost = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+`)

// Analyzer is the URL reputation detector. It is safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer returns an analyzer over the built-in tables.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Score runs the pattern, TLD, IP-host and homograph passes over rawURL.
// An empty URL scores 0.
func (a *Analyzer) Score(rawURL string) domain.RiskSignal {
	sig := domain.EmptySignal()
	if rawURL == "" {
		return sig
	}

	host := Host(rawURL)
	full := strings.ToLower(rawURL)
	subject := host + full

	for _, r := range patternRules {
		if r.Pattern.MatchString(subject) {
			sig.Score += r.Weight
			sig.Reasons = append(sig.Reasons, r.Name)
		}
	}

	for _, t := range tldRules {
		if strings.HasSuffix(host, t.Suffix) {
			sig.Score += t.Weight
			sig.Reasons = append(sig.Reasons, "Suspicious TLD: "+t.Suffix)
			break
		}
	}

	if ipHost.MatchString(host) {
		sig.Score += IPHostWeight
		sig.Reasons = append(sig.Reasons, IPHostReason)
	}

	for _, h := range homographs {
		if h.Pattern.MatchString(host) {
			sig.Score += h.Weight
			sig.Reasons = append(sig.Reasons, "Homograph attack: "+h.Name)
		}
	}

	sig.Score = domain.ClampScore(sig.Score)
	return sig
}

// Host returns the lowercased network location of rawURL: the text between
// "scheme://" and the first '/', '?' or '#'. URLs without a scheme and
// authority have an empty host. Port and userinfo are kept as written.
func Host(rawURL string) string {
	rest := rawURL
	if i := strings.IndexByte(rawURL, ':'); i > 0 && validScheme(rawURL[:i]) {
		rest = rawURL[i+1:]
	}
	if !strings.HasPrefix(rest, "//") {
		return ""
	}
	rest = rest[2:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}

func validScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
