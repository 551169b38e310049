// Package mail scores email-specific signals: authentication results,
// sender domain, embedded links and attachments.
package mail

import (
	"regexp"
	"strings"

	"github.com/opensource-finance/scamsniper/internal/domain"
)

// Attachment weight per suspicious file.
const AttachmentWeight = 30

// Sender reasons.
const (
	ReasonDisposable   = "Temporary/disposable email address detected"
	ReasonFreeOfficial = "Free email used for official communication"
	ReasonReturnPath   = "Return-Path domain mismatch (possible spoofing)"
	ReasonFromHeader   = "From header domain mismatch (possible spoofing)"
)

type authCheck struct {
	name       string
	failWeight int
	passWeight int
}

var authChecks = []authCheck{
	{"DMARC", 40, -10},
	{"SPF", 35, -5},
	{"DKIM", 35, -5},
}

var disposableDomains = []string{
	"tempmail", "guerrillamail", "10minutemail", "mailinator", "throwaway",
	"yopmail", "maildrop", "sharklasers", "spam4", "besenica", "temp-mail",
	"trashmail", "fakeinbox", "grr", "dispostable", "mailnesia", "temp-mails",
	"tempmail24", "minute-email", "trash-mail", "momentary-mail",
	"email-generator", "throw-away-email", "one-time-email",
}

var freeProviders = []string{"gmail.com", "outlook.com", "yahoo.com"}

var officialKeywords = []string{"bank", "support", "service"}

var domainKeywords = []string{"verify", "secure", "login", "alert", "support", "account"}

var suspiciousExtensions = []string{".html", ".exe", ".zip", ".scr", ".apk"}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// AuthScore scores DMARC/SPF/DKIM verdicts and Return-Path/From alignment
// with the sender domain. The result is floored at 0.
func AuthScore(msg domain.EmailMessage) domain.RiskSignal {
	sig := domain.EmptySignal()
	verdicts := []string{msg.Headers.DMARC, msg.Headers.SPF, msg.Headers.DKIM}

	for i, check := range authChecks {
		switch strings.ToLower(verdicts[i]) {
		case domain.AuthFail:
			sig.Score += check.failWeight
			sig.Reasons = append(sig.Reasons, check.name+" validation failed")
		case domain.AuthPass:
			sig.Score += check.passWeight
			sig.Reasons = append(sig.Reasons, check.name+" validation passed")
		}
	}

	senderDomain := Domain(msg.Sender)
	if rp := optional(msg.ReturnPath); rp != "" && Domain(rp) != senderDomain {
		sig.Score += 30
		sig.Reasons = append(sig.Reasons, ReasonReturnPath)
	}
	if from := optional(msg.FromHeader); from != "" && Domain(from) != senderDomain {
		sig.Score += 25
		sig.Reasons = append(sig.Reasons, ReasonFromHeader)
	}

	if sig.Score < 0 {
		sig.Score = 0
	}
	return sig
}

// SenderScore scores the sender address: disposable providers (first match),
// free webmail posing as an official sender, and suspicious domain keywords
// (every match).
func SenderScore(sender string) domain.RiskSignal {
	sig := domain.EmptySignal()
	senderDomain := Domain(sender)

	for _, d := range disposableDomains {
		if strings.Contains(senderDomain, d) {
			sig.Score += 35
			sig.Reasons = append(sig.Reasons, ReasonDisposable)
			break
		}
	}

	if containsAny(sender, freeProviders) && containsAny(strings.ToLower(sender), officialKeywords) {
		sig.Score += 25
		sig.Reasons = append(sig.Reasons, ReasonFreeOfficial)
	}

	for _, kw := range domainKeywords {
		if strings.Contains(senderDomain, kw) {
			sig.Score += 20
			sig.Reasons = append(sig.Reasons, "Domain contains suspicious keyword: "+kw)
		}
	}
	return sig
}

// ExtractURLs returns every http(s) link in text, in order of appearance.
func ExtractURLs(text string) []string {
	return urlPattern.FindAllString(text, -1)
}

// SuspiciousAttachment reports whether a filename has a risky extension.
func SuspiciousAttachment(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range suspiciousExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Domain returns the lowercased part after the last '@', or the whole
// address when there is none.
func Domain(address string) string {
	if i := strings.LastIndexByte(address, '@'); i >= 0 {
		address = address[i+1:]
	}
	return strings.ToLower(address)
}

func optional(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
