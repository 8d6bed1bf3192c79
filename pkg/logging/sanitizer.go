// Package logging scrubs credentials and personal data out of strings before
// they reach the log.
package logging

import (
	"regexp"
	"strings"
)

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

type rule struct {
	pattern *regexp.Regexp
	replace string
}

// Order matters: URL credentials go before the key=value rules so a
// password inside a URL is removed together with the user name.
var (
	urlCredentials = rule{regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`), "://" + RedactedText + "@" + RedactedText}
	dsnPassword    = rule{regexp.MustCompile(`(?i)\b(password|pwd|pass)=[^;&\s]+`), "${1}=" + RedactedText}

	errorRules = []rule{
		urlCredentials,
		dsnPassword,
		{regexp.MustCompile(`Bearer\s+[A-Za-z0-9_-]+\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`), "Bearer " + RedactedText},
		{regexp.MustCompile(`SG\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`), RedactedText},
		{regexp.MustCompile(`(?i)\b(api[_-]?key|secret)=[^;&\s]+`), "${1}=" + RedactedText},
	}
)

func apply(s string, rules ...rule) string {
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replace)
	}
	return s
}

// SanitizeConnectionString removes credentials from a database URL or DSN.
func SanitizeConnectionString(connStr string) string {
	return apply(connStr, urlCredentials, dsnPassword)
}

// SanitizeError returns err's message with credentials removed.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return apply(err.Error(), errorRules...)
}

// MaskEmail keeps enough of an address to tell recipients apart in logs:
// somchai@school.ac.th becomes s*****i@school.ac.th.
func MaskEmail(addr string) string {
	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		return RedactedText
	}
	runes := []rune(local)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes)) + "@" + domain
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1]) + "@" + domain
}

// TruncateString cuts s to maxLen runes and adds an ellipsis if anything was dropped.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
