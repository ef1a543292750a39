// Package redact removes credentials from strings before they are printed
// or logged. Connection URLs, password assignments, and LLM API keys are the
// secrets kioku handles; each is replaced with a fixed placeholder.
package redact

import (
	"regexp"
)

const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules run in order; URL userinfo goes first so the password rule never
// splits a connection string.
var rules = []rule{
	{
		pattern:     regexp.MustCompile(`(?i)\b(postgres|postgresql|redis|rediss)://[^@\s/]+@`),
		replacement: "${1}://" + CredentialPlaceholder + "@",
	},
	{
		pattern:     regexp.MustCompile(`(?i)\b(password|passwd|pwd)(\s*[=:]\s*['"]?)[^'"&\s]+`),
		replacement: "${1}${2}" + CredentialPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`(?i)\b(api[_-]?key|key|token)(\s*[=:]\s*['"]?)[A-Za-z0-9_\-.]{8,}`),
		replacement: "${1}${2}" + KeyPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{16,}`),
		replacement: KeyPlaceholder,
	},
	{
		pattern:     regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{30,}`),
		replacement: KeyPlaceholder,
	},
}

// String redacts credentials from s.
func String(s string) string {
	if s == "" {
		return s
	}
	for _, r := range rules {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}

// Error redacts err's message. A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
