package serde

import "regexp"

// Redaction placeholders. They contain no characters that need JSON escaping,
// so replacing a match inside a JSON string keeps the document valid.
const (
	RedactedValue = "[REDACTED]"
	RedactedKey   = "[REDACTED_KEY]"
	RedactedToken = "[REDACTED_TOKEN]"
)

// Rule masks every match of Pattern with Replacement. Replacement may reference
// capture groups using regexp.Expand syntax.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	Replacement string
}

// DefaultRules mask values that look like credentials. Apart from whole field values,
// no pattern can match a double quote or a backslash, so a match never spans a JSON
// string boundary or escape. Sensitive fields are masked whether their value is a
// string, a number or a boolean; the placeholder is always a string.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:        "sensitive-json-field",
			Pattern:     regexp.MustCompile(`(?i)("(?:password|passwd|pwd|secret|client[_-]?secret|api[_-]?key|access[_-]?key|secret[_-]?key|private[_-]?key|token|access[_-]?token|refresh[_-]?token|auth[_-]?token|authorization|credentials?)"\s*:\s*)(?:"(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?|true|false)`),
			Replacement: `${1}"` + RedactedValue + `"`,
		},
		{
			Name:        "bearer-token",
			Pattern:     regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]+=*`),
			Replacement: "Bearer " + RedactedToken,
		},
		{
			Name:        "jwt",
			Pattern:     regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{5,}\.eyJ[A-Za-z0-9_-]{5,}\.[A-Za-z0-9_-]{5,}`),
			Replacement: RedactedToken,
		},
		{
			Name:        "secret-key",
			Pattern:     regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{8,}`),
			Replacement: RedactedKey,
		},
		{
			Name:        "aws-access-key",
			Pattern:     regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
			Replacement: RedactedKey,
		},
		{
			Name:        "github-token",
			Pattern:     regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}`),
			Replacement: RedactedToken,
		},
		{
			Name:        "slack-token",
			Pattern:     regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9-]{10,}`),
			Replacement: RedactedToken,
		},
		{
			Name:        "url-credentials",
			Pattern:     regexp.MustCompile(`(://[^:/\s"\\@]+:)[^@/\s"\\]+@`),
			Replacement: `${1}` + RedactedValue + `@`,
		},
		{
			Name:        "query-secret",
			Pattern:     regexp.MustCompile(`(?i)((?:[?&]|\\u0026)(?:password|token|api_key|apikey|secret|access_token)=)[^&\s"\\]+`),
			Replacement: `${1}` + RedactedValue,
		},
	}
}

// Sanitizer applies an ordered list of masking rules.
type Sanitizer struct {
	rules []Rule
}

// NewSanitizer creates a Sanitizer with the default rules followed by extra.
func NewSanitizer(extra ...Rule) *Sanitizer {
	return &Sanitizer{rules: append(DefaultRules(), extra...)}
}

// Sanitize returns data with every rule applied. The input is not modified.
func (s *Sanitizer) Sanitize(data []byte) []byte {
	out := data
	for _, rule := range s.rules {
		out = rule.Pattern.ReplaceAll(out, []byte(rule.Replacement))
	}
	return out
}

// SanitizeString is Sanitize for strings.
func (s *Sanitizer) SanitizeString(v string) string {
	return string(s.Sanitize([]byte(v)))
}
