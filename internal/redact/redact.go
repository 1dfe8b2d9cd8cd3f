package redact

import (
	"net/url"
	"regexp"
	"strings"
)

const placeholder = "[REDACTED]"

// secretPatterns match credential shapes that can leak through git output:
// userinfo embedded in remote URLs, hosting tokens, and bearer headers.
var secretPatterns = []*regexp.Regexp{
	// user:password@ inside a URL
	regexp.MustCompile(`(://)[^/@\s]+:[^/@\s]+@`),
	// GitHub and GitLab tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// token/password assignments
	regexp.MustCompile(`(?i)(token|password|passwd|credential)\s*[:=]\s*["']?([^"'\s]{8,})["']?`),
}

// Secrets replaces detected credentials in text with [REDACTED]. URL
// userinfo keeps its scheme separator so the surrounding URL stays legible.
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllString(result, "${1}"+placeholder)
	}
	return result
}

// URL strips userinfo from a URL string. Unparseable input is passed
// through Secrets instead so an embedded credential still cannot survive.
func URL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Secrets(raw)
	}
	if u.User == nil {
		return raw
	}
	u.User = nil
	return u.String()
}

// Value replaces every occurrence of the given secret values in text.
// Empty values are ignored.
func Value(text string, values ...string) string {
	for _, v := range values {
		if v == "" {
			continue
		}
		text = strings.ReplaceAll(text, v, placeholder)
	}
	return text
}
