// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or returned in error responses. Campaign credentials
// travel through delivery errors, so this package strips bot tokens and
// connection strings as well as the usual secrets.
package redact

import (
	"regexp"
	"unicode/utf8"
)

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
	RedactedBotTokenPlaceholder   = "[REDACTED_BOT_TOKEN]"
)

// credentialVisiblePrefix is how many leading characters Credential keeps.
const credentialVisiblePrefix = 4

type rule struct {
	pattern     *regexp.Regexp
	placeholder string
}

// Rules are applied in order; more specific patterns come first.
var rules = []rule{
	// Telegram bot tokens: <numeric bot id>:<secret>
	{regexp.MustCompile(`\d{5,}:[A-Za-z0-9_-]{20,}`), RedactedBotTokenPlaceholder},

	// Database connection strings
	{regexp.MustCompile(`(?i)(postgres|postgresql|mysql|db|database|connection)://[^@\s]+@`), RedactedCredentialPlaceholder},

	// JWT tokens
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},

	// Credentials and tokens
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},

	// Stack trace fragments
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},

	// File paths
	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},

	// Email addresses
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), "[REDACTED_EMAIL]"},
}

// String redacts sensitive information from the input string
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.placeholder)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}

	return String(err.Error())
}

// Credential masks a delivery credential for display, keeping only a short
// prefix so operators can tell credentials apart.
func Credential(credential string) string {
	if utf8.RuneCountInString(credential) <= credentialVisiblePrefix*2 {
		return "****"
	}
	runes := []rune(credential)
	return string(runes[:credentialVisiblePrefix]) + "…"
}

// Credentials masks every credential in the slice.
func Credentials(credentials []string) []string {
	out := make([]string, len(credentials))
	for i, c := range credentials {
		out[i] = Credential(c)
	}
	return out
}
