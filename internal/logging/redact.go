package logging

import (
	"regexp"
	"strings"
)

// Sensitive field names that should be redacted.
var sensitiveFields = []string{
	"password",
	"secret",
	"token",
	"authorization",
	"credential",
	"refresh",
	"client_secret",
}

// Patterns for secrets that can show up in gogchat stderr.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(ya29\.[a-zA-Z0-9._-]{20,})`),   // Google OAuth access token
	regexp.MustCompile(`(1//[a-zA-Z0-9._-]{20,})`),      // Google OAuth refresh token
	regexp.MustCompile(`(AIza[a-zA-Z0-9_-]{35})`),       // Google API key
	regexp.MustCompile(`(GOCSPX-[a-zA-Z0-9_-]{20,})`),   // Google OAuth client secret
	regexp.MustCompile(`(?i)bearer\s+([a-zA-Z0-9._-]{20,})`),

	regexp.MustCompile(`(?i)(key|token|secret|password|auth)[=:]["']?([a-zA-Z0-9+/=_.-]{32,})["']?`),
}

// RedactedValue is the replacement for sensitive values.
const RedactedValue = "[REDACTED]"

// Redact replaces sensitive information in a string.
func Redact(s string) string {
	result := s
	for _, pattern := range secretPatterns {
		result = pattern.ReplaceAllString(result, RedactedValue)
	}
	return result
}

// contentFlags carry user-authored message content and are never logged.
var contentFlags = map[string]bool{
	"--text": true,
}

// RedactArgs returns a copy of command-line arguments that is safe to log:
// message content flag values are hidden and secrets are scrubbed.
func RedactArgs(args []string) []string {
	out := make([]string, len(args))
	hideNext := false
	for i, arg := range args {
		switch {
		case hideNext:
			out[i] = RedactedValue
			hideNext = false
		case contentFlags[arg]:
			out[i] = arg
			hideNext = true
		case strings.HasPrefix(arg, "--") && strings.Contains(arg, "="):
			name, _, _ := strings.Cut(arg, "=")
			if contentFlags[name] || IsSensitiveField(name) {
				out[i] = name + "=" + RedactedValue
			} else {
				out[i] = Redact(arg)
			}
		default:
			out[i] = Redact(arg)
		}
	}
	return out
}

// IsSensitiveField checks if a field name is considered sensitive.
func IsSensitiveField(name string) bool {
	lowerName := strings.ToLower(name)
	for _, field := range sensitiveFields {
		if strings.Contains(lowerName, field) {
			return true
		}
	}
	return false
}
