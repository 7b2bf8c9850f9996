package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	// Matches: password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Pattern to match DSN credentials (user:pass@tcp(host) and user:pass@host
	// formats), anchored at the string start or any delimiter so credentials
	// embedded mid-sentence in driver errors are caught too. The leading
	// context is captured and preserved by the replacement.
	dsnPattern = regexp.MustCompile(`(^|[\s(/:])[^:@\s/]+:[^@\s/]+@`)
)

// SanitizeDSN removes credentials from a database DSN before logging.
func SanitizeDSN(dsn string) string {
	if dsn == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(dsn, "${1}="+RedactedText)
	sanitized = dsnPattern.ReplaceAllString(sanitized, "${1}"+RedactedText+":"+RedactedText+"@")

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Use this before logging any error from database operations.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	sanitized := passwordPattern.ReplaceAllString(errStr, "${1}="+RedactedText)
	sanitized = dsnPattern.ReplaceAllString(sanitized, "${1}"+RedactedText+":"+RedactedText+"@")

	return sanitized
}

// SanitizeQuery truncates and sanitizes a SQL query for logging.
// Prevents logging very long queries and removes sensitive patterns.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := TruncateString(query, MaxQueryLogLength)
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return sanitized
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
