package util

import (
	"html"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// SanitizeInput escapes HTML/script-like characters
func SanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return html.EscapeString(s)
}

// NormalizeEmail is the canonical form used for lookups and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsValidEmail expects an already normalized address.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// MaskEmail keeps the first character of the local part for log lines.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}

// ContainsSuspicious flags script injection attempts in free-text fields.
func ContainsSuspicious(s string) bool {
	lower := strings.ToLower(s)
	for _, c := range []string{"<script", "javascript:", "onerror=", "onload="} {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}
