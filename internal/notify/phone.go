package notify

import (
	"regexp"
	"strings"
)

// Loose E.164 shape: optional +, leading non-zero digit, 8-15 digits total.
var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{7,14}$`)

// sanitizePhone normalizes a customer phone number for SMS delivery.
// Numbers that do not look dialable return "" and the SMS channel is
// silently skipped rather than errored.
func sanitizePhone(phone *string) string {
	if phone == nil {
		return ""
	}
	trimmed := strings.TrimSpace(*phone)
	if !phonePattern.MatchString(trimmed) {
		return ""
	}
	if !strings.HasPrefix(trimmed, "+") {
		return "+" + trimmed
	}
	return trimmed
}
