package util

import (
	"regexp"
	"strings"
)

var (
	phoneJunk = regexp.MustCompile(`[^\d\+]+`)
	e164      = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)
)

// NormalizePhone tries to normalize user input into E.164 format. Numbers
// without an international prefix get countryCode (digits only, e.g. "49").
func NormalizePhone(raw, countryCode string) string {
	s := phoneJunk.ReplaceAllString(strings.TrimSpace(raw), "")
	cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")

	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "+"):
		return s
	case strings.HasPrefix(s, "00"):
		return "+" + s[2:]
	case cc == "":
		return "+" + s
	case strings.HasPrefix(s, "0"):
		return "+" + cc + s[1:]
	case strings.HasPrefix(s, cc) && len(s) > 10:
		return "+" + s
	default:
		return "+" + cc + s
	}
}

// ValidPhone reports whether s is a plausible E.164 number.
func ValidPhone(s string) bool {
	return e164.MatchString(s)
}
