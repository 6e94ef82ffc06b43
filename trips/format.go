package trips

import (
	"strings"
	"time"
	"unicode"
)

// FormatDomain spaces a license plate: "AB123CD" -> "AB 123 CD", "ABC123" -> "ABC 123".
func FormatDomain(domain string) string {
	d := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(domain), " ", ""))
	if d == "" {
		return ""
	}
	var groups []string
	start := 0
	for i := 1; i <= len(d); i++ {
		if i == len(d) || isDigit(d[i]) != isDigit(d[i-1]) {
			groups = append(groups, d[start:i])
			start = i
		}
	}
	return strings.Join(groups, " ")
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// CapitalizeWords turns "IN_PROGRESS" or "in progress" into "In Progress".
func CapitalizeWords(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || unicode.IsSpace(r) })
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// FormatDateTime renders t in loc as "02/01/2006 15:04".
func FormatDateTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("02/01/2006 15:04")
}

// ClockIcon picks the icon shown next to a departure time.
func ClockIcon(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return "sunrise"
	case h >= 12 && h < 19:
		return "sun"
	default:
		return "moon"
	}
}
