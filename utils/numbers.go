package utils

import (
	"strconv"
	"strings"
)

// ParseAmount coerces processor-formatted amount text ("12,500", "12500.00")
// into an integer in the smallest currency unit. Anything unparseable is 0;
// the upstream feed mixes formats and a bad cell must not abort a page.
func ParseAmount(s string) int64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int64(f)
}

// FormatNumber renders an integer with spaces as thousands separators,
// matching the operator chat conventions.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, " ")
	if neg {
		out = "-" + out
	}
	return out
}
