package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	digitRunRe = regexp.MustCompile(`\d+`)
	htmlTagRe  = regexp.MustCompile(`<.*?>`)
)

// DigitRun returns the first maximal run of digits in s. When s contains no
// digits it is returned unchanged, mirroring how the feed's card column is
// normalized upstream.
func DigitRun(s string) string {
	if m := digitRunRe.FindString(s); m != "" {
		return m
	}
	return s
}

// StripTags removes HTML tags from a table cell.
func StripTags(s string) string {
	return htmlTagRe.ReplaceAllString(s, "")
}

// AttrValue extracts the single-quoted value that follows marker inside an
// HTML fragment, e.g. AttrValue("<a data-id='42'>", "data-id=") == "42".
// This is a deliberately tolerant micro-parser: the upstream markup is
// unversioned, so a failed extraction skips the row instead of failing the
// page.
func AttrValue(fragment, marker string) (string, bool) {
	_, rest, found := strings.Cut(fragment, marker)
	if !found {
		return "", false
	}
	_, rest, found = strings.Cut(rest, "'")
	if !found {
		return "", false
	}
	val, _, found := strings.Cut(rest, "'")
	if !found {
		return "", false
	}
	return val, true
}

// RepairEncoding re-encodes text that arrives Latin-1-mangled from the
// processor (bank names, card holders). Runes outside Latin-1 are dropped and
// the result is forced to valid UTF-8. Lossy on purpose: a garbled bank name
// must never fail a ledger write.
func RepairEncoding(s string) string {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := charmap.ISO8859_1.EncodeRune(r); ok {
			buf = append(buf, b)
		}
	}
	return strings.ToValidUTF8(string(buf), "")
}
