package chain

import (
	"regexp"
	"strings"
)

// Leo record literals are not valid JSON: keys are bare words, integers carry
// type suffixes (1000000u64, 1field) and some big-integer literals carry a
// trailing n. NormalizeRecord rewrites such a literal into parseable JSON.
// Suffixed big integers become quoted strings so no precision is lost.
var (
	bareKeyRe  = regexp.MustCompile(`(\w+)\s*:`)
	uintRe     = regexp.MustCompile(`\b(\d+)u(?:8|16|32|64|128)\b`)
	fieldValRe = regexp.MustCompile(`\b(\d+)field\b`)
	bigIntRe   = regexp.MustCompile(`\b(\d+)n\b`)
)

// NormalizeRecord converts a Leo record or plain value literal into JSON text.
func NormalizeRecord(raw string) string {
	s := strings.TrimSpace(raw)
	s = bareKeyRe.ReplaceAllString(s, `"$1":`)
	s = fieldValRe.ReplaceAllString(s, `"$1"`)
	s = bigIntRe.ReplaceAllString(s, `"$1"`)
	s = uintRe.ReplaceAllString(s, `$1`)
	return s
}
