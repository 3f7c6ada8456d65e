package describe

import (
	"regexp"
	"strings"
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)

	// Go's \s is ASCII-only; also fold Unicode spaces such as U+3000 and U+00A0.
	spacePattern = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}\x{2028}\x{2029}]+`)
)

// Sanitize strips markup and control characters from s, collapses runs of
// whitespace and truncates the result to maxLen runes.
func Sanitize(s string, maxLen int) string {
	s = tagPattern.ReplaceAllString(s, "")
	s = controlPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if maxLen >= 0 {
		if r := []rune(s); len(r) > maxLen {
			s = string(r[:maxLen])
		}
	}
	return s
}
