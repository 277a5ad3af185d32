package envconf

import (
	"strings"
	"unicode"
)

// ToEnvKey converts a Go identifier to UPPER_SNAKE_CASE: word boundaries are
// case changes, letter/digit changes, and any of "-", " ", ".", "_".
func ToEnvKey(name string) string {
	runes := []rune(strings.TrimSpace(name))

	var b strings.Builder
	sep := func() {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}

	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			sep()
			continue
		case i == 0:
		case unicode.IsUpper(r):
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				sep()
			}
		case unicode.IsDigit(r):
			if unicode.IsLetter(runes[i-1]) {
				sep()
			}
		case unicode.IsLetter(r):
			if unicode.IsDigit(runes[i-1]) {
				sep()
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}

	return strings.TrimSuffix(b.String(), "_")
}
