package schema

import (
	"strings"
	"unicode"
)

// StringNumberFields lists name fragments of fields whose numeric-looking
// values must stay strings.
var StringNumberFields = []string{
	"zip", "postal", "phone", "id", "year", "ssn", "isbn",
	"account", "number", "social", "security",
}

// Tokenize splits a field name on non-alphanumerics and camelCase
// boundaries and lowercases the parts. "zipCode" and "zip_code" both yield
// ["zip", "code"].
func Tokenize(name string) []string {
	var tokens []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			tokens = append(tokens, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(name)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return tokens
}

// IsStringNumberField reports whether values of the named field must never
// be coerced to numbers.
func IsStringNumberField(name string) bool {
	for _, tok := range Tokenize(name) {
		for _, item := range StringNumberFields {
			if strings.HasPrefix(tok, item) {
				return true
			}
		}
	}
	return false
}

// HasWord reports whether word occurs in text as a whole word,
// case-insensitively.
func HasWord(text, word string) bool {
	if word == "" {
		return false
	}
	text = strings.ToLower(text)
	word = strings.ToLower(word)
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		i := start + idx
		j := i + len(word)
		before := i == 0 || !isWordByte(text[i-1])
		after := j == len(text) || !isWordByte(text[j])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || b >= 0x80
}
