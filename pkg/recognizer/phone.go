package recognizer

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	phoneCharsRe  = regexp.MustCompile(`^\+?[\d\s().\-]+$`)
	phoneLayoutRe = regexp.MustCompile(`^(?:\+?\d{1,3}[\s.\-]?)?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}$`)
)

var phoneFields = []string{"phone", "tel", "telephone", "mobile", "cell", "fax", "msisdn"}

// Phone recognizes telephone numbers. Normalized output is digits only, or
// E.164 when the value starts with "+" or is an 11-digit number with the
// US country code.
type Phone struct{}

func (Phone) Kind() Kind { return KindPhone }

func (p Phone) IsLikelyType(field, value string) bool {
	return p.Confidence(field, value) >= DefaultMinConfidence
}

func (Phone) Confidence(field, value string) float64 {
	value = strings.TrimSpace(value)
	if !phoneCharsRe.MatchString(value) {
		return 0
	}
	n := countDigits(value)
	if n < 7 || n > 15 {
		return 0
	}
	switch {
	case fieldHas(field, phoneFields...):
		return 0.9
	case strings.HasPrefix(value, "+"):
		return 0.85
	case phoneLayoutRe.MatchString(value):
		return 0.75
	case n >= 10 && n == len(value):
		// Long bare digit strings read as phone numbers rather than
		// quantities.
		return 0.6
	}
	return 0
}

func (Phone) Normalize(value string) (any, error) {
	value = strings.TrimSpace(value)
	if !phoneCharsRe.MatchString(value) {
		return nil, ErrUnrecognized
	}
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 7 || len(digits) > 15 {
		return nil, fmt.Errorf("phone number has %d digits", len(digits))
	}
	if strings.HasPrefix(value, "+") || (len(digits) == 11 && digits[0] == '1') {
		return "+" + digits, nil
	}
	return digits, nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
