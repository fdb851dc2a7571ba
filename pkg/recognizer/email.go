package recognizer

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)*\.[A-Za-z]{2,}$`)

type Email struct{}

func (Email) Kind() Kind { return KindEmail }

func (e Email) IsLikelyType(field, value string) bool {
	return e.Confidence(field, value) >= DefaultMinConfidence
}

func (Email) Confidence(_, value string) float64 {
	if emailRe.MatchString(strings.TrimSpace(value)) {
		return 0.95
	}
	return 0
}

func (Email) Normalize(value string) (any, error) {
	value = strings.TrimSpace(value)
	if !emailRe.MatchString(value) {
		return nil, ErrUnrecognized
	}
	return strings.ToLower(value), nil
}
