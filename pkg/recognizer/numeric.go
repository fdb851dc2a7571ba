package recognizer

import (
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// Numeric converts plain decimal strings to float64. Fields on the
// string-number list are never converted.
type Numeric struct{}

func (Numeric) Kind() Kind { return KindNumeric }

func (n Numeric) IsLikelyType(field, value string) bool {
	return n.Confidence(field, value) >= DefaultMinConfidence
}

func (Numeric) Confidence(field, value string) float64 {
	if schema.IsStringNumberField(field) {
		return 0
	}
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "+") {
		return 0
	}
	if _, ok := common.ParseNumber(value); ok {
		return 0.6
	}
	return 0
}

func (Numeric) Normalize(value string) (any, error) {
	f, ok := common.ParseNumber(value)
	if !ok {
		return nil, ErrUnrecognized
	}
	return f, nil
}
