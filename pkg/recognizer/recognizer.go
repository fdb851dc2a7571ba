// Package recognizer scores and normalizes property values by semantic
// kind: coordinates, dates, emails, phone numbers, street addresses and plain
// numbers.
//
// Recognizers are pure. Normalizing an already normalized value returns it
// unchanged, which keeps canonicalization idempotent.
package recognizer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/schema"
)

type Kind string

const (
	KindCoordinate Kind = "coordinate"
	KindDate       Kind = "date"
	KindEmail      Kind = "email"
	KindPhone      Kind = "phone"
	KindAddress    Kind = "address"
	KindNumeric    Kind = "numeric"
)

// DefaultMinConfidence is the score a recognizer must reach before its
// normalization is applied.
const DefaultMinConfidence = 0.5

var ErrUnrecognized = errors.New("value not recognized")

// Recognizer detects one semantic kind of value.
type Recognizer interface {
	Kind() Kind
	IsLikelyType(field, value string) bool
	Confidence(field, value string) float64
	Normalize(value string) (any, error)
}

// Registry holds recognizers in priority order. When two recognizers report
// the same confidence the earlier one wins.
type Registry struct {
	recognizers   []Recognizer
	minConfidence float64
}

type Option func(*Registry)

// WithMinConfidence sets the acceptance threshold. Values outside (0, 1]
// keep the default.
func WithMinConfidence(min float64) Option {
	return func(r *Registry) {
		if min > 0 && min <= 1 {
			r.minConfidence = min
		}
	}
}

// WithDisabled removes the given kinds from the registry.
func WithDisabled(kinds ...Kind) Option {
	return func(r *Registry) {
		r.recognizers = slices.DeleteFunc(r.recognizers, func(rec Recognizer) bool {
			return slices.Contains(kinds, rec.Kind())
		})
	}
}

// New returns a registry holding the built-in recognizers in order
// Coordinate, Date, Email, Phone, Address, Numeric.
func New(opts ...Option) *Registry {
	r := &Registry{
		recognizers: []Recognizer{
			Coordinate{},
			Date{},
			Email{},
			Phone{},
			Address{},
			Numeric{},
		},
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kinds lists the enabled kinds in priority order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, len(r.recognizers))
	for i, rec := range r.recognizers {
		kinds[i] = rec.Kind()
	}
	return kinds
}

// Get returns the recognizer of the given kind if it is enabled.
func (r *Registry) Get(kind Kind) (Recognizer, bool) {
	for _, rec := range r.recognizers {
		if rec.Kind() == kind {
			return rec, true
		}
	}
	return nil, false
}

// Best returns the most confident recognizer for a value. Only strings are
// recognized. It reports false when no recognizer reaches the threshold.
func (r *Registry) Best(field string, value any) (Recognizer, float64, bool) {
	s, ok := value.(string)
	if !ok {
		return nil, 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, 0, false
	}

	var best Recognizer
	var bestScore float64
	for _, rec := range r.recognizers {
		score := rec.Confidence(field, s)
		if score > bestScore {
			best, bestScore = rec, score
		}
	}
	if best == nil || bestScore < r.minConfidence {
		return nil, bestScore, false
	}
	return best, bestScore, true
}

// Normalize applies the best recognizer to a value and returns it in
// property shape: coordinates become "lat, lng" strings. Unrecognized values
// are returned unchanged with an empty kind. On a normalization error the
// original value is returned together with the error.
func (r *Registry) Normalize(field string, value any) (any, Kind, error) {
	rec, _, ok := r.Best(field, value)
	if !ok {
		return value, "", nil
	}
	s := strings.TrimSpace(value.(string))
	out, err := rec.Normalize(s)
	if err != nil {
		return value, rec.Kind(), fmt.Errorf("%s %q: %w", rec.Kind(), s, err)
	}
	if c, ok := out.(common.Coordinate); ok {
		return FormatCoordinate(c), rec.Kind(), nil
	}
	return out, rec.Kind(), nil
}

// FormatCoordinate renders a coordinate in the "lat, lng" property form.
func FormatCoordinate(c common.Coordinate) string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// fieldHas reports whether any token of the field name equals one of the
// given words.
func fieldHas(field string, words ...string) bool {
	for _, tok := range schema.Tokenize(field) {
		if slices.Contains(words, tok) {
			return true
		}
	}
	return false
}
