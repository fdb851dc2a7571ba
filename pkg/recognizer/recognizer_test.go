package recognizer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/common"
)

func TestBestPicksKind(t *testing.T) {
	r := New()
	tests := []struct {
		field string
		value any
		kind  Kind
		ok    bool
	}{
		{"coordinates", "40.7128, -74.0060", KindCoordinate, true},
		{"where", "40°42'46\"N 74°0'22\"W", KindCoordinate, true},
		{"dob", "1815-12-10", KindDate, true},
		{"met", "12/10/1815", KindDate, true},
		{"met", "10 December 1815", KindDate, true},
		{"contact", "Ada@Example.org", KindEmail, true},
		{"phone", "(555) 123-4567", KindPhone, true},
		{"other", "+44 20 7946 0958", KindPhone, true},
		{"home", "221b baker st, london", KindAddress, true},
		{"age", "36", KindNumeric, true},
		{"zip_code", "07302", "", false},
		{"notes", "just some text", "", false},
		{"age", 36.0, "", false},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s=%v", tc.field, tc.value), func(t *testing.T) {
			rec, _, ok := r.Best(tc.field, tc.value)
			require.Equal(t, tc.ok, ok)
			if ok {
				assert.Equal(t, tc.kind, rec.Kind())
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	r := New()
	tests := []struct {
		field string
		in    string
		want  any
	}{
		{"coordinates", "40.7128,-74.0060", "40.7128, -74.006"},
		{"pos", "40°30'0\"N, 74°15'0\"W", "40.5, -74.25"},
		{"date", "2024-03-05T10:00:00Z", "2024-03-05"},
		{"date", "13/02/2024", "2024-02-13"},
		{"date", "05.01.2024", "2024-01-05"},
		{"date", "March 5th, 2024", "2024-03-05"},
		{"email", " Ada@Example.ORG ", "ada@example.org"},
		{"phone", "(555) 123-4567", "5551234567"},
		{"phone", "1-555-123-4567", "+15551234567"},
		{"phone", "+49 30 1234567", "+49301234567"},
		{"address", "123 main st, springfield, il 62704", "123 Main Street, Springfield, IL 62704"},
		{"amount", "12.50", 12.5},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, _, err := r.Normalize(tc.field, tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)

			again, _, err := r.Normalize(tc.field, got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalization must be idempotent")
		})
	}
}

func TestStringNumberGuard(t *testing.T) {
	r := New()
	for _, field := range []string{"zip_code", "postalCode", "account_number", "year", "isbn"} {
		got, kind, err := r.Normalize(field, "07302")
		require.NoError(t, err)
		assert.Equal(t, "07302", got, field)
		assert.NotEqual(t, KindNumeric, kind, field)
	}
}

func TestDisabledKindsAndThreshold(t *testing.T) {
	r := New(WithDisabled(KindEmail, KindNumeric))
	assert.Equal(t, []Kind{KindCoordinate, KindDate, KindPhone, KindAddress}, r.Kinds())

	got, kind, err := r.Normalize("contact", "Ada@Example.org")
	require.NoError(t, err)
	assert.Equal(t, "Ada@Example.org", got)
	assert.Empty(t, kind)

	strict := New(WithMinConfidence(0.99))
	_, _, ok := strict.Best("age", "36")
	assert.False(t, ok)
}

type failing struct{}

func (failing) Kind() Kind { return KindDate }
func (failing) IsLikelyType(string, string) bool { return true }
func (failing) Confidence(string, string) float64 { return 1 }
func (failing) Normalize(string) (any, error) { return nil, errors.New("boom") }

func TestNormalizeErrorPassesValueThrough(t *testing.T) {
	r := &Registry{recognizers: []Recognizer{failing{}}, minConfidence: DefaultMinConfidence}
	got, kind, err := r.Normalize("date", "sometime")
	require.Error(t, err)
	assert.Equal(t, KindDate, kind)
	assert.Equal(t, "sometime", got)

	// Impossible calendar dates are not claimed by any recognizer.
	got, kind, err = New().Normalize("date", "2024-02-30")
	assert.NoError(t, err)
	assert.Empty(t, kind)
	assert.Equal(t, "2024-02-30", got)
}

func TestParseCoordinate(t *testing.T) {
	c, err := ParseCoordinate("(51.5, -0.12)")
	require.NoError(t, err)
	assert.Equal(t, common.Coordinate{Latitude: 51.5, Longitude: -0.12}, c)

	_, err = ParseCoordinate("95.0, 10.0")
	assert.Error(t, err)

	_, err = ParseCoordinate("not a coordinate")
	assert.ErrorIs(t, err, ErrUnrecognized)
}
