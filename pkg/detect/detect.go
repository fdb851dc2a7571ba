// Package detect infers an entity's canonical type from its label and
// properties with a weighted scoring model over the profiles declared in
// the schema registry.
package detect

import (
	"slices"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/recognizer"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// Score weights.
const (
	KeywordWeight    = 2.0
	PropertyWeight   = 1.0
	PatternWeight    = 1.5
	CoordinateWeight = 3.0
	IndicatorWeight  = 2.0
	fallbackType     = schema.TypePerson
)

// Result is the outcome of a detection. Scores holds every candidate's score
// for diagnostics.
type Result struct {
	Type   string             `json:"type"`
	Scores map[string]float64 `json:"scores"`
}

// Detector scores entities against registered types.
type Detector interface {
	Detect(e *common.Entity) Result
}

// ProfileDetector is the default Detector.
type ProfileDetector struct {
	registry    *schema.Registry
	defaultType string
}

type Option func(*ProfileDetector)

// WithDefaultType sets the type returned when no candidate scores or the
// winner is not canonical. Non-canonical values are ignored.
func WithDefaultType(t string) Option {
	return func(d *ProfileDetector) {
		if d.registry.IsEntityType(t) {
			d.defaultType = t
		}
	}
}

func New(registry *schema.Registry, opts ...Option) *ProfileDetector {
	d := &ProfileDetector{registry: registry, defaultType: fallbackType}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DefaultType is the type used when detection has no signal.
func (d *ProfileDetector) DefaultType() string {
	return d.defaultType
}

func (d *ProfileDetector) Detect(e *common.Entity) Result {
	res := Result{Type: d.defaultType, Scores: make(map[string]float64)}
	if e == nil {
		return res
	}

	var best string
	var bestScore float64
	for _, t := range d.registry.EntityTypes() {
		score := d.score(t, e)
		res.Scores[t.Name] = score
		// Strictly greater keeps ties on the earliest declared type.
		if score > bestScore {
			best, bestScore = t.Name, score
		}
	}
	if best != "" && d.registry.IsEntityType(best) {
		res.Type = best
	}
	return res
}

func (d *ProfileDetector) score(t *schema.EntityType, e *common.Entity) float64 {
	var score float64

	for _, kw := range t.Profile.Keywords {
		if schema.HasWord(e.Label, kw) {
			score += KeywordWeight
			break
		}
	}

	for name := range e.Properties {
		lname := strings.ToLower(name)
		for _, p := range t.Profile.Properties {
			if lname == p || strings.Contains(lname, p) {
				score += PropertyWeight
				break
			}
		}
	}

	for _, p := range t.Patterns {
		for name, value := range e.Properties {
			if !p.Field.MatchString(name) {
				continue
			}
			if p.Value != nil {
				s, ok := common.FormatScalar(value)
				if !ok || !p.Value.MatchString(s) {
					continue
				}
			}
			score += PatternWeight
		}
	}

	switch t.Name {
	case schema.TypeLocation:
		if HasCoordinates(e.Properties) {
			score += CoordinateWeight
		}
	case schema.TypePerson:
		if hasAny(e.Properties, schema.PersonIndicators) {
			score += IndicatorWeight
		}
	case schema.TypeOrganization:
		if hasAny(e.Properties, schema.OrganizationIndicators) {
			score += IndicatorWeight
		}
	}
	return score
}

// HasCoordinates reports whether properties hold a valid latitude/longitude
// pair, under either full or short names, or a parseable coordinates string.
func HasCoordinates(props common.Properties) bool {
	if c, ok := CoordinatesOf(props); ok {
		return c.Valid()
	}
	return false
}

// CoordinatesOf extracts a coordinate from properties.
func CoordinatesOf(props common.Properties) (common.Coordinate, bool) {
	lat, latOK := firstNumber(props, "latitude", "lat")
	lng, lngOK := firstNumber(props, "longitude", "lng", "lon", "long")
	if latOK && lngOK {
		c := common.Coordinate{Latitude: lat, Longitude: lng}
		return c, c.Valid()
	}
	if s, ok := props["coordinates"].(string); ok {
		if c, err := recognizer.ParseCoordinate(s); err == nil {
			return c, true
		}
	}
	return common.Coordinate{}, false
}

func firstNumber(props common.Properties, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := common.ToFloat(props[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func hasAny(props common.Properties, keys []string) bool {
	for name, v := range props {
		if v == nil {
			continue
		}
		if slices.Contains(keys, strings.ToLower(name)) {
			return true
		}
	}
	return false
}
