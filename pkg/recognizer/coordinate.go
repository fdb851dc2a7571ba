package recognizer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
)

var (
	decimalPairRe = regexp.MustCompile(`^\(?\s*([-+]?\d{1,3}(?:\.\d+)?)\s*[,;]\s*([-+]?\d{1,3}(?:\.\d+)?)\s*\)?$`)
	dmsPartRe     = `(\d{1,3})\s*°\s*(\d{1,2})\s*['′]\s*(\d{1,2}(?:\.\d+)?)\s*(?:["″]|'')?\s*([NSEWnsew])`
	dmsPairRe     = regexp.MustCompile(`^` + dmsPartRe + `\s*[,;]?\s*` + dmsPartRe + `$`)
)

var coordinateFields = []string{"coordinates", "coordinate", "coords", "coord", "latlng", "latlon", "geo", "gps", "position", "location"}

// Coordinate recognizes "lat, lng" pairs in decimal or DMS notation.
type Coordinate struct{}

func (Coordinate) Kind() Kind { return KindCoordinate }

func (c Coordinate) IsLikelyType(field, value string) bool {
	return c.Confidence(field, value) >= DefaultMinConfidence
}

func (Coordinate) Confidence(field, value string) float64 {
	value = strings.TrimSpace(value)
	named := fieldHas(field, coordinateFields...)

	if m := decimalPairRe.FindStringSubmatch(value); m != nil {
		coord, err := parseDecimalPair(m[1], m[2])
		if err != nil {
			return 0
		}
		switch {
		case named:
			return 0.95
		case strings.Contains(m[1], ".") && strings.Contains(m[2], "."):
			return 0.9
		case coord.Valid():
			return 0.4
		}
		return 0
	}
	if dmsPairRe.MatchString(value) {
		return 0.95
	}
	return 0
}

func (Coordinate) Normalize(value string) (any, error) {
	c, err := ParseCoordinate(value)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ParseCoordinate parses a decimal or DMS coordinate pair and checks its
// range.
func ParseCoordinate(value string) (common.Coordinate, error) {
	value = strings.TrimSpace(value)
	if m := decimalPairRe.FindStringSubmatch(value); m != nil {
		return parseDecimalPair(m[1], m[2])
	}
	if m := dmsPairRe.FindStringSubmatch(value); m != nil {
		a, aHemi, err := dmsToDecimal(m[1], m[2], m[3], m[4])
		if err != nil {
			return common.Coordinate{}, err
		}
		b, bHemi, err := dmsToDecimal(m[5], m[6], m[7], m[8])
		if err != nil {
			return common.Coordinate{}, err
		}
		var c common.Coordinate
		switch {
		case isLatHemi(aHemi) && !isLatHemi(bHemi):
			c = common.Coordinate{Latitude: a, Longitude: b}
		case !isLatHemi(aHemi) && isLatHemi(bHemi):
			c = common.Coordinate{Latitude: b, Longitude: a}
		default:
			return common.Coordinate{}, fmt.Errorf("ambiguous hemispheres %s/%s", aHemi, bHemi)
		}
		if !c.Valid() {
			return common.Coordinate{}, fmt.Errorf("coordinate out of range")
		}
		return c, nil
	}
	return common.Coordinate{}, ErrUnrecognized
}

func parseDecimalPair(lat, lng string) (common.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return common.Coordinate{}, err
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return common.Coordinate{}, err
	}
	c := common.Coordinate{Latitude: la, Longitude: lo}
	if !c.Valid() {
		return common.Coordinate{}, fmt.Errorf("coordinate out of range")
	}
	return c, nil
}

func dmsToDecimal(deg, min, sec, hemi string) (float64, string, error) {
	d, err := strconv.ParseFloat(deg, 64)
	if err != nil {
		return 0, "", err
	}
	m, err := strconv.ParseFloat(min, 64)
	if err != nil {
		return 0, "", err
	}
	s, err := strconv.ParseFloat(sec, 64)
	if err != nil {
		return 0, "", err
	}
	if m >= 60 || s >= 60 {
		return 0, "", fmt.Errorf("invalid minutes or seconds in %s°%s'%s\"", deg, min, sec)
	}
	hemi = strings.ToUpper(hemi)
	v := d + m/60 + s/3600
	if hemi == "S" || hemi == "W" {
		v = -v
	}
	return v, hemi, nil
}

func isLatHemi(h string) bool {
	return h == "N" || h == "S"
}
