package recognizer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	numberPrefixRe = regexp.MustCompile(`^\d+[A-Za-z]?\s+[A-Za-z]`)
	postalCodeRe   = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
)

// streetSuffixes maps abbreviations and full forms to the expanded form.
var streetSuffixes = map[string]string{
	"st": "Street", "street": "Street",
	"ave": "Avenue", "av": "Avenue", "avenue": "Avenue",
	"rd": "Road", "road": "Road",
	"blvd": "Boulevard", "boulevard": "Boulevard",
	"dr": "Drive", "drive": "Drive",
	"ln": "Lane", "lane": "Lane",
	"ct": "Court", "court": "Court",
	"pl": "Place", "place": "Place",
	"sq": "Square", "square": "Square",
	"ter": "Terrace", "terrace": "Terrace",
	"cir": "Circle", "circle": "Circle",
	"pkwy": "Parkway", "parkway": "Parkway",
	"hwy": "Highway", "highway": "Highway",
	"way": "Way",
}

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true, "CO": true, "CT": true, "DE": true,
	"FL": true, "GA": true, "HI": true, "ID": true, "IL": true, "IN": true, "IA": true, "KS": true,
	"KY": true, "LA": true, "ME": true, "MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true, "NJ": true, "NM": true, "NY": true,
	"NC": true, "ND": true, "OH": true, "OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true, "VA": true, "WA": true, "WV": true,
	"WI": true, "WY": true, "DC": true,
}

var addressFields = []string{"address", "addr", "street", "residence", "domicile", "mailing", "shipping", "billing"}

// Address recognizes street addresses and normalizes suffixes,
// capitalization and state codes.
type Address struct{}

func (Address) Kind() Kind { return KindAddress }

func (a Address) IsLikelyType(field, value string) bool {
	return a.Confidence(field, value) >= DefaultMinConfidence
}

func (Address) Confidence(field, value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" || !strings.ContainsFunc(value, unicode.IsLetter) {
		return 0
	}

	var score float64
	if fieldHas(field, addressFields...) {
		score += 0.4
	}
	if numberPrefixRe.MatchString(value) {
		score += 0.3
	}
	words := addressWords(value)
	for i, w := range words {
		if i == 0 {
			continue
		}
		if _, ok := streetSuffixes[strings.ToLower(w.bare)]; ok {
			score += 0.3
			break
		}
	}
	if postalCodeRe.MatchString(value) {
		score += 0.15
	}
	for _, w := range words {
		if w.stateCode {
			score += 0.15
			break
		}
	}
	return min(score, 1)
}

func (Address) Normalize(value string) (any, error) {
	words := addressWords(strings.TrimSpace(value))
	if len(words) == 0 {
		return nil, ErrUnrecognized
	}
	out := make([]string, len(words))
	for i, w := range words {
		switch {
		case w.stateCode:
			out[i] = strings.ToUpper(w.bare) + w.trail
		case i > 0 && streetSuffixes[strings.ToLower(w.bare)] != "":
			out[i] = streetSuffixes[strings.ToLower(w.bare)] + w.trail
		case w.bare == strings.ToLower(w.bare):
			out[i] = capitalize(w.bare) + w.trail
		default:
			out[i] = w.raw
		}
	}
	return strings.Join(out, " "), nil
}

type addressWord struct {
	raw       string
	bare      string
	trail     string
	stateCode bool
}

// addressWords splits on whitespace and marks two-letter state codes that
// follow a comma or are written in upper case.
func addressWords(value string) []addressWord {
	fields := strings.Fields(value)
	words := make([]addressWord, len(fields))
	afterComma := false
	for i, f := range fields {
		bare := strings.TrimRight(f, ".,;")
		trail := strings.TrimPrefix(f[len(bare):], ".")
		w := addressWord{raw: f, bare: bare, trail: trail}
		if len(bare) == 2 && usStates[strings.ToUpper(bare)] && (afterComma || bare == strings.ToUpper(bare)) && i > 0 {
			w.stateCode = true
		}
		words[i] = w
		afterComma = strings.HasSuffix(f, ",")
	}
	return words
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
