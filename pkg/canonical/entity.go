package canonical

import (
	"context"
	"fmt"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/recognizer"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// Label sources, tried in order before the per-type fallbacks.
var labelProperties = []string{"name", "title", "label", "id"}

type entityProcessor struct {
	*state
	rep *report.Report
}

// process normalizes one raw entity. It reports whether the entity passes
// the retention filter; with filter false every entity is retained. Panics
// are recovered and returned as errors.
func (p *entityProcessor) process(ctx context.Context, in *common.Entity, filter bool) (out *common.Entity, keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, keep, err = nil, false, fmt.Errorf("panic: %v", r)
		}
	}()

	if in == nil {
		return nil, false, fmt.Errorf("nil entity")
	}
	if strings.TrimSpace(in.ID) == "" {
		return nil, false, fmt.Errorf("entity without id")
	}

	e := in.Clone()
	e.ID = strings.TrimSpace(e.ID)
	inputLabel := strings.TrimSpace(in.Label)

	p.resolveType(e)

	e.Properties = p.cleanProperties(e.ID, e.Properties)

	switch e.Type {
	case schema.TypeLocation:
		p.extractLocation(ctx, e)
	case schema.TypePerson:
		extractPersonName(e)
	}

	e.Label = strings.TrimSpace(e.Label)
	if e.Label == "" {
		e.Label = synthesizeLabel(e)
		e.LabelWasGenerated = true
	}

	if !filter {
		return e, true, nil
	}
	keep = p.types.IsEntityType(e.Type) && (inputLabel != "" || hasValues(e.Properties))
	return e, keep, nil
}

// resolveType maps the type through the alias table and falls back to
// detection when it is missing or not canonical.
func (p *entityProcessor) resolveType(e *common.Entity) {
	if t, ok := p.types.NormalizeEntityType(e.Type); ok {
		e.Type = t
		return
	}
	if p.typeDetection {
		res := p.detector.Detect(e)
		logger.Debug("[Canonical] Detected type", "id", e.ID, "from", e.Type, "type", res.Type)
		e.Type = res.Type
	} else {
		e.Type = p.defaultType
	}
	e.TypeWasChanged = true
}

func (p *entityProcessor) cleanProperties(id string, props common.Properties) common.Properties {
	out := make(common.Properties, len(props))
	for k, v := range props {
		out[k] = p.cleanValue(id, k, v)
	}
	return out
}

// cleanValue trims strings, turns empty strings into nil and applies the
// best recognizer. Recognizer failures keep the value and are reported.
func (p *entityProcessor) cleanValue(id, field string, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil
		}
		norm, kind, err := p.recognizers.Normalize(field, s)
		if err != nil {
			logger.Warn("[Canonical] Value normalization failed", "entity", id, "field", field, "kind", kind, "err", err)
			p.rep.Add(report.NewRecognizerError(id+"."+field, err))
			return s
		}
		return norm
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = p.cleanValue(id, field, item)
		}
		return list
	}
	return common.NormalizeValue(v)
}

// extractLocation fills latitude and longitude from a coordinates string,
// from short aliases, or by geocoding the address.
func (p *entityProcessor) extractLocation(ctx context.Context, e *common.Entity) {
	props := e.Properties
	_, hasLat := common.ToFloat(props["latitude"])
	_, hasLng := common.ToFloat(props["longitude"])

	if s, ok := props["coordinates"].(string); ok && !(hasLat && hasLng) {
		if c, err := recognizer.ParseCoordinate(s); err == nil {
			props["latitude"], props["longitude"] = c.Latitude, c.Longitude
			hasLat, hasLng = true, true
		}
	}
	if f, ok := common.ToFloat(props["lat"]); ok && !hasLat {
		props["latitude"] = f
		hasLat = true
	}
	if !hasLng {
		for _, alias := range []string{"lng", "lon", "long"} {
			if f, ok := common.ToFloat(props[alias]); ok {
				props["longitude"] = f
				hasLng = true
				break
			}
		}
	}

	if hasLat && hasLng || p.geocoder == nil {
		return
	}
	address, ok := props["address"].(string)
	if !ok || address == "" {
		return
	}
	c, err := p.geocoder.Geocode(ctx, address)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("[Canonical] Geocoding failed", "entity", e.ID, "address", address, "err", err)
			p.rep.Add(report.NewExternalServiceError(e.ID+".address", err))
		}
		return
	}
	props["latitude"], props["longitude"] = c.Latitude, c.Longitude
}

// extractPersonName splits a full name or joins first and last name,
// whichever side is missing.
func extractPersonName(e *common.Entity) {
	props := e.Properties
	name, hasName := props["name"].(string)
	first, hasFirst := props["first_name"].(string)
	last, hasLast := props["last_name"].(string)

	switch {
	case hasName && !hasFirst && !hasLast:
		parts := strings.Fields(name)
		if len(parts) == 0 {
			return
		}
		props["first_name"] = parts[0]
		if len(parts) > 1 {
			props["last_name"] = strings.Join(parts[1:], " ")
		}
	case !hasName && hasFirst && hasLast:
		props["name"] = first + " " + last
	}
}

func synthesizeLabel(e *common.Entity) string {
	props := e.Properties
	for _, k := range labelProperties {
		if s, ok := stringProp(props, k); ok {
			return s
		}
	}

	switch e.Type {
	case schema.TypePerson:
		first, _ := stringProp(props, "first_name")
		last, _ := stringProp(props, "last_name")
		if full := strings.TrimSpace(first + " " + last); full != "" {
			return full
		}
		for _, k := range []string{"username", "email"} {
			if s, ok := stringProp(props, k); ok {
				return s
			}
		}
	case schema.TypeOrganization:
		for _, k := range []string{"company_name", "org_name"} {
			if s, ok := stringProp(props, k); ok {
				return s
			}
		}
	case schema.TypeLocation:
		if s, ok := stringProp(props, "address"); ok {
			return s
		}
		var parts []string
		for _, k := range []string{"city", "country"} {
			if s, ok := stringProp(props, k); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}

	if e.ID != "" {
		return e.ID
	}
	return "New " + e.Type
}

func stringProp(props common.Properties, key string) (string, bool) {
	v, ok := props[key]
	if !ok || common.IsBlank(v) {
		return "", false
	}
	s, ok := common.FormatScalar(v)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func hasValues(props common.Properties) bool {
	for _, v := range props {
		if v != nil {
			return true
		}
	}
	return false
}

// repair admits an entity that failed processing during fallback retention
// with the minimum needed for a valid canonical entity.
func (p *entityProcessor) repair(in *common.Entity) *common.Entity {
	e := in.Clone()
	e.ID = strings.TrimSpace(e.ID)
	props := make(common.Properties, len(e.Properties))
	for k, v := range e.Properties {
		props[k] = common.NormalizeValue(v)
	}
	e.Properties = props
	if t, ok := p.types.NormalizeEntityType(e.Type); ok {
		e.Type = t
	} else {
		e.Type = schema.TypePerson
		e.TypeWasChanged = true
	}
	if strings.TrimSpace(e.Label) == "" {
		e.Label = e.ID
		e.LabelWasGenerated = true
	}
	return e
}
