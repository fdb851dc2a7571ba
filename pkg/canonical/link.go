package canonical

import (
	"slices"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

type linkProcessor struct {
	*state
}

// process normalizes one raw link against the processed entities. A link
// whose endpoint is missing yields a ReferenceError.
func (p *linkProcessor) process(in *common.Link, entities map[string]*common.Entity) (*common.Link, *report.Error) {
	l := in.Clone()
	if l.Properties == nil {
		l.Properties = common.Properties{}
	}
	l.Source = strings.TrimSpace(l.Source)
	l.Target = strings.TrimSpace(l.Target)

	src, ok := entities[l.Source]
	if !ok {
		return nil, report.NewReferenceError(l.ID, "source "+l.Source)
	}
	dst, ok := entities[l.Target]
	if !ok {
		return nil, report.NewReferenceError(l.ID, "target "+l.Target)
	}

	original := strings.TrimSpace(l.Type)
	if t, ok := p.types.NormalizeLinkType(original); ok {
		l.Type = t
	} else {
		l.Type = p.inferLinkType(l, src, dst)
		if original != "" && !strings.EqualFold(original, schema.TypeUnknown) {
			if _, taken := l.Properties["relationship"]; !taken {
				l.Properties["relationship"] = original
			}
		}
	}

	l.Properties = cleanLinkProperties(l.Properties)

	l.Label = strings.TrimSpace(l.Label)
	if l.Label == "" {
		l.Label = p.types.LinkLabel(l.Type)
	}
	return l, nil
}

// inferLinkType derives a relationship from the endpoint types and from
// hint words in the label, property names and string property values.
func (p *linkProcessor) inferLinkType(l *common.Link, src, dst *common.Entity) string {
	switch {
	case src.Type == schema.TypePerson && dst.Type == schema.TypePerson:
		if linkHasHint(l, schema.FamilyHints) {
			return schema.LinkFamily
		}
		return schema.LinkAssociates
	case src.Type == schema.TypePerson && dst.Type == schema.TypeOrganization:
		return schema.LinkOwns
	case src.Type == schema.TypePerson && dst.Type == schema.TypeLocation:
		return schema.LinkTravels
	case linkHasHint(l, schema.CommunicationHints):
		return schema.LinkCommunicates
	}
	return schema.LinkAssociates
}

func linkHasHint(l *common.Link, hints []string) bool {
	for _, h := range hints {
		if schema.HasWord(l.Label, h) {
			return true
		}
	}
	for name, v := range l.Properties {
		tokens := schema.Tokenize(name)
		s, isString := v.(string)
		for _, h := range hints {
			if slices.Contains(tokens, h) || (isString && schema.HasWord(s, h)) {
				return true
			}
		}
	}
	return false
}

// cleanLinkProperties drops nil and empty values and trims strings.
func cleanLinkProperties(props common.Properties) common.Properties {
	out := make(common.Properties, len(props))
	for k, v := range props {
		if s, ok := v.(string); ok {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			out[k] = s
			continue
		}
		if v == nil {
			continue
		}
		out[k] = common.NormalizeValue(v)
	}
	return out
}
