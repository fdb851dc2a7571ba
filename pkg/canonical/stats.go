package canonical

import (
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// statistics summarizes entities and links. Missing types count blank and
// "unknown" types; links missing an endpoint are those referring to an id
// absent from entities.
func statistics(entities []*common.Entity, links []*common.Link) report.Statistics {
	st := report.Statistics{
		EntityCount:       len(entities),
		LinkCount:         len(links),
		EntitiesByType:    make(map[string]int),
		LinksByType:       make(map[string]int),
		PropertyFrequency: make(map[string]int),
	}

	ids := make(map[string]bool, len(entities))
	for _, e := range entities {
		if e == nil {
			continue
		}
		ids[e.ID] = true

		t := strings.ToLower(strings.TrimSpace(e.Type))
		if t == "" || t == schema.TypeUnknown {
			st.Quality.MissingTypes++
			t = schema.TypeUnknown
		}
		st.EntitiesByType[t]++

		if strings.TrimSpace(e.Label) == "" {
			st.Quality.MissingLabels++
		}
		if len(e.Properties) == 0 {
			st.Quality.EmptyProperties++
		}
		for k := range e.Properties {
			st.PropertyFrequency[k]++
		}
	}

	for _, l := range links {
		if l == nil {
			continue
		}
		t := strings.ToLower(strings.TrimSpace(l.Type))
		if t == "" {
			t = schema.TypeUnknown
		}
		st.LinksByType[t]++
		if !ids[l.Source] || !ids[l.Target] {
			st.Quality.LinksMissingEndpoint++
		}
	}
	return st
}
