package common

import (
	"maps"
	"slices"
)

// Graph is a canonical graph: entities and links keyed by id.
//
// Every link's Source and Target refer to an entry in Entities. The pipeline
// establishes that invariant; callers that mutate a Graph directly can
// restore it with Prune.
type Graph struct {
	Entities map[string]*Entity `json:"entities"`
	Links    map[string]*Link   `json:"links"`
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Entities: make(map[string]*Entity),
		Links:    make(map[string]*Link),
	}
}

// RawGraph is the ordered, pre-canonical form produced by the field mapper.
// Entities and links may lack types and labels; ids are always present.
type RawGraph struct {
	Entities []*Entity `json:"entities"`
	Links    []*Link   `json:"links"`
}

// Raw converts the graph back into its ordered form, sorted by id. Feeding
// the result to the canonicalizer again yields the same graph.
func (g *Graph) Raw() *RawGraph {
	raw := &RawGraph{
		Entities: make([]*Entity, 0, len(g.Entities)),
		Links:    make([]*Link, 0, len(g.Links)),
	}
	for _, id := range slices.Sorted(maps.Keys(g.Entities)) {
		raw.Entities = append(raw.Entities, g.Entities[id].Clone())
	}
	for _, id := range slices.Sorted(maps.Keys(g.Links)) {
		raw.Links = append(raw.Links, g.Links[id].Clone())
	}
	return raw
}

// Prune removes every link whose source or target entity is missing and
// returns the number of removed links.
func (g *Graph) Prune() int {
	removed := 0
	for id, link := range g.Links {
		_, hasSource := g.Entities[link.Source]
		_, hasTarget := g.Entities[link.Target]
		if !hasSource || !hasTarget {
			delete(g.Links, id)
			removed++
		}
	}
	return removed
}

// Merge folds other into g. Entities already present keep their provenance
// and canonical fields; incoming properties fill in names that are absent or
// nil. Links are added when their id is new. The merged graph is pruned so
// that referential closure still holds.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	if g.Entities == nil {
		g.Entities = make(map[string]*Entity)
	}
	if g.Links == nil {
		g.Links = make(map[string]*Link)
	}

	for id, incoming := range other.Entities {
		existing, ok := g.Entities[id]
		if !ok {
			g.Entities[id] = incoming.Clone()
			continue
		}
		if existing.Properties == nil {
			existing.Properties = Properties{}
		}
		for k, v := range incoming.Properties {
			if cur, ok := existing.Properties[k]; !ok || cur == nil {
				existing.Properties[k] = v
			}
		}
	}
	for id, link := range other.Links {
		if _, ok := g.Links[id]; !ok {
			g.Links[id] = link.Clone()
		}
	}
	g.Prune()
}
