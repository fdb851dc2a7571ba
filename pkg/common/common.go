package common

import (
	"maps"
	"slices"
)

// Properties is the open property bag carried by entities and links.
// Values are restricted to string, float64, bool, nil or []any of those;
// NormalizeValue coerces arbitrary decoded values into that shape.
type Properties map[string]any

// Clone returns a shallow copy of the property bag. List values are copied
// so that the clone can be rewritten without touching the original.
func (p Properties) Clone() Properties {
	if p == nil {
		return Properties{}
	}
	out := make(Properties, len(p))
	for k, v := range p {
		if list, ok := v.([]any); ok {
			v = slices.Clone(list)
		}
		out[k] = v
	}
	return out
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

// Entity represents a node in the graph. An entity is a person,
// organization, location or any other registered canonical type.
//
// After canonicalization ID, Type and Label are always set. The audit flags
// record whether the type was inferred and whether the label was synthesized.
type Entity struct {
	ID                string     `json:"id"`
	Type              string     `json:"type"`
	Label             string     `json:"label"`
	Properties        Properties `json:"properties"`
	SourceID          string     `json:"sourceId,omitempty"`
	SourceName        string     `json:"sourceName,omitempty"`
	SourceColor       string     `json:"sourceColor,omitempty"`
	TypeWasChanged    bool       `json:"_typeWasChanged,omitempty"`
	LabelWasGenerated bool       `json:"_labelWasGenerated,omitempty"`
}

// Clone returns a copy of the entity with its own property bag.
func (e *Entity) Clone() *Entity {
	c := *e
	c.Properties = e.Properties.Clone()
	return &c
}

// Link represents a directed edge between two entities.
type Link struct {
	ID         string     `json:"id"`
	Source     string     `json:"source"`
	Target     string     `json:"target"`
	Type       string     `json:"type"`
	Label      string     `json:"label,omitempty"`
	Properties Properties `json:"properties"`
}

// Clone returns a copy of the link with its own property bag.
func (l *Link) Clone() *Link {
	c := *l
	c.Properties = l.Properties.Clone()
	return &c
}

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}
