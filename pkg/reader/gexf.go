package reader

import (
	"bytes"
	"context"
	"encoding/xml"
	"maps"
	"slices"
	"strings"

	"github.com/wsmontes/linkchart/pkg/report"
)

type gexfDoc struct {
	Graph gexfGraph `xml:"graph"`
}

type gexfGraph struct {
	Attributes []gexfAttributes `xml:"attributes"`
	Nodes      []gexfNode       `xml:"nodes>node"`
	Edges      []gexfEdge       `xml:"edges>edge"`
}

type gexfAttributes struct {
	Class string          `xml:"class,attr"`
	Attrs []gexfAttribute `xml:"attribute"`
}

type gexfAttribute struct {
	ID      string `xml:"id,attr"`
	Title   string `xml:"title,attr"`
	Type    string `xml:"type,attr"`
	Default string `xml:"default"`
}

type gexfNode struct {
	ID        string         `xml:"id,attr"`
	Label     string         `xml:"label,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
}

type gexfEdge struct {
	ID        string         `xml:"id,attr"`
	Source    string         `xml:"source,attr"`
	Target    string         `xml:"target,attr"`
	Label     string         `xml:"label,attr"`
	Type      string         `xml:"type,attr"`
	Kind      string         `xml:"kind,attr"`
	Weight    string         `xml:"weight,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
}

// GEXF 1.1 files name the attribute with "id" instead of "for".
type gexfAttValue struct {
	For   string `xml:"for,attr"`
	ID    string `xml:"id,attr"`
	Value string `xml:"value,attr"`
}

func (v gexfAttValue) key() string {
	if v.For != "" {
		return v.For
	}
	return v.ID
}

// GEXFReader reads Gephi exchange files. Attribute values are resolved
// through the <attributes> declarations of their class.
type GEXFReader struct{}

func (GEXFReader) Read(ctx context.Context, src Source) (*Dataset, error) {
	var doc gexfDoc
	if err := xml.NewDecoder(bytes.NewReader(src.Data)).Decode(&doc); err != nil {
		return nil, report.NewFormatError(src.Name, err)
	}

	attrs := map[string]map[string]gexfAttribute{
		"node": {},
		"edge": {},
	}
	for _, group := range doc.Graph.Attributes {
		class := strings.ToLower(group.Class)
		if class == "" {
			class = "node"
		}
		if _, ok := attrs[class]; !ok {
			continue
		}
		for _, a := range group.Attrs {
			attrs[class][a.ID] = a
		}
	}

	ds := &Dataset{Format: FormatGEXF, SourceID: src.ID}
	for i, n := range doc.Graph.Nodes {
		if err := canceled(ctx, i); err != nil {
			return nil, err
		}
		rec := NewRecord()
		id := strings.TrimSpace(n.ID)
		if id == "" {
			id = SynthesizeID(FormatGEXF, src.ID, i)
		}
		rec.Set("id", id)
		if l := strings.TrimSpace(n.Label); l != "" {
			rec.Set("label", l)
		}
		applyAttValues(rec, attrs["node"], n.AttValues)
		ds.Entities = append(ds.Entities, rec)
	}

	for i, e := range doc.Graph.Edges {
		if err := canceled(ctx, i); err != nil {
			return nil, err
		}
		rec := NewRecord()
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = SynthesizeID(FormatGEXF, src.ID, i)
		}
		rec.Set("id", id)
		rec.Set("source", strings.TrimSpace(e.Source))
		rec.Set("target", strings.TrimSpace(e.Target))
		if l := strings.TrimSpace(e.Label); l != "" {
			rec.Set("label", l)
		}
		// The edge "type" attribute is directedness, not a relationship.
		if t := strings.TrimSpace(e.Type); t != "" {
			rec.Set("directedness", t)
		}
		if k := strings.TrimSpace(e.Kind); k != "" {
			rec.Set("type", k)
		}
		if w := strings.TrimSpace(e.Weight); w != "" {
			rec.Set("weight", typedValue("weight", w, "double"))
		}
		applyAttValues(rec, attrs["edge"], e.AttValues)
		ds.Links = append(ds.Links, rec)
	}
	return ds, nil
}

func applyAttValues(rec *Record, decl map[string]gexfAttribute, values []gexfAttValue) {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		key := v.key()
		a, ok := decl[key]
		name := key
		if ok && a.Title != "" {
			name = a.Title
		}
		seen[key] = true
		if name == "id" || name == "source" || name == "target" {
			name = "attr." + name
		}
		rec.Set(name, typedValue(name, v.Value, a.Type))
	}
	for _, id := range slices.Sorted(maps.Keys(decl)) {
		a := decl[id]
		if seen[id] || a.Default == "" {
			continue
		}
		name := a.Title
		if name == "" {
			name = id
		}
		if !rec.Has(name) {
			rec.Set(name, typedValue(name, a.Default, a.Type))
		}
	}
}
