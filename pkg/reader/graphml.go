package reader

import (
	"bytes"
	"context"
	"encoding/xml"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

type graphmlDoc struct {
	Keys   []graphmlKey   `xml:"key"`
	Graphs []graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID      string `xml:"id,attr"`
	For     string `xml:"for,attr"`
	Name    string `xml:"attr.name,attr"`
	Type    string `xml:"attr.type,attr"`
	Default string `xml:"default"`
}

type graphmlGraph struct {
	Nodes []graphmlNode `xml:"node"`
	Edges []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	ID     string        `xml:"id,attr"`
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// GraphMLReader reads <node> and <edge> elements. <data> values are resolved
// through the <key> declarations and converted by their declared attr.type.
type GraphMLReader struct{}

func (GraphMLReader) Read(ctx context.Context, src Source) (*Dataset, error) {
	var doc graphmlDoc
	if err := xml.NewDecoder(bytes.NewReader(src.Data)).Decode(&doc); err != nil {
		return nil, report.NewFormatError(src.Name, err)
	}

	keys := make(map[string]graphmlKey, len(doc.Keys))
	for _, k := range doc.Keys {
		keys[k.ID] = k
	}

	ds := &Dataset{Format: FormatGraphML, SourceID: src.ID}
	for _, g := range doc.Graphs {
		for _, n := range g.Nodes {
			if err := canceled(ctx, len(ds.Entities)); err != nil {
				return nil, err
			}
			rec := NewRecord()
			id := strings.TrimSpace(n.ID)
			if id == "" {
				id = SynthesizeID(FormatGraphML, src.ID, len(ds.Entities))
			}
			rec.Set("id", id)
			applyGraphMLData(rec, keys, "node", n.Data)
			ds.Entities = append(ds.Entities, rec)
		}
		for _, e := range g.Edges {
			if err := canceled(ctx, len(ds.Links)); err != nil {
				return nil, err
			}
			rec := NewRecord()
			id := strings.TrimSpace(e.ID)
			if id == "" {
				id = SynthesizeID(FormatGraphML, src.ID, len(ds.Links))
			}
			rec.Set("id", id)
			rec.Set("source", strings.TrimSpace(e.Source))
			rec.Set("target", strings.TrimSpace(e.Target))
			applyGraphMLData(rec, keys, "edge", e.Data)
			ds.Links = append(ds.Links, rec)
		}
	}
	return ds, nil
}

func applyGraphMLData(rec *Record, keys map[string]graphmlKey, scope string, data []graphmlData) {
	seen := make(map[string]bool, len(data))
	for _, d := range data {
		k, declared := keys[d.Key]
		name := d.Key
		if declared && k.Name != "" {
			name = k.Name
		}
		seen[d.Key] = true
		if name == "id" || name == "source" || name == "target" {
			name = "data." + name
		}
		rec.Set(name, typedValue(name, d.Value, k.Type))
	}

	// Declared defaults fill data the element omits.
	for _, id := range slices.Sorted(maps.Keys(keys)) {
		k := keys[id]
		if seen[id] || k.Default == "" || (k.For != scope && k.For != "all" && k.For != "") {
			continue
		}
		name := k.Name
		if name == "" {
			name = id
		}
		if !rec.Has(name) {
			rec.Set(name, typedValue(name, k.Default, k.Type))
		}
	}
}

// typedValue converts text according to a GraphML or GEXF attribute type.
// Undeclared types are converted like delimited cells. The string-number
// guard applies either way.
func typedValue(column, text, attrType string) any {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil
	}
	switch strings.ToLower(attrType) {
	case "boolean":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return s
	case "int", "integer", "long", "float", "double":
		if schema.IsStringNumberField(column) {
			return s
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return s
	case "string", "liststring", "anyuri", "date":
		return s
	}
	if f, ok := common.ParseNumber(s); ok && !schema.IsStringNumberField(column) {
		return f
	}
	return s
}
