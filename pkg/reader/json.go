package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
)

// ReservedKeys stay canonical and are never flattened into properties.
var ReservedKeys = []string{
	"id", "type", "label", "source", "target",
	"sourceId", "sourceName", "sourceColor",
	"_typeWasChanged", "_labelWasGenerated",
}

func isReserved(key string) bool {
	for _, k := range ReservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// JSONReader accepts a top-level array of entities, an object with
// nodes/entities and edges/links collections (arrays or id-keyed maps), or a
// single object read as one entity.
type JSONReader struct{}

func (JSONReader) Read(ctx context.Context, src Source) (*Dataset, error) {
	doc, err := decodeJSON(src.Data, src.Options.RepairJSON)
	if err != nil {
		return nil, report.NewFormatError(src.Name, err)
	}

	ds := &Dataset{Format: FormatJSON, SourceID: src.ID}
	switch v := doc.(type) {
	case []any:
		ds.Entities, err = jsonRecords(ctx, ds, v, "entities")
	case map[string]any:
		entities, hasEntities := firstKey(v, "nodes", "entities")
		links, hasLinks := firstKey(v, "edges", "links")
		if !hasEntities && !hasLinks {
			ds.Entities = []*Record{flattenObject(v)}
			break
		}
		if hasEntities {
			if ds.Entities, err = collection(ctx, ds, entities, "entities"); err != nil {
				break
			}
		}
		if hasLinks {
			ds.Links, err = collection(ctx, ds, links, "links")
		}
	default:
		return nil, report.FormatErrorf(src.Name, "unsupported top-level JSON value %T", doc)
	}
	if err != nil {
		return nil, err
	}

	for i, rec := range ds.Entities {
		if !rec.Has("id") || common.IsBlank(rec.Values["id"]) {
			rec.Set("id", SynthesizeID(FormatJSON, src.ID, i))
		}
	}
	for i, rec := range ds.Links {
		if !rec.Has("id") || common.IsBlank(rec.Values["id"]) {
			rec.Set("id", SynthesizeID(FormatJSON, src.ID, i))
		}
	}
	return ds, nil
}

// decodeJSON decodes a document with numbers preserved as json.Number.
// With repair enabled a malformed document is run through jsonrepair before
// giving up.
func decodeJSON(data []byte, repair bool) (any, error) {
	doc, err := decodeStrict(data)
	if err == nil || !repair {
		return doc, err
	}

	repaired, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return nil, fmt.Errorf("%w (repair failed: %v)", err, rerr)
	}
	doc, rerr = decodeStrict([]byte(repaired))
	if rerr != nil {
		return nil, fmt.Errorf("%w (after repair: %v)", err, rerr)
	}
	return doc, nil
}

func decodeStrict(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty document")
		}
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return doc, nil
}

func firstKey(m map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// collection reads an array of objects or a map of id to object.
func collection(ctx context.Context, ds *Dataset, v any, kind string) ([]*Record, error) {
	switch c := v.(type) {
	case []any:
		return jsonRecords(ctx, ds, c, kind)
	case map[string]any:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]any, 0, len(c))
		for _, k := range keys {
			obj, ok := c[k].(map[string]any)
			if !ok {
				ds.Errors = append(ds.Errors, report.NewSchemaError(kind+"."+k, "not an object"))
				continue
			}
			if _, has := obj["id"]; !has {
				obj["id"] = k
			}
			items = append(items, obj)
		}
		return jsonRecords(ctx, ds, items, kind)
	}
	return nil, report.FormatErrorf(kind, "expected array or object, got %T", v)
}

func jsonRecords(ctx context.Context, ds *Dataset, items []any, kind string) ([]*Record, error) {
	records := make([]*Record, 0, len(items))
	for i, item := range items {
		if err := canceled(ctx, i); err != nil {
			return nil, err
		}
		obj, ok := item.(map[string]any)
		if !ok {
			ds.Errors = append(ds.Errors, report.NewSchemaError(fmt.Sprintf("%s[%d]", kind, i), "not an object"))
			continue
		}
		records = append(records, flattenObject(obj))
	}
	return records, nil
}

// flattenObject turns an object into a record. Reserved keys keep their raw
// scalar value, a nested "properties" object is merged into the record and
// other nested objects are flattened with dotted keys.
func flattenObject(obj map[string]any) *Record {
	rec := NewRecord()
	keys := sortedKeys(obj)

	for _, k := range keys {
		if isReserved(k) {
			rec.Set(k, reservedValue(obj[k]))
		}
	}
	for _, k := range keys {
		if isReserved(k) || k == "properties" {
			continue
		}
		flattenInto(rec, k, obj[k])
	}
	if props, ok := obj["properties"].(map[string]any); ok {
		for _, k := range sortedKeys(props) {
			col := k
			if rec.Has(col) {
				col = "properties." + k
			}
			flattenInto(rec, col, props[k])
		}
	} else if p, ok := obj["properties"]; ok && p != nil {
		flattenInto(rec, "properties", p)
	}
	return rec
}

func flattenInto(rec *Record, prefix string, v any) {
	if m, ok := v.(map[string]any); ok {
		if len(m) == 0 {
			rec.Set(prefix, nil)
			return
		}
		for _, k := range sortedKeys(m) {
			flattenInto(rec, prefix+"."+k, m[k])
		}
		return
	}
	rec.Set(prefix, common.NormalizeValue(v))
}

// reservedValue keeps json.Number ids textual so "007" and 7 stay distinct.
// Objects and lists are kept as decoded; the mapper rejects them where a
// scalar is required.
func reservedValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case string:
		return strings.TrimSpace(val)
	case map[string]any, []any:
		return val
	}
	return common.NormalizeValue(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
