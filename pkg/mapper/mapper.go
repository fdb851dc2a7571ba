// Package mapper resolves which input columns play the canonical roles of
// entities and links and turns reader datasets into raw graphs.
package mapper

import (
	"fmt"
	"slices"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

// Role is a canonical field a column can be mapped to.
type Role string

const (
	RoleID     Role = "id"
	RoleLabel  Role = "label"
	RoleType   Role = "type"
	RoleSource Role = "source"
	RoleTarget Role = "target"
)

// Assignment pins roles to column names. Roles left out are guessed.
type Assignment struct {
	Entities map[Role]string `json:"entities,omitempty"`
	Links    map[Role]string `json:"links,omitempty"`
}

type candidates struct {
	role  Role
	names []string
}

// Resolution order matters: a column is claimed by the first role that
// matches it, so link endpoints are resolved before the id.
var (
	entityRoles = []candidates{
		{RoleID, []string{"id"}},
		{RoleLabel, []string{"label", "name", "title"}},
		{RoleType, []string{"type", "entity_type"}},
	}
	linkRoles = []candidates{
		{RoleSource, []string{"source", "from"}},
		{RoleTarget, []string{"target", "to"}},
		{RoleType, []string{"type", "relationship"}},
		{RoleID, []string{"id"}},
		{RoleLabel, []string{"label"}},
	}
)

// Provenance and audit keys are honored by exact name in every format.
const (
	keySourceID          = "sourceId"
	keySourceName        = "sourceName"
	keySourceColor       = "sourceColor"
	keyTypeWasChanged    = "_typeWasChanged"
	keyLabelWasGenerated = "_labelWasGenerated"
)

// Mapper turns datasets into raw graphs.
type Mapper struct{}

func New() *Mapper {
	return &Mapper{}
}

// Map resolves roles and builds the raw graph. Records whose identifiers
// cannot be resolved are skipped and recorded in rep as SchemaErrors, as are
// the non-fatal errors the reader attached to the dataset.
func (m *Mapper) Map(ds *reader.Dataset, a Assignment, rep *report.Report) (*common.RawGraph, error) {
	if ds == nil {
		return nil, fmt.Errorf("mapper: nil dataset")
	}
	for _, err := range ds.Errors {
		rep.Add(err)
	}

	entityCols, idFallback := resolve(ds, ds.Entities, entityRoles, a.Entities, true)
	linkCols, _ := resolve(ds, ds.Links, linkRoles, a.Links, false)
	logger.Debug("[Mapper] Resolved roles", "format", ds.Format, "entities", entityCols, "links", linkCols)

	raw := &common.RawGraph{
		Entities: make([]*common.Entity, 0, len(ds.Entities)),
		Links:    make([]*common.Link, 0, len(ds.Links)),
	}
	keepLabelColumn := !ds.Structured()

	for i, rec := range ds.Entities {
		e, err := mapEntity(ds, i, rec, entityCols, keepLabelColumn, idFallback)
		if err != nil {
			rep.Add(err)
			continue
		}
		raw.Entities = append(raw.Entities, e)
	}
	for i, rec := range ds.Links {
		l, err := mapLink(ds, i, rec, linkCols)
		if err != nil {
			rep.Add(err)
			continue
		}
		raw.Links = append(raw.Links, l)
	}
	return raw, nil
}

// resolve computes the role to column table for one record list. Structured
// formats only use the exact canonical key of each role. The second result
// is set when the entity id fell back to the first unclaimed column; that
// column is then kept as a property too.
func resolve(ds *reader.Dataset, records []*reader.Record, roles []candidates, explicit map[Role]string, entities bool) (map[Role]string, bool) {
	columns := unionColumns(records)
	out := make(map[Role]string, len(roles))
	claimed := make(map[string]bool, len(roles))

	for _, rc := range roles {
		col, ok := explicit[rc.role]
		if !ok || col == "" {
			continue
		}
		if !slices.Contains(columns, col) {
			logger.Warn("[Mapper] Assigned column not present", "role", rc.role, "column", col)
			continue
		}
		out[rc.role] = col
		claimed[col] = true
	}

	if ds.Structured() {
		for _, rc := range roles {
			if _, done := out[rc.role]; done {
				continue
			}
			name := string(rc.role)
			if slices.Contains(columns, name) && !claimed[name] {
				out[rc.role] = name
				claimed[name] = true
			}
		}
		return out, false
	}

	for _, rc := range roles {
		if _, done := out[rc.role]; done {
			continue
		}
		if col, ok := guess(columns, rc.names, claimed); ok {
			out[rc.role] = col
			claimed[col] = true
		}
	}

	// The first unclaimed column only stands in for the id when it tells
	// every record apart; otherwise ids are synthesized per record.
	if _, ok := out[RoleID]; !ok && entities {
		for _, col := range columns {
			if claimed[col] {
				continue
			}
			if !uniqueIdentifiers(records, col) {
				logger.Debug("[Mapper] First column is not a unique id, synthesizing ids", "column", col)
				break
			}
			out[RoleID] = col
			return out, true
		}
	}
	return out, false
}

// uniqueIdentifiers reports whether every record holds a distinct,
// non-blank scalar in col.
func uniqueIdentifiers(records []*reader.Record, col string) bool {
	seen := make(map[string]bool, len(records))
	for _, rec := range records {
		id, err := identifier(rec, col)
		if err != nil || id == "" || seen[id] {
			return false
		}
		seen[id] = true
	}
	return len(seen) > 0
}

// guess finds a column by case-insensitive exact match over the candidate
// list, then by containment of a candidate's tokens in the column's tokens.
func guess(columns, names []string, claimed map[string]bool) (string, bool) {
	for _, name := range names {
		for _, col := range columns {
			if !claimed[col] && strings.EqualFold(strings.TrimSpace(col), name) {
				return col, true
			}
		}
	}
	for _, name := range names {
		want := schema.Tokenize(name)
		for _, col := range columns {
			if !claimed[col] && containsTokens(schema.Tokenize(col), want) {
				return col, true
			}
		}
	}
	return "", false
}

func containsTokens(have, want []string) bool {
	if len(want) == 0 || len(want) > len(have) {
		return false
	}
	for i := 0; i+len(want) <= len(have); i++ {
		if slices.Equal(have[i:i+len(want)], want) {
			return true
		}
	}
	return false
}

func unionColumns(records []*reader.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for _, c := range rec.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}

func mapEntity(ds *reader.Dataset, index int, rec *reader.Record, cols map[Role]string, keepLabelColumn, keepIDColumn bool) (*common.Entity, *report.Error) {
	ref := fmt.Sprintf("entities[%d]", index)
	id, err := identifier(rec, cols[RoleID])
	if err != nil {
		return nil, report.NewSchemaError(ref, err.Error())
	}
	if id == "" {
		id = reader.SynthesizeID(ds.Format, ds.SourceID, index)
	}

	e := &common.Entity{ID: id, Properties: common.Properties{}}
	consumed := map[string]bool{}
	if col, ok := cols[RoleID]; ok && !keepIDColumn {
		consumed[col] = true
	}
	if col, ok := cols[RoleType]; ok {
		e.Type, consumed[col] = roleValue(rec.Values[col])
	}
	if col, ok := cols[RoleLabel]; ok {
		e.Label, consumed[col] = roleValue(rec.Values[col])
		// Tabular label columns such as "name" stay visible as properties.
		if keepLabelColumn && col != string(RoleLabel) {
			consumed[col] = false
		}
	}

	for _, col := range rec.Columns {
		if consumed[col] {
			continue
		}
		v := rec.Values[col]
		switch col {
		case keySourceID:
			e.SourceID, _ = scalarString(v)
		case keySourceName:
			e.SourceName, _ = scalarString(v)
		case keySourceColor:
			e.SourceColor, _ = scalarString(v)
		case keyTypeWasChanged:
			e.TypeWasChanged, _ = v.(bool)
		case keyLabelWasGenerated:
			e.LabelWasGenerated, _ = v.(bool)
		default:
			e.Properties[col] = common.NormalizeValue(v)
		}
	}
	return e, nil
}

func mapLink(ds *reader.Dataset, index int, rec *reader.Record, cols map[Role]string) (*common.Link, *report.Error) {
	ref := fmt.Sprintf("links[%d]", index)
	id, err := identifier(rec, cols[RoleID])
	if err != nil {
		return nil, report.NewSchemaError(ref, err.Error())
	}
	if id == "" {
		id = reader.SynthesizeID(ds.Format, ds.SourceID, index)
	}
	ref = id

	source, err := identifier(rec, cols[RoleSource])
	if err != nil || source == "" {
		return nil, report.NewSchemaError(ref, "unresolvable link source")
	}
	target, err := identifier(rec, cols[RoleTarget])
	if err != nil || target == "" {
		return nil, report.NewSchemaError(ref, "unresolvable link target")
	}

	l := &common.Link{ID: id, Source: source, Target: target, Properties: common.Properties{}}
	consumed := map[string]bool{}
	for _, role := range []Role{RoleID, RoleSource, RoleTarget} {
		if col, ok := cols[role]; ok {
			consumed[col] = true
		}
	}
	if col, ok := cols[RoleType]; ok {
		l.Type, consumed[col] = roleValue(rec.Values[col])
	}
	if col, ok := cols[RoleLabel]; ok {
		l.Label, consumed[col] = roleValue(rec.Values[col])
	}
	for _, col := range rec.Columns {
		if !consumed[col] {
			l.Properties[col] = common.NormalizeValue(rec.Values[col])
		}
	}
	return l, nil
}

// identifier reads an id-like column as a string. A missing or blank value
// yields "", a non-scalar value is an error.
func identifier(rec *reader.Record, col string) (string, error) {
	if col == "" {
		return "", nil
	}
	v, ok := rec.Get(col)
	if !ok || common.IsBlank(v) {
		return "", nil
	}
	s, ok := common.FormatScalar(v)
	if !ok {
		return "", fmt.Errorf("%s is not a scalar value", col)
	}
	return strings.TrimSpace(s), nil
}

// roleValue reads a type or label column. The column is consumed unless its
// value is a list or object, which is kept as a property instead.
func roleValue(v any) (string, bool) {
	if common.IsBlank(v) {
		return "", true
	}
	s, ok := common.FormatScalar(v)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}

func scalarString(v any) (string, bool) {
	if common.IsBlank(v) {
		return "", false
	}
	s, ok := common.FormatScalar(v)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(s), true
}
