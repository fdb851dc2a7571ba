package pgx

import (
	"encoding/json"
	"fmt"

	"github.com/wsmontes/linkchart/pkg/common"
)

type entityRow struct {
	ID                string
	Type              string
	Label             string
	Properties        []byte
	SourceID          string
	SourceName        string
	SourceColor       string
	TypeWasChanged    bool
	LabelWasGenerated bool
}

func (r entityRow) entity() (*common.Entity, error) {
	props, err := decodeProperties(r.Properties)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", r.ID, err)
	}
	return &common.Entity{
		ID:                r.ID,
		Type:              r.Type,
		Label:             r.Label,
		Properties:        props,
		SourceID:          r.SourceID,
		SourceName:        r.SourceName,
		SourceColor:       r.SourceColor,
		TypeWasChanged:    r.TypeWasChanged,
		LabelWasGenerated: r.LabelWasGenerated,
	}, nil
}

type linkRow struct {
	ID         string
	Source     string
	Target     string
	Type       string
	Label      string
	Properties []byte
}

func (r linkRow) link() (*common.Link, error) {
	props, err := decodeProperties(r.Properties)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", r.ID, err)
	}
	return &common.Link{
		ID:         r.ID,
		Source:     r.Source,
		Target:     r.Target,
		Type:       r.Type,
		Label:      r.Label,
		Properties: props,
	}, nil
}

func entityArgs(graphID string, e *common.Entity) ([]any, error) {
	props, err := encodeProperties(e.Properties)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", e.ID, err)
	}
	return []any{
		graphID, e.ID, e.Type, e.Label, props,
		e.SourceID, e.SourceName, e.SourceColor,
		e.TypeWasChanged, e.LabelWasGenerated,
	}, nil
}

func linkArgs(graphID string, l *common.Link) ([]any, error) {
	props, err := encodeProperties(l.Properties)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", l.ID, err)
	}
	return []any{graphID, l.ID, l.Source, l.Target, l.Type, l.Label, props}, nil
}

func sourceArgs(graphID string, src *common.DataSource) []any {
	return []any{
		graphID, src.ID, src.Name, string(src.Kind), src.Icon, src.Color,
		src.Metadata.ImportedAt, src.Metadata.EntityCount, src.Metadata.LinkCount,
	}
}

func encodeProperties(p common.Properties) ([]byte, error) {
	if p == nil {
		p = common.Properties{}
	}
	return json.Marshal(p)
}

func decodeProperties(b []byte) (common.Properties, error) {
	props := common.Properties{}
	if len(b) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(b, &props); err != nil {
		return nil, fmt.Errorf("decode properties: %w", err)
	}
	for k, v := range props {
		props[k] = common.NormalizeValue(v)
	}
	return props, nil
}

const upsertGraphSQL = `
INSERT INTO graphs (id) VALUES ($1)
ON CONFLICT (id) DO UPDATE SET updated_at = now();
`

const graphExistsSQL = `SELECT 1 FROM graphs WHERE id = $1;`

const deleteGraphSQL = `DELETE FROM graphs WHERE id = $1;`

const deleteLinksSQL = `DELETE FROM graph_links WHERE graph_id = $1;`

const deleteEntitiesSQL = `DELETE FROM graph_entities WHERE graph_id = $1;`

const deleteSourcesSQL = `DELETE FROM data_sources WHERE graph_id = $1;`

// Existing rows keep their canonical fields and provenance. Incoming
// properties only fill names that are absent or null.
const upsertEntitySQL = `
INSERT INTO graph_entities (
    graph_id, id, type, label, properties,
    source_id, source_name, source_color,
    type_was_changed, label_was_generated
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (graph_id, id) DO UPDATE
SET properties = graph_entities.properties || (
        EXCLUDED.properties - ARRAY(
            SELECT key FROM jsonb_each(graph_entities.properties)
            WHERE value <> 'null'::jsonb
        )
    ),
    updated_at = now();
`

const insertLinkSQL = `
INSERT INTO graph_links (graph_id, id, source, target, type, label, properties)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (graph_id, id) DO NOTHING;
`

const upsertSourceSQL = `
INSERT INTO data_sources (
    graph_id, id, name, kind, icon, color,
    imported_at, entity_count, link_count
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (graph_id, id) DO UPDATE
SET name         = EXCLUDED.name,
    kind         = EXCLUDED.kind,
    icon         = EXCLUDED.icon,
    color        = EXCLUDED.color,
    imported_at  = EXCLUDED.imported_at,
    entity_count = EXCLUDED.entity_count,
    link_count   = EXCLUDED.link_count;
`

const selectEntitiesSQL = `
SELECT id, type, label, properties, source_id, source_name, source_color,
       type_was_changed, label_was_generated
FROM graph_entities
WHERE graph_id = $1
ORDER BY id;
`

const selectLinksSQL = `
SELECT id, source, target, type, label, properties
FROM graph_links
WHERE graph_id = $1
ORDER BY id;
`

const selectSourcesSQL = `
SELECT id, name, kind, icon, color, imported_at, entity_count, link_count
FROM data_sources
WHERE graph_id = $1
ORDER BY imported_at, id;
`
