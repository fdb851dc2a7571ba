package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
)

func record(pairs ...any) *reader.Record {
	rec := reader.NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.Set(pairs[i].(string), pairs[i+1])
	}
	return rec
}

func TestMapTabularGuessesRoles(t *testing.T) {
	ds := &reader.Dataset{
		Format:   reader.FormatDelimited,
		SourceID: "s2",
		Entities: []*reader.Record{record("id", "1", "name", "Acme", "type", "Company")},
		Links:    []*reader.Record{record("from", 1.0, "to", 2.0, "relationship", "owns")},
	}
	rep := report.New()
	raw, err := New().Map(ds, Assignment{}, rep)
	require.NoError(t, err)

	require.Len(t, raw.Entities, 1)
	e := raw.Entities[0]
	assert.Equal(t, "1", e.ID)
	assert.Equal(t, "Acme", e.Label)
	assert.Equal(t, "Company", e.Type)
	assert.Equal(t, "Acme", e.Properties["name"], "tabular label columns stay as properties")
	assert.NotContains(t, e.Properties, "type")

	require.Len(t, raw.Links, 1)
	l := raw.Links[0]
	assert.Equal(t, "csv_s2_0", l.ID)
	assert.Equal(t, "1", l.Source)
	assert.Equal(t, "2", l.Target)
	assert.Equal(t, "owns", l.Type)
	assert.Empty(t, l.Properties)
	assert.True(t, rep.Empty())
}

func TestMapTabularContainsMatch(t *testing.T) {
	ds := &reader.Dataset{
		Format: reader.FormatDelimited,
		Entities: []*reader.Record{
			record("person_id", "p1", "full_name", "Ada", "entity_type", "person", "photo", "x.png"),
		},
		Links: []*reader.Record{
			record("from_id", "p1", "to_id", "p2", "photo", "y.png"),
		},
	}
	raw, err := New().Map(ds, Assignment{}, nil)
	require.NoError(t, err)

	e := raw.Entities[0]
	assert.Equal(t, "p1", e.ID)
	assert.Equal(t, "Ada", e.Label)
	assert.Equal(t, "person", e.Type)
	assert.Equal(t, "x.png", e.Properties["photo"])

	l := raw.Links[0]
	assert.Equal(t, "p1", l.Source)
	assert.Equal(t, "p2", l.Target)
	assert.Equal(t, "y.png", l.Properties["photo"], "\"photo\" is not a \"to\" column")
}

func TestMapFirstColumnFallback(t *testing.T) {
	ds := &reader.Dataset{
		Format: reader.FormatDelimited,
		Entities: []*reader.Record{
			record("callsign", "ALPHA", "city", "Oslo"),
			record("callsign", "BRAVO", "city", "Oslo"),
		},
	}
	raw, err := New().Map(ds, Assignment{}, nil)
	require.NoError(t, err)
	require.Len(t, raw.Entities, 2)
	assert.Equal(t, "ALPHA", raw.Entities[0].ID)
	assert.Equal(t, "BRAVO", raw.Entities[1].ID)
	assert.Equal(t, "ALPHA", raw.Entities[0].Properties["callsign"])
	assert.Equal(t, "Oslo", raw.Entities[0].Properties["city"])
}

func TestMapFirstColumnFallbackNeedsUniqueValues(t *testing.T) {
	tests := []struct {
		name    string
		records []*reader.Record
	}{
		{
			name: "shared value",
			records: []*reader.Record{
				record("name", "Alice", "city", "Paris"),
				record("name", "Bob", "city", "Paris"),
				record("name", "Carol", "city", "Oslo"),
			},
		},
		{
			name: "blank value",
			records: []*reader.Record{
				record("city", "Paris"),
				record("city", ""),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &reader.Dataset{Format: reader.FormatDelimited, SourceID: "s", Entities: tt.records}
			raw, err := New().Map(ds, Assignment{}, nil)
			require.NoError(t, err)
			require.Len(t, raw.Entities, len(tt.records))
			ids := map[string]bool{}
			for i, e := range raw.Entities {
				assert.Equal(t, reader.SynthesizeID(reader.FormatDelimited, "s", i), e.ID)
				assert.Equal(t, tt.records[i].Values["city"], e.Properties["city"])
				ids[e.ID] = true
			}
			assert.Len(t, ids, len(tt.records))
		})
	}
}

func TestMapExplicitAssignmentWins(t *testing.T) {
	ds := &reader.Dataset{
		Format:   reader.FormatDelimited,
		Entities: []*reader.Record{record("id", "row-1", "ref", "R1", "name", "Ada")},
	}
	raw, err := New().Map(ds, Assignment{Entities: map[Role]string{RoleID: "ref", RoleType: "missing"}}, nil)
	require.NoError(t, err)
	e := raw.Entities[0]
	assert.Equal(t, "R1", e.ID)
	assert.Equal(t, "row-1", e.Properties["id"])
	assert.Empty(t, e.Type)
}

func TestMapStructuredUsesExactKeys(t *testing.T) {
	ds := &reader.Dataset{
		Format:   reader.FormatJSON,
		SourceID: "j",
		Entities: []*reader.Record{
			record("id", "a", "first_name", "Ada", "last_name", "Lovelace", "name", "Ada", "sourceId", "src", "_typeWasChanged", true),
			record("name", "No Id"),
		},
	}
	raw, err := New().Map(ds, Assignment{}, nil)
	require.NoError(t, err)
	require.Len(t, raw.Entities, 2)

	a := raw.Entities[0]
	assert.Equal(t, "a", a.ID)
	assert.Empty(t, a.Label, "name is not a label key in structured formats")
	assert.Equal(t, "Ada", a.Properties["name"])
	assert.Equal(t, "src", a.SourceID)
	assert.True(t, a.TypeWasChanged)
	assert.NotContains(t, a.Properties, "sourceId")

	assert.Equal(t, "json_j_1", raw.Entities[1].ID)
}

func TestMapSchemaErrors(t *testing.T) {
	ds := &reader.Dataset{
		Format: reader.FormatJSON,
		Entities: []*reader.Record{
			record("id", map[string]any{"nested": true}),
			record("id", "ok"),
		},
		Links: []*reader.Record{
			record("id", "l1", "target", "ok"),
			record("id", "l2", "source", []any{"x"}, "target", "ok"),
			record("id", "l3", "source", "ok", "target", "ok"),
		},
		Errors: []*report.Error{report.NewSchemaError("entities[9]", "not an object")},
	}
	rep := report.New()
	raw, err := New().Map(ds, Assignment{}, rep)
	require.NoError(t, err)

	require.Len(t, raw.Entities, 1)
	require.Len(t, raw.Links, 1)
	assert.Equal(t, "l3", raw.Links[0].ID)
	assert.Equal(t, 4, rep.Count(report.KindSchema))
}

func TestMapNilDataset(t *testing.T) {
	_, err := New().Map(nil, Assignment{}, nil)
	assert.Error(t, err)
}
