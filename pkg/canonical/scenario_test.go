package canonical_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wsmontes/linkchart/pkg/canonical"
	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/mapper"
	"github.com/wsmontes/linkchart/pkg/reader"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

func ingest(t *testing.T, src reader.Source) (*common.Graph, *report.Report) {
	t.Helper()
	ctx := context.Background()
	if src.ID == "" {
		src.ID = "t"
	}

	ds, err := reader.NewRegistry(nil).Read(ctx, src)
	require.NoError(t, err)
	rep := report.New()
	raw, err := mapper.New().Map(ds, mapper.Assignment{}, rep)
	require.NoError(t, err)

	p, err := canonical.New(canonical.Config{})
	require.NoError(t, err)
	g, rep, err := p.Canonicalize(ctx, raw, canonical.Options{Report: rep})
	require.NoError(t, err)
	assertCanonical(t, g)
	return g, rep
}

// assertCanonical checks referential closure, label totality and type
// validity.
func assertCanonical(t *testing.T, g *common.Graph) {
	t.Helper()
	types := schema.Default()
	for id, e := range g.Entities {
		assert.Equal(t, id, e.ID)
		assert.NotEmpty(t, e.Label, "entity %s has no label", id)
		assert.True(t, types.IsEntityType(e.Type), "entity %s has type %q", id, e.Type)
	}
	for id, l := range g.Links {
		assert.Contains(t, g.Entities, l.Source, "link %s source", id)
		assert.Contains(t, g.Entities, l.Target, "link %s target", id)
		_, ok := types.LinkType(l.Type)
		assert.True(t, ok, "link %s has type %q", id, l.Type)
		assert.NotEmpty(t, l.Label)
	}
}

func TestScenarioJSONPerson(t *testing.T) {
	g, _ := ingest(t, reader.Source{
		Name: "people.json",
		Data: []byte(`[{"id":"a","name":"Ada","first_name":"Ada","last_name":"Lovelace"}]`),
	})

	require.Len(t, g.Entities, 1)
	ada := g.Entities["a"]
	require.NotNil(t, ada)
	assert.Equal(t, schema.TypePerson, ada.Type)
	assert.Equal(t, "Ada", ada.Label)
	assert.True(t, ada.TypeWasChanged)
	assert.True(t, ada.LabelWasGenerated)
	assert.Equal(t, "Ada", ada.Properties["name"])
	assert.Equal(t, "Ada", ada.Properties["first_name"])
	assert.Equal(t, "Lovelace", ada.Properties["last_name"])
}

func TestScenarioCSVPairPrunesDanglingLinks(t *testing.T) {
	g, rep := ingest(t, reader.Source{
		Name:      "entities.csv",
		Data:      []byte("id,name,type\n1,Acme,Company\n"),
		LinksName: "links.csv",
		Links:     []byte("from,to,relationship\n1,2,owns\n"),
	})

	require.Len(t, g.Entities, 1)
	acme := g.Entities["1"]
	require.NotNil(t, acme)
	assert.Equal(t, schema.TypeOrganization, acme.Type)
	assert.Equal(t, "Acme", acme.Label)
	assert.False(t, acme.TypeWasChanged)

	assert.Empty(t, g.Links)
	assert.Equal(t, 1, rep.SkippedLinks)
	assert.Equal(t, 1, rep.Count(report.KindReference))
	assert.Zero(t, rep.Warnings(), "reference errors are not warnings")
}

func TestScenarioCypher(t *testing.T) {
	g, _ := ingest(t, reader.Source{
		Name: "export.cypher",
		Data: []byte(`CREATE (a:Person {name:"Bob"}) CREATE (b:Organization {name:"Acme"}) CREATE (a)-[:OWNS]->(b)`),
	})

	require.Len(t, g.Entities, 2)
	assert.Equal(t, schema.TypePerson, g.Entities["a"].Type)
	assert.Equal(t, "Bob", g.Entities["a"].Label)
	assert.Equal(t, schema.TypeOrganization, g.Entities["b"].Type)
	assert.Equal(t, "Acme", g.Entities["b"].Label)

	require.Len(t, g.Links, 1)
	for _, l := range g.Links {
		assert.Equal(t, "a", l.Source)
		assert.Equal(t, "b", l.Target)
		assert.Equal(t, schema.LinkOwns, l.Type)
		assert.Equal(t, "Owns", l.Label)
	}
}

func TestScenarioGraphMLLocation(t *testing.T) {
	g, _ := ingest(t, reader.Source{
		Name: "places.graphml",
		Data: []byte(`<?xml version="1.0"?>
<graphml>
  <key id="lat" for="node" attr.name="latitude" attr.type="double"/>
  <key id="lng" for="node" attr.name="longitude" attr.type="double"/>
  <graph>
    <node id="paris"><data key="lat">48.8566</data><data key="lng">2.3522</data></node>
  </graph>
</graphml>`),
	})

	paris := g.Entities["paris"]
	require.NotNil(t, paris)
	assert.Equal(t, schema.TypeLocation, paris.Type)
	assert.Equal(t, 48.8566, paris.Properties["latitude"])
	assert.Equal(t, 2.3522, paris.Properties["longitude"])
	assert.Equal(t, "paris", paris.Label)
}

func TestScenarioOrganizationKeyword(t *testing.T) {
	g, _ := ingest(t, reader.Source{Name: "org.json", Data: []byte(`{"id": "x", "label": "ABC Corp"}`)})
	require.Contains(t, g.Entities, "x")
	assert.Equal(t, schema.TypeOrganization, g.Entities["x"].Type)
	assert.Equal(t, "ABC Corp", g.Entities["x"].Label)
	assert.False(t, g.Entities["x"].LabelWasGenerated)
}

func TestScenarioZipCodeStaysString(t *testing.T) {
	g, _ := ingest(t, reader.Source{Name: "addr.csv", Data: []byte("id,name,zip_code\n1,Ada,07302\n")})
	require.Contains(t, g.Entities, "1")
	assert.Equal(t, "07302", g.Entities["1"].Properties["zip_code"])
}

func sharedCityWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"name", "city", "role"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Alice", "Paris", "analyst"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Bob", "Paris", "courier"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"Carol", "Oslo", "analyst"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// Tabular input without an id column keeps one entity per row and every
// input column as a property.
func TestInformationPreservationWithoutIDColumn(t *testing.T) {
	rows := [][3]string{
		{"Alice", "Paris", "analyst"},
		{"Bob", "Paris", "courier"},
		{"Carol", "Oslo", "analyst"},
	}
	tests := []struct {
		name   string
		src    reader.Source
		format reader.Format
	}{
		{
			name:   "csv",
			src:    reader.Source{Name: "people.csv", Data: []byte("name,city,role\nAlice,Paris,analyst\nBob,Paris,courier\nCarol,Oslo,analyst\n")},
			format: reader.FormatDelimited,
		},
		{
			name:   "xlsx",
			src:    reader.Source{Name: "people.xlsx", Data: sharedCityWorkbook(t)},
			format: reader.FormatXLSX,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, rep := ingest(t, tt.src)
			require.Len(t, g.Entities, len(rows))
			assert.Equal(t, 0, rep.DroppedEntities)

			for i, row := range rows {
				id := reader.SynthesizeID(tt.format, "t", i)
				e, ok := g.Entities[id]
				require.True(t, ok, "missing entity %s", id)
				assert.Equal(t, row[0], e.Label)
				assert.Equal(t, row[0], e.Properties["name"])
				assert.Equal(t, row[1], e.Properties["city"])
				assert.Contains(t, e.Properties, "role")
			}
		})
	}
}

func TestIdempotence(t *testing.T) {
	g, _ := ingest(t, reader.Source{
		Name: "mixed.json",
		Data: []byte(`{
			"nodes": [
				{"id": "p1", "name": "Grace Brewer Hopper", "phone": "+1 (555) 123-4567", "dob": "12/09/1906"},
				{"id": "p2", "type": "Individual", "first_name": "Alan", "last_name": "Turing", "email": "ALAN@Example.org"},
				{"id": "o1", "label": "Acme Inc", "website": "https://acme.test", "founded": "1999"},
				{"id": "l1", "coordinates": "40.7128, -74.0060", "type": "place"},
				{"id": "v1", "type": "spaceship"}
			],
			"edges": [
				{"source": "p1", "target": "p2", "label": "married to spouse"},
				{"source": "p1", "target": "o1", "type": "WORKS_FOR"},
				{"source": "p2", "target": "l1"},
				{"source": "o1", "target": "l1", "note": "email thread"},
				{"source": "p1", "target": "ghost"}
			]
		}`),
	})

	p, err := canonical.New(canonical.Config{})
	require.NoError(t, err)
	again, _, err := p.Canonicalize(context.Background(), g.Raw(), canonical.Options{})
	require.NoError(t, err)
	assert.Equal(t, g, again)
}

func TestLinkTypeInference(t *testing.T) {
	g, _ := ingest(t, reader.Source{
		Name: "links.json",
		Data: []byte(`{
			"nodes": [
				{"id": "p1", "type": "person", "label": "A"},
				{"id": "p2", "type": "person", "label": "B"},
				{"id": "o1", "type": "organization", "label": "C"},
				{"id": "l1", "type": "location", "label": "D"},
				{"id": "e1", "type": "event", "label": "E"}
			],
			"edges": [
				{"id": "fam", "source": "p1", "target": "p2", "label": "married to spouse"},
				{"id": "assoc", "source": "p1", "target": "p2"},
				{"id": "own", "source": "p1", "target": "o1", "type": "WORKS_FOR"},
				{"id": "trip", "source": "p2", "target": "l1"},
				{"id": "comm", "source": "o1", "target": "e1", "note": "email thread"},
				{"id": "other", "source": "e1", "target": "l1"}
			]
		}`),
	})

	want := map[string]string{
		"fam":   schema.LinkFamily,
		"assoc": schema.LinkAssociates,
		"own":   schema.LinkOwns,
		"trip":  schema.LinkTravels,
		"comm":  schema.LinkCommunicates,
		"other": schema.LinkAssociates,
	}
	for id, typ := range want {
		require.Contains(t, g.Links, id)
		assert.Equal(t, typ, g.Links[id].Type, id)
	}
	assert.Equal(t, "WORKS_FOR", g.Links["own"].Properties["relationship"])
}

func TestFallbackRetention(t *testing.T) {
	g, rep := ingest(t, reader.Source{Name: "bare.json", Data: []byte(`[{"id": "a"}, {"id": "b", "empty": ""}]`)})

	assert.True(t, rep.FallbackApplied)
	require.Len(t, g.Entities, 2)
	assert.Equal(t, "a", g.Entities["a"].Label)
	assert.True(t, g.Entities["a"].LabelWasGenerated)
	assert.Nil(t, g.Entities["b"].Properties["empty"])
}

func TestPartialFilterDoesNotFallback(t *testing.T) {
	g, rep := ingest(t, reader.Source{Name: "mixed.json", Data: []byte(`[{"id": "a"}, {"id": "b", "label": "Bee"}]`)})
	assert.False(t, rep.FallbackApplied)
	assert.Equal(t, 1, rep.DroppedEntities)
	assert.Len(t, g.Entities, 1)
	assert.Contains(t, g.Entities, "b")
}

func TestRoundTripThroughJSONReader(t *testing.T) {
	g, _ := ingest(t, reader.Source{
		Name: "export.cypher",
		Data: []byte(`CREATE (a:Person {name:"Bob Stone", zip: "07302"}) CREATE (b:Location {city:"Oslo"}) CREATE (a)-[:VISITED]->(b)`),
	})
	encoded, err := json.Marshal(g)
	require.NoError(t, err)

	back, _ := ingest(t, reader.Source{Name: "graph.json", Data: encoded})
	assert.Equal(t, g, back)
}
