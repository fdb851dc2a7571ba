package reader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

func readJSON(t *testing.T, data string, opts Options) *Dataset {
	t.Helper()
	ds, err := JSONReader{}.Read(context.Background(), Source{ID: "j", Name: "in.json", Data: []byte(data), Options: opts})
	require.NoError(t, err)
	return ds
}

func TestJSONTopLevelArray(t *testing.T) {
	ds := readJSON(t, `[{"id":"a","name":"Ada","first_name":"Ada","last_name":"Lovelace"}]`, Options{})
	require.Len(t, ds.Entities, 1)
	rec := ds.Entities[0]
	assert.Equal(t, "a", rec.Values["id"])
	assert.Equal(t, "Ada", rec.Values["name"])
	assert.Equal(t, "Lovelace", rec.Values["last_name"])
	assert.Equal(t, "id", rec.Columns[0], "reserved keys come first")
}

func TestJSONNodesAndEdges(t *testing.T) {
	ds := readJSON(t, `{
		"nodes": [{"id": 7, "label": "Seven"}, {"label": "no id"}, "junk"],
		"edges": [{"source": 7, "target": "x", "type": "knows"}]
	}`, Options{})

	require.Len(t, ds.Entities, 2)
	assert.Equal(t, "7", ds.Entities[0].Values["id"], "numeric ids stay textual")
	assert.Equal(t, "json_j_1", ds.Entities[1].Values["id"])
	require.Len(t, ds.Links, 1)
	assert.Equal(t, "7", ds.Links[0].Values["source"])
	assert.Equal(t, "json_j_0", ds.Links[0].Values["id"])

	require.Len(t, ds.Errors, 1)
	assert.Equal(t, report.KindSchema, ds.Errors[0].Kind)
}

func TestJSONCanonicalGraphShape(t *testing.T) {
	ds := readJSON(t, `{
		"entities": {"p1": {"type": "person", "label": "Ada", "properties": {"age": 36, "label": "dup"}}},
		"links": {"l1": {"source": "p1", "target": "p1", "type": "associates", "properties": {}}}
	}`, Options{})

	require.Len(t, ds.Entities, 1)
	rec := ds.Entities[0]
	assert.Equal(t, "p1", rec.Values["id"], "map keys become ids")
	assert.Equal(t, "Ada", rec.Values["label"])
	assert.Equal(t, 36.0, rec.Values["age"])
	assert.Equal(t, "dup", rec.Values["properties.label"])

	require.Len(t, ds.Links, 1)
	assert.Equal(t, "l1", ds.Links[0].Values["id"])
}

func TestJSONNestedObjectsFlatten(t *testing.T) {
	ds := readJSON(t, `{"id": "x", "address": {"city": "Paris", "geo": {"lat": 48.8}}, "tags": ["a", 1]}`, Options{})
	require.Len(t, ds.Entities, 1)
	rec := ds.Entities[0]
	assert.Equal(t, "Paris", rec.Values["address.city"])
	assert.Equal(t, 48.8, rec.Values["address.geo.lat"])
	assert.Equal(t, []any{"a", 1.0}, rec.Values["tags"])
}

func TestJSONMalformed(t *testing.T) {
	for _, data := range []string{`[{"id": 1,}`, ``, `{"a":1} {"b":2}`, `"just a string"`} {
		_, err := JSONReader{}.Read(context.Background(), Source{Name: "bad.json", Data: []byte(data)})
		assert.ErrorIs(t, err, report.ErrFormat, data)
	}
}

func TestJSONRepair(t *testing.T) {
	ds := readJSON(t, `[{'id': 'a', name: 'Ada',}]`, Options{RepairJSON: true})
	require.Len(t, ds.Entities, 1)
	assert.Equal(t, "Ada", ds.Entities[0].Values["name"])
}

const graphmlDoc1 = `<?xml version="1.0" encoding="UTF-8"?>
<graphml xmlns="http://graphml.graphdrawing.org/xmlns">
  <key id="d0" for="node" attr.name="latitude" attr.type="double"/>
  <key id="d1" for="node" attr.name="longitude" attr.type="double"/>
  <key id="d2" for="node" attr.name="label" attr.type="string"/>
  <key id="d3" for="node" attr.name="zip" attr.type="int"/>
  <key id="d4" for="edge" attr.name="type" attr.type="string"><default>associates</default></key>
  <key id="d5" for="node" attr.name="id" attr.type="string"/>
  <graph edgedefault="directed">
    <node id="n0">
      <data key="d0">48.8566</data>
      <data key="d1">2.3522</data>
      <data key="d2">Paris</data>
      <data key="d3">07302</data>
      <data key="d5">shadow</data>
    </node>
    <node>
      <data key="undeclared">42</data>
    </node>
    <edge source="n0" target="n1"/>
  </graph>
</graphml>`

func TestGraphML(t *testing.T) {
	ds, err := GraphMLReader{}.Read(context.Background(), Source{ID: "g", Name: "g.graphml", Data: []byte(graphmlDoc1)})
	require.NoError(t, err)

	require.Len(t, ds.Entities, 2)
	paris := ds.Entities[0]
	assert.Equal(t, "n0", paris.Values["id"])
	assert.Equal(t, 48.8566, paris.Values["latitude"])
	assert.Equal(t, 2.3522, paris.Values["longitude"])
	assert.Equal(t, "Paris", paris.Values["label"])
	assert.Equal(t, "07302", paris.Values["zip"])
	assert.Equal(t, "shadow", paris.Values["data.id"])

	anon := ds.Entities[1]
	assert.Equal(t, "graphml_g_1", anon.Values["id"])
	assert.Equal(t, 42.0, anon.Values["undeclared"])

	require.Len(t, ds.Links, 1)
	edge := ds.Links[0]
	assert.Equal(t, "n0", edge.Values["source"])
	assert.Equal(t, "n1", edge.Values["target"])
	assert.Equal(t, "associates", edge.Values["type"], "key defaults apply")
}

func TestGraphMLMalformed(t *testing.T) {
	_, err := GraphMLReader{}.Read(context.Background(), Source{Name: "bad.graphml", Data: []byte(`<graphml><graph><node id="a"></graph>`)})
	assert.ErrorIs(t, err, report.ErrFormat)
}

const gexfDoc1 = `<?xml version="1.0" encoding="UTF-8"?>
<gexf xmlns="http://gexf.net/1.3" version="1.3">
  <graph defaultedgetype="directed">
    <attributes class="node">
      <attribute id="0" title="type" type="string"/>
      <attribute id="1" title="phone" type="long"/>
      <attribute id="2" title="active" type="boolean"><default>true</default></attribute>
    </attributes>
    <attributes class="edge">
      <attribute id="0" title="since" type="integer"/>
    </attributes>
    <nodes>
      <node id="a" label="Acme Corp">
        <attvalues>
          <attvalue for="0" value="organization"/>
          <attvalue for="1" value="5551234"/>
        </attvalues>
      </node>
      <node id="b" label="Bob"/>
    </nodes>
    <edges>
      <edge id="e0" source="b" target="a" type="directed" kind="owns" weight="2.5">
        <attvalues><attvalue id="0" value="2019"/></attvalues>
      </edge>
    </edges>
  </graph>
</gexf>`

func TestGEXF(t *testing.T) {
	ds, err := GEXFReader{}.Read(context.Background(), Source{ID: "x", Name: "g.gexf", Data: []byte(gexfDoc1)})
	require.NoError(t, err)

	require.Len(t, ds.Entities, 2)
	acme := ds.Entities[0]
	assert.Equal(t, "Acme Corp", acme.Values["label"])
	assert.Equal(t, "organization", acme.Values["type"])
	assert.Equal(t, "5551234", acme.Values["phone"])
	assert.Equal(t, true, acme.Values["active"])
	assert.Equal(t, true, ds.Entities[1].Values["active"])

	require.Len(t, ds.Links, 1)
	edge := ds.Links[0]
	assert.Equal(t, "owns", edge.Values["type"])
	assert.Equal(t, "directed", edge.Values["directedness"])
	assert.Equal(t, 2.5, edge.Values["weight"])
	assert.Equal(t, 2019.0, edge.Values["since"])
}

func readCypher(t *testing.T, text string) *Dataset {
	t.Helper()
	ds, err := NewCypherReader(schema.Default()).Read(context.Background(), Source{ID: "c", Name: "g.cypher", Data: []byte(text)})
	require.NoError(t, err)
	return ds
}

func TestCypherCreateStatements(t *testing.T) {
	ds := readCypher(t, `CREATE (a:Person {name:"Bob"}) CREATE (b:Organization {name:"Acme"}) CREATE (a)-[:OWNS]->(b)`)

	require.Len(t, ds.Entities, 2)
	assert.Equal(t, "a", ds.Entities[0].Values["id"])
	assert.Equal(t, "person", ds.Entities[0].Values["type"])
	assert.Equal(t, "Bob", ds.Entities[0].Values["name"])
	assert.Equal(t, "organization", ds.Entities[1].Values["type"])

	require.Len(t, ds.Links, 1)
	link := ds.Links[0]
	assert.Equal(t, "a", link.Values["source"])
	assert.Equal(t, "b", link.Values["target"])
	assert.Equal(t, "owns", link.Values["type"])
	assert.False(t, link.Has("relationship"))
}

func TestCypherPatternsAndValues(t *testing.T) {
	ds := readCypher(t, `
// people
CREATE (p:Individual:Employee {id: 'p-1', name: 'O\'Brien, Pat', age: 41, zip: 07302, active: true, nick: null, tags: ['x', 2]}),
       (c:Company {name: "Acme, Inc."});
CREATE (c)<-[:WORKS_FOR {since: 2019}]-(p)-[:CALLED]->(:Spaceship {name: "Nostromo"})
RETURN p;`)

	require.Len(t, ds.Entities, 3)
	p := ds.Entities[0]
	assert.Equal(t, "p-1", p.Values["id"])
	assert.Equal(t, "person", p.Values["type"])
	assert.Equal(t, []any{"Individual", "Employee"}, p.Values["labels"])
	assert.Equal(t, "O'Brien, Pat", p.Values["name"])
	assert.Equal(t, 41.0, p.Values["age"])
	assert.Equal(t, "07302", p.Values["zip"])
	assert.Equal(t, true, p.Values["active"])
	assert.Nil(t, p.Values["nick"])
	assert.Equal(t, []any{"x", 2.0}, p.Values["tags"])

	c := ds.Entities[1]
	assert.Equal(t, "organization", c.Values["type"])
	assert.Equal(t, "Acme, Inc.", c.Values["name"])

	ship := ds.Entities[2]
	assert.Equal(t, "cypher_c_2", ship.Values["id"])
	assert.Equal(t, "person", ship.Values["type"], "unknown labels default to person")

	require.Len(t, ds.Links, 2)
	works := ds.Links[0]
	assert.Equal(t, "p-1", works.Values["source"], "reversed arrows swap endpoints")
	assert.Equal(t, "c", works.Values["target"])
	assert.Equal(t, "associates", works.Values["type"])
	assert.Equal(t, "WORKS_FOR", works.Values["relationship"])
	assert.Equal(t, 2019.0, works.Values["since"])

	called := ds.Links[1]
	assert.Equal(t, "p-1", called.Values["source"])
	assert.Equal(t, "cypher_c_2", called.Values["target"])
	assert.Equal(t, "communicates", called.Values["type"])
}

func TestCypherErrors(t *testing.T) {
	tests := map[string]string{
		"no create":      `MATCH (n) RETURN n`,
		"unbalanced":     `CREATE (a:Person {name: "x"}`,
		"stray bracket":  `CREATE (a:Person))`,
		"bad property":   `CREATE (a:Person {name})`,
		"dangling arrow": `CREATE (a)-[:KNOWS]->`,
		"open string":    `CREATE (a:Person {name: "x})`,
	}
	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewCypherReader(schema.Default()).Read(context.Background(), Source{Name: "bad.cypher", Data: []byte(text)})
			assert.ErrorIs(t, err, report.ErrFormat)
		})
	}
}

func TestCypherIgnoresCommentsAndQuotedKeywords(t *testing.T) {
	ds := readCypher(t, "// CREATE (ghost)\nCREATE (a:Person {note: \"CREATE (x) // not a comment\", created: 1})")
	require.Len(t, ds.Entities, 1)
	assert.Equal(t, "CREATE (x) // not a comment", ds.Entities[0].Values["note"])
	assert.Equal(t, 1.0, ds.Entities[0].Values["created"])
}
