package reader

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/wsmontes/linkchart/pkg/report"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
		want Format
	}{
		{"json extension", "a.json", "", FormatJSON},
		{"tsv extension", "a.TSV", "", FormatDelimited},
		{"gexf extension", "g.gexf", "", FormatGEXF},
		{"xml defaults to graphml", "g.xml", `<?xml version="1.0"?><graphml/>`, FormatGraphML},
		{"xml with gexf root", "g.xml", `<?xml version="1.0"?><gexf version="1.3"/>`, FormatGEXF},
		{"cql extension", "g.cql", "", FormatCypher},
		{"sniff xlsx", "upload", "PK\x03\x04rest", FormatXLSX},
		{"sniff xls", "upload", "\xd0\xcf\x11\xe0rest", FormatXLS},
		{"sniff json object", "upload", "\xef\xbb\xbf  {\"a\":1}", FormatJSON},
		{"sniff json array", "upload", "\n[1]", FormatJSON},
		{"sniff graphml", "upload", `<?xml version="1.0"?><graphml xmlns="x">`, FormatGraphML},
		{"sniff cypher", "upload", "// export\nCREATE (a:Person)", FormatCypher},
		{"fallback delimited", "upload", "id,name\n1,x", FormatDelimited},
		{"empty", "upload", "", FormatDelimited},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(tc.file, []byte(tc.data)))
		})
	}
}

func TestFormatsSorted(t *testing.T) {
	formats := Formats()
	require.NotEmpty(t, formats)
	for i := 1; i < len(formats); i++ {
		assert.Less(t, formats[i-1].Extension, formats[i].Extension)
	}
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ';', SniffDelimiter([]byte("id;name;type\n1;a;b")))
	assert.Equal(t, '\t', SniffDelimiter([]byte("id\tname\n")))
	assert.Equal(t, '|', SniffDelimiter([]byte("id|name")))
	assert.Equal(t, ',', SniffDelimiter([]byte("single")))
	// Delimiters inside quotes do not count.
	assert.Equal(t, ',', SniffDelimiter([]byte(`"a;b;c",d`)))
}

func TestDelimitedKeepsStringNumbers(t *testing.T) {
	src := Source{ID: "s1", Name: "people.csv", Data: []byte("id,name,zip_code,age,note\n1,Ada,07302,36,\n")}
	ds, err := DelimitedReader{}.Read(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, ds.Entities, 1)

	rec := ds.Entities[0]
	assert.Equal(t, []string{"id", "name", "zip_code", "age", "note"}, rec.Columns)
	assert.Equal(t, "1", rec.Values["id"])
	assert.Equal(t, "07302", rec.Values["zip_code"])
	assert.Equal(t, 36.0, rec.Values["age"])
	assert.Nil(t, rec.Values["note"])
}

func TestDelimitedHeaders(t *testing.T) {
	src := Source{ID: "s1", Name: "x.csv", Data: []byte("name,,name\na,b,c,d\n,,\n")}
	ds, err := DelimitedReader{}.Read(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, ds.Entities, 1, "blank rows are skipped")
	assert.Equal(t, []string{"name", "column_2", "name_2", "column_4"}, ds.Entities[0].Columns)
}

func TestDelimitedErrors(t *testing.T) {
	_, err := DelimitedReader{}.Read(context.Background(), Source{Name: "empty.csv"})
	assert.ErrorIs(t, err, report.ErrFormat)

	_, err = DelimitedReader{}.Read(context.Background(), Source{Name: "bad.csv", Data: []byte("a,b\n\"unterminated,1\n")})
	assert.ErrorIs(t, err, report.ErrFormat)
}

func TestRegistryReadsLinksFile(t *testing.T) {
	reg := NewRegistry(nil)
	ds, err := reg.Read(context.Background(), Source{
		ID:        "s2",
		Name:      "entities.csv",
		Data:      []byte("id,name,type\n1,Acme,Company\n"),
		LinksName: "links.csv",
		Links:     []byte("from,to,relationship\n1,2,owns\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, FormatDelimited, ds.Format)
	require.Len(t, ds.Entities, 1)
	require.Len(t, ds.Links, 1)
	assert.Equal(t, "owns", ds.Links[0].Values["relationship"])
}

func TestRegistryLinksFileError(t *testing.T) {
	reg := NewRegistry(nil)
	_, err := reg.Read(context.Background(), Source{
		Name:      "entities.csv",
		Data:      []byte("id\n1\n"),
		LinksName: "links.json",
		Links:     []byte("[{"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrFormat)
	assert.Contains(t, err.Error(), "links file")
}

func TestRegistryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRegistry(nil).Read(ctx, Source{Name: "a.csv", Data: []byte("id\n1\n")})
	assert.ErrorIs(t, err, context.Canceled)
}

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "name", "zip"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"p1", "Ada", "07302"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"p2", "Bob", "10001"}))

	_, err := f.NewSheet("Links")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Links", "A1", &[]any{"source", "target", "type"}))
	require.NoError(t, f.SetSheetRow("Links", "A2", &[]any{"p1", "p2", "knows"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestWorkbookDefaultSheets(t *testing.T) {
	data := buildWorkbook(t)
	ds, err := NewRegistry(nil).Read(context.Background(), Source{ID: "wb", Name: "case.xlsx", Data: data})
	require.NoError(t, err)

	assert.Equal(t, FormatXLSX, ds.Format)
	require.Len(t, ds.Entities, 2)
	assert.Equal(t, "Ada", ds.Entities[0].Values["name"])
	assert.Equal(t, "07302", ds.Entities[0].Values["zip"])
	require.Len(t, ds.Links, 1)
	assert.Equal(t, "knows", ds.Links[0].Values["type"])
}

func TestWorkbookNamedSheets(t *testing.T) {
	data := buildWorkbook(t)
	rd := NewWorkbookReader()

	ds, err := rd.Read(context.Background(), Source{Name: "case.xlsx", Data: data, Options: Options{EntitiesSheet: "Links"}})
	require.NoError(t, err)
	require.Len(t, ds.Entities, 1)
	assert.Empty(t, ds.Links)

	_, err = rd.Read(context.Background(), Source{Name: "case.xlsx", Data: data, Options: Options{LinksSheet: "Missing"}})
	assert.ErrorIs(t, err, report.ErrFormat)
}

// unorderedWorkbook has sheet names that sort opposite to their tab order.
func unorderedWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Zeta People"))
	require.NoError(t, f.SetSheetRow("Zeta People", "A1", &[]any{"id", "name"}))
	require.NoError(t, f.SetSheetRow("Zeta People", "A2", &[]any{"1", "Ada"}))
	require.NoError(t, f.SetSheetRow("Zeta People", "A3", &[]any{"2", "Bob"}))

	_, err := f.NewSheet("Alpha Links")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Alpha Links", "A1", &[]any{"source", "target"}))
	require.NoError(t, f.SetSheetRow("Alpha Links", "A2", &[]any{"1", "2"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestWorkbookLegacyKeepsSheetOrder(t *testing.T) {
	converted := unorderedWorkbook(t)
	rd := NewWorkbookReader().WithConverter(func(_ context.Context, data []byte, ext string) ([]byte, error) {
		assert.Equal(t, "xls", ext)
		return converted, nil
	})

	ds, err := rd.Read(context.Background(), Source{Name: "old.xls", Data: []byte{0xD0, 0xCF, 0x11, 0xE0}})
	require.NoError(t, err)
	assert.Equal(t, FormatXLS, ds.Format)
	require.Len(t, ds.Entities, 2)
	assert.Equal(t, "Ada", ds.Entities[0].Values["name"])
	require.Len(t, ds.Links, 1)
	assert.Equal(t, 1.0, ds.Links[0].Values["source"])
}

func TestWorkbookLegacyConversionFails(t *testing.T) {
	rd := NewWorkbookReader().WithConverter(func(context.Context, []byte, string) ([]byte, error) {
		return nil, errors.New("unoconv not found in PATH")
	})
	_, err := rd.Read(context.Background(), Source{Name: "old.xls", Data: []byte{0xD0, 0xCF, 0x11, 0xE0}})
	assert.ErrorIs(t, err, report.ErrFormat)
}

func TestWorkbookCorrupt(t *testing.T) {
	_, err := NewWorkbookReader().Read(context.Background(), Source{Name: "bad.xlsx", Data: []byte("PK\x03\x04garbage")})
	assert.ErrorIs(t, err, report.ErrFormat)
}

func TestPickSheets(t *testing.T) {
	e, l, err := pickSheets([]string{"A"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "A", e)
	assert.Empty(t, l)

	e, l, err = pickSheets([]string{"A", "B"}, Options{EntitiesSheet: "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", e)
	assert.Empty(t, l)

	_, _, err = pickSheets(nil, Options{})
	assert.Error(t, err)
}
