package reader

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/wsmontes/linkchart/pkg/logger"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

var extensions = map[string]Format{
	".json":    FormatJSON,
	".csv":     FormatDelimited,
	".tsv":     FormatDelimited,
	".txt":     FormatDelimited,
	".xlsx":    FormatXLSX,
	".xls":     FormatXLS,
	".graphml": FormatGraphML,
	".xml":     FormatGraphML,
	".gexf":    FormatGEXF,
	".cypher":  FormatCypher,
	".cql":     FormatCypher,
}

var (
	zipMagic    = []byte("PK\x03\x04")
	oleMagic    = []byte{0xD0, 0xCF, 0x11, 0xE0}
	cypherStart = regexp.MustCompile(`(?is)^(?:\s*//[^\n]*\n)*\s*create\s*\(`)
)

// sniffWindow bounds how much of a file is inspected for XML roots.
const sniffWindow = 1024

// FormatInfo describes one dispatch table entry.
type FormatInfo struct {
	Extension string `json:"extension"`
	Format    Format `json:"format"`
}

// Formats lists the extension dispatch table sorted by extension.
func Formats() []FormatInfo {
	out := make([]FormatInfo, 0, len(extensions))
	for ext, f := range extensions {
		out = append(out, FormatInfo{Extension: ext, Format: f})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}

// Detect picks a format by extension, then by content. A ".xml" file is
// GraphML unless its root is <gexf>.
func Detect(name string, data []byte) Format {
	ext := strings.ToLower(filepath.Ext(name))
	if f, ok := extensions[ext]; ok {
		if ext == ".xml" && Sniff(data) == FormatGEXF {
			return FormatGEXF
		}
		return f
	}
	return Sniff(data)
}

// Sniff picks a format from magic bytes and leading content.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}

	trimmed := bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	if len(trimmed) == 0 {
		return FormatDelimited
	}
	head := trimmed[:min(len(trimmed), sniffWindow)]
	if trimmed[0] == '<' {
		lower := bytes.ToLower(head)
		switch {
		case bytes.Contains(lower, []byte("<gexf")):
			return FormatGEXF
		case bytes.Contains(lower, []byte("<graphml")):
			return FormatGraphML
		}
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return FormatJSON
	}
	if cypherStart.Match(head) {
		return FormatCypher
	}
	return FormatDelimited
}

// Registry dispatches sources to format readers.
type Registry struct {
	readers map[Format]Reader
}

// NewRegistry returns a registry with every built-in reader. The schema
// registry supplies the type alias and relationship keyword tables used by
// the Cypher reader.
func NewRegistry(types *schema.Registry) *Registry {
	if types == nil {
		types = schema.Default()
	}
	wb := NewWorkbookReader()
	return &Registry{
		readers: map[Format]Reader{
			FormatJSON:      JSONReader{},
			FormatDelimited: DelimitedReader{},
			FormatXLSX:      wb,
			FormatXLS:       wb,
			FormatGraphML:   GraphMLReader{},
			FormatGEXF:      GEXFReader{},
			FormatCypher:    NewCypherReader(types),
		},
	}
}

// Register replaces the reader of a format.
func (r *Registry) Register(f Format, rd Reader) {
	r.readers[f] = rd
}

// Read parses the source with the reader its name or content selects, then
// reads the optional links file the same way.
func (r *Registry) Read(ctx context.Context, src Source) (*Dataset, error) {
	format := src.Options.Format
	if format == "" {
		format = Detect(src.Name, src.Data)
	}
	src.Options.Format = format

	rd, ok := r.readers[format]
	if !ok {
		return nil, report.FormatErrorf(src.Name, "unsupported format %q", format)
	}
	ds, err := rd.Read(ctx, src)
	if err != nil {
		return nil, err
	}

	if len(src.Links) > 0 {
		linkFormat := Detect(src.LinksName, src.Links)
		lrd, ok := r.readers[linkFormat]
		if !ok {
			return nil, report.FormatErrorf(src.LinksName, "unsupported format %q", linkFormat)
		}
		opts := src.Options
		opts.Format = linkFormat
		lds, err := lrd.Read(ctx, Source{
			ID:      src.ID,
			Name:    src.LinksName,
			Data:    src.Links,
			Options: opts,
		})
		if err != nil {
			return nil, fmt.Errorf("links file: %w", err)
		}
		if len(lds.Links) > 0 {
			ds.Links = append(ds.Links, lds.Links...)
		} else {
			ds.Links = append(ds.Links, lds.Entities...)
		}
		ds.Errors = append(ds.Errors, lds.Errors...)
	}

	logger.Debug("[Reader] Parsed source", "source", src.Name, "format", ds.Format, "entities", len(ds.Entities), "links", len(ds.Links))
	return ds, nil
}
