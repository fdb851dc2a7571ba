package importer

import (
	"hash/fnv"
	"time"

	"github.com/wsmontes/linkchart/pkg/common"
)

// Palette holds the colors assigned to data sources.
var Palette = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#9b59b6", "#f39c12",
	"#1abc9c", "#e67e22", "#34495e", "#16a085", "#c0392b",
}

var kindIcons = map[common.SourceKind]string{
	common.SourceKindFile:     "file-text",
	common.SourceKindAPI:      "globe",
	common.SourceKindStorage:  "cloud",
	common.SourceKindDatabase: "database",
	common.SourceKindImported: "download",
}

// SourceColor picks the palette color of a source id. The same id always
// gets the same color.
func SourceColor(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return Palette[h.Sum32()%uint32(len(Palette))]
}

// SourceIcon returns the icon name of a source kind.
func SourceIcon(kind common.SourceKind) string {
	if icon, ok := kindIcons[kind]; ok {
		return icon
	}
	return kindIcons[common.SourceKindImported]
}

func newDataSource(id, name string, kind common.SourceKind) *common.DataSource {
	if !kind.Valid() {
		kind = common.SourceKindImported
	}
	return &common.DataSource{
		ID:    id,
		Name:  name,
		Kind:  kind,
		Icon:  SourceIcon(kind),
		Color: SourceColor(id),
	}
}

// stamp sets the provenance fields of entities that lack them.
func stamp(raw *common.RawGraph, src *common.DataSource) {
	for _, e := range raw.Entities {
		if e == nil {
			continue
		}
		if e.SourceID == "" {
			e.SourceID = src.ID
		}
		if e.SourceName == "" {
			e.SourceName = src.Name
		}
		if e.SourceColor == "" {
			e.SourceColor = src.Color
		}
	}
}

func fillMetadata(src *common.DataSource, g *common.Graph, at time.Time) {
	src.Metadata = common.SourceMetadata{
		ImportedAt:  at,
		EntityCount: len(g.Entities),
		LinkCount:   len(g.Links),
	}
}
