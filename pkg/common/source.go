package common

import "time"

// SourceKind classifies where a data source came from.
type SourceKind string

const (
	SourceKindFile     SourceKind = "file"
	SourceKindAPI      SourceKind = "api"
	SourceKindStorage  SourceKind = "storage"
	SourceKindDatabase SourceKind = "database"
	SourceKindImported SourceKind = "imported"
)

// Valid reports whether k is one of the known source kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindFile, SourceKindAPI, SourceKindStorage, SourceKindDatabase, SourceKindImported:
		return true
	}
	return false
}

// DataSource describes the provenance of an imported batch. Entities carry
// the source id, name and color so that multi-source graphs can be told apart
// after a merge.
type DataSource struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Kind     SourceKind     `json:"kind"`
	Icon     string         `json:"icon"`
	Color    string         `json:"color"`
	Metadata SourceMetadata `json:"metadata"`
}

// SourceMetadata holds the import statistics of a data source.
type SourceMetadata struct {
	ImportedAt  time.Time `json:"importedAt"`
	EntityCount int       `json:"entityCount"`
	LinkCount   int       `json:"linkCount"`
}
