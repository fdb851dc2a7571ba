// Package reader parses source files into raw record streams.
//
// Every format produces a Dataset: ordered entity and link records with their
// column order preserved. Readers fail only on malformed syntax, reported as a
// report.FormatError. Records that are merely incomplete pass through and are
// dealt with by the mapper and the canonicalizer.
package reader

import (
	"context"
	"fmt"

	"github.com/wsmontes/linkchart/pkg/report"
)

// Format names a wire format. The value is also the prefix of synthesized
// record ids.
type Format string

const (
	FormatJSON      Format = "json"
	FormatDelimited Format = "csv"
	FormatXLSX      Format = "xlsx"
	FormatXLS       Format = "xls"
	FormatGraphML   Format = "graphml"
	FormatGEXF      Format = "gexf"
	FormatCypher    Format = "cypher"
)

// Structured reports whether the format carries canonical keys itself, as
// opposed to tabular formats whose columns must be guessed.
func (f Format) Structured() bool {
	switch f {
	case FormatJSON, FormatGraphML, FormatGEXF, FormatCypher:
		return true
	}
	return false
}

// Options tune how a source is read. Zero values select the defaults.
type Options struct {
	// Format forces a reader and skips detection.
	Format Format `json:"format,omitempty"`
	// Delimiter overrides delimiter sniffing for delimited text.
	Delimiter rune `json:"delimiter,omitempty"`
	// EntitiesSheet defaults to the first sheet of a workbook.
	EntitiesSheet string `json:"entitiesSheet,omitempty"`
	// LinksSheet defaults to the second sheet if present.
	LinksSheet string `json:"linksSheet,omitempty"`
	// RepairJSON attempts to repair malformed JSON before failing.
	RepairJSON bool `json:"repairJson,omitempty"`
}

// Source is one input to read. Links optionally carries a second file
// holding link records, as for a CSV pair.
type Source struct {
	ID        string
	Name      string
	Data      []byte
	LinksName string
	Links     []byte
	Options   Options
}

// Record is one raw row or object. Columns keeps the input order.
type Record struct {
	Columns []string
	Values  map[string]any
}

func NewRecord() *Record {
	return &Record{Values: make(map[string]any)}
}

// Set assigns a column, appending it to the column order if new.
func (r *Record) Set(column string, value any) {
	if _, ok := r.Values[column]; !ok {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = value
}

// Has reports whether the column is present.
func (r *Record) Has(column string) bool {
	_, ok := r.Values[column]
	return ok
}

func (r *Record) Get(column string) (any, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// Dataset is the output of a reader.
type Dataset struct {
	Format   Format
	SourceID string
	Entities []*Record
	Links    []*Record
	// Errors holds non-fatal problems found while reading, such as
	// non-object array elements.
	Errors []*report.Error
}

// Structured reports whether the dataset uses canonical keys.
func (d *Dataset) Structured() bool {
	return d.Format.Structured()
}

// Reader parses one source.
type Reader interface {
	Read(ctx context.Context, src Source) (*Dataset, error)
}

// SynthesizeID builds the id of a record that has none.
func SynthesizeID(format Format, sourceID string, index int) string {
	return fmt.Sprintf("%s_%s_%d", format, sourceID, index)
}

// checkEvery is how many rows are parsed between cancellation checks.
const checkEvery = 512

func canceled(ctx context.Context, i int) error {
	if i%checkEvery != 0 {
		return nil
	}
	return ctx.Err()
}
