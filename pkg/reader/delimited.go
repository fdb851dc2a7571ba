package reader

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wsmontes/linkchart/pkg/common"
	"github.com/wsmontes/linkchart/pkg/report"
	"github.com/wsmontes/linkchart/pkg/schema"
)

var candidateDelimiters = []rune{',', ';', '\t', '|'}

// DelimitedReader parses CSV, TSV and other delimited text. The first row is
// the header.
type DelimitedReader struct{}

func (DelimitedReader) Read(ctx context.Context, src Source) (*Dataset, error) {
	data := bytes.TrimPrefix(src.Data, []byte("\xef\xbb\xbf"))

	delim := src.Options.Delimiter
	if delim == 0 {
		if strings.EqualFold(filepath.Ext(src.Name), ".tsv") {
			delim = '\t'
		} else {
			delim = SniffDelimiter(data)
		}
	}

	rows, err := parseDelimited(ctx, data, delim)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, report.NewFormatError(src.Name, err)
	}
	if len(rows) == 0 {
		return nil, report.FormatErrorf(src.Name, "missing header row")
	}

	records, err := rowsToRecords(ctx, rows[0], rows[1:])
	if err != nil {
		return nil, err
	}
	return &Dataset{Format: FormatDelimited, SourceID: src.ID, Entities: records}, nil
}

func parseDelimited(ctx context.Context, data []byte, delim rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1

	var rows [][]string
	for i := 0; ; i++ {
		if err := canceled(ctx, i); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// SniffDelimiter picks the candidate delimiter that occurs most often,
// outside quotes, in the header line. Comma wins when none occurs.
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	counts := make(map[rune]int, len(candidateDelimiters))
	inQuotes := false
	for _, r := range string(line) {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// rowsToRecords turns a header and data rows into records. Blank header
// cells and duplicates get positional names; fully blank rows are skipped.
func rowsToRecords(ctx context.Context, header []string, rows [][]string) ([]*Record, error) {
	columns := headerColumns(header)

	records := make([]*Record, 0, len(rows))
	for i, row := range rows {
		if err := canceled(ctx, i); err != nil {
			return nil, err
		}
		if blankRow(row) {
			continue
		}
		rec := NewRecord()
		for c, col := range columns {
			var cell string
			if c < len(row) {
				cell = row[c]
			}
			rec.Set(col, ConvertCell(col, cell))
		}
		for c := len(columns); c < len(row); c++ {
			if strings.TrimSpace(row[c]) == "" {
				continue
			}
			col := fmt.Sprintf("column_%d", c+1)
			rec.Set(col, ConvertCell(col, row[c]))
		}
		records = append(records, rec)
	}
	return records, nil
}

func headerColumns(header []string) []string {
	seen := make(map[string]int, len(header))
	columns := make([]string, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name]++
			name = fmt.Sprintf("%s_%d", name, n+1)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}
	return columns
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ConvertCell converts a text cell: empty cells become nil and
// numeric-looking cells become numbers unless the column is on the
// string-number list.
func ConvertCell(column, cell string) any {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	if !schema.IsStringNumberField(column) {
		if f, ok := common.ParseNumber(s); ok {
			return f
		}
	}
	return s
}
