package reader

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/wsmontes/linkchart/pkg/report"
)

// WorkbookConverter converts a legacy workbook to an .xlsx document with
// the same sheets in the same order.
type WorkbookConverter func(ctx context.Context, data []byte, ext string) ([]byte, error)

// WorkbookReader reads spreadsheet workbooks. Each sheet is handled like a
// delimited file with a header row.
type WorkbookReader struct {
	convert WorkbookConverter
}

func NewWorkbookReader() *WorkbookReader {
	return &WorkbookReader{convert: ConvertWorkbookToXLSX}
}

// WithConverter returns a copy that converts legacy .xls files with fn.
func (w *WorkbookReader) WithConverter(fn WorkbookConverter) *WorkbookReader {
	return &WorkbookReader{convert: fn}
}

func (w *WorkbookReader) Read(ctx context.Context, src Source) (*Dataset, error) {
	if src.Options.Format == FormatXLS || bytes.HasPrefix(src.Data, oleMagic) ||
		strings.EqualFold(filepath.Ext(src.Name), ".xls") {
		return w.readLegacy(ctx, src)
	}

	return w.readWorkbook(ctx, src, src.Data, FormatXLSX)
}

// readWorkbook reads data as .xlsx and tags the dataset with format.
func (w *WorkbookReader) readWorkbook(ctx context.Context, src Source, data []byte, format Format) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, report.NewFormatError(src.Name, fmt.Errorf("open workbook: %w", err))
	}
	defer f.Close()

	// GetSheetList follows the workbook's tab order.
	sheets := f.GetSheetList()
	entitiesSheet, linksSheet, err := pickSheets(sheets, src.Options)
	if err != nil {
		return nil, report.NewFormatError(src.Name, err)
	}

	ds := &Dataset{Format: format, SourceID: src.ID}
	if ds.Entities, err = w.sheetRecords(ctx, f, entitiesSheet, src.Name); err != nil {
		return nil, err
	}
	if linksSheet != "" {
		if ds.Links, err = w.sheetRecords(ctx, f, linksSheet, src.Name); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func (w *WorkbookReader) sheetRecords(ctx context.Context, f *excelize.File, sheet, name string) ([]*Record, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, report.NewFormatError(name, fmt.Errorf("read sheet %q: %w", sheet, err))
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToRecords(ctx, rows[0], rows[1:])
}

func (w *WorkbookReader) readLegacy(ctx context.Context, src Source) (*Dataset, error) {
	data, err := w.convert(ctx, src.Data, "xls")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, report.NewFormatError(src.Name, err)
	}
	return w.readWorkbook(ctx, src, data, FormatXLS)
}

// pickSheets resolves the entity and link sheets. Named sheets must exist.
// Without names the first sheet holds entities and the second, if any,
// holds links.
func pickSheets(sheets []string, opts Options) (string, string, error) {
	if len(sheets) == 0 {
		return "", "", fmt.Errorf("workbook has no sheets")
	}

	entities := opts.EntitiesSheet
	if entities == "" {
		entities = sheets[0]
	} else if !slices.Contains(sheets, entities) {
		return "", "", fmt.Errorf("sheet %q not found", entities)
	}

	links := opts.LinksSheet
	if links != "" {
		if !slices.Contains(sheets, links) {
			return "", "", fmt.Errorf("sheet %q not found", links)
		}
		return entities, links, nil
	}
	if len(sheets) > 1 && sheets[1] != entities {
		return entities, sheets[1], nil
	}
	return entities, "", nil
}
