package dataset

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/leadflow-cli/internal/lead"
)

// Save writes a lead collection, dispatching on the file extension. Records
// are written unchanged in order.
func Save(path string, records []*lead.Record) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SaveJSON(path, records)
	case ".csv":
		return SaveCSV(path, records)
	case ".xlsx":
		return SaveXLSX(path, records, "Leads")
	default:
		return eris.Errorf("dataset: unsupported output format %q", filepath.Ext(path))
	}
}

// SaveJSON writes records as an indented JSON array.
func SaveJSON(path string, records []*lead.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if records == nil {
		records = []*lead.Record{}
	}
	if err := enc.Encode(records); err != nil {
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	return nil
}

// SaveCSV writes records as CSV. Columns are the union of all record keys
// in order of first appearance, so enrichment annotations land after the
// source columns.
func SaveCSV(path string, records []*lead.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	headers := unionColumns(records)
	if err := w.Write(headers); err != nil {
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i], _ = rec.Get(h)
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write %s", path)
		}
	}
	w.Flush()
	return eris.Wrapf(w.Error(), "dataset: flush %s", path)
}

// SaveXLSX writes records to a single-sheet XLSX workbook.
func SaveXLSX(path string, records []*lead.Record, sheetName string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "dataset: add sheet")
	}

	headers := unionColumns(records)
	headerRow := sheet.AddRow()
	for _, h := range headers {
		headerRow.AddCell().SetString(h)
	}
	for _, rec := range records {
		row := sheet.AddRow()
		for _, h := range headers {
			v, _ := rec.Get(h)
			row.AddCell().SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "dataset: save %s", path)
	}
	return nil
}

// unionColumns merges every record's column order, preserving first
// appearance.
func unionColumns(records []*lead.Record) []string {
	var headers []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	return headers
}
