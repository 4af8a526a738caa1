// Package dataset loads and persists lead collections as JSON, CSV, or XLSX
// files. The pipeline itself treats the collection as already materialized;
// this package is the only place that touches the filesystem.
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

// Load reads a lead collection, dispatching on the file extension.
func Load(path string) ([]*lead.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path)
	case ".csv":
		return LoadCSV(path)
	case ".xlsx":
		return LoadXLSX(path, "")
	default:
		return nil, eris.Errorf("dataset: unsupported input format %q", filepath.Ext(path))
	}
}

// LoadJSON reads records from a JSON file holding either a bare array or an
// object with a "leads" key.
func LoadJSON(path string) ([]*lead.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var wrapper struct {
			Leads []*lead.Record `json:"leads"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, eris.Wrapf(err, "dataset: parse %s", path)
		}
		if wrapper.Leads == nil {
			return nil, eris.Errorf("dataset: %s: object input must carry a \"leads\" array", path)
		}
		return wrapper.Leads, nil
	}

	var records []*lead.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	return records, nil
}

// LoadCSV reads records from a CSV file, first row as headers. Short rows
// are padded with empty strings so every record carries every column.
func LoadCSV(path string) ([]*lead.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToRecords(rows[0], rows[1:]), nil
}

// LoadXLSX reads records from an XLSX sheet, first row as headers. An empty
// sheet name selects the first sheet.
func LoadXLSX(path, sheetName string) ([]*lead.Record, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		var ok bool
		sheet, ok = f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("dataset: sheet %q not found in %s", sheetName, path)
		}
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.Errorf("dataset: %s has no sheets", path)
		}
		sheet = f.Sheets[0]
	}

	var rows [][]string
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			cells[i] = c.String()
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowsToRecords(rows[0], rows[1:]), nil
}

func rowsToRecords(headers []string, rows [][]string) []*lead.Record {
	records := make([]*lead.Record, 0, len(rows))
	for _, row := range rows {
		rec := lead.NewRecord()
		for i, h := range headers {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			rec.Set(h, v)
		}
		records = append(records, rec)
	}
	return records
}
