// Package roster loads resource lists exported by a school information system.
package roster

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

// Record is one row of an export. Columns are matched on their (case insensitive) header.
type Record struct {
	Line      int
	SourceID  string
	Name      string
	Email     string
	Initials  string
	ShortName string
}

// header aliases -> Record field
var columns = map[string]string{
	"id":         "source_id",
	"source_id":  "source_id",
	"sourceid":   "source_id",
	"name":       "name",
	"full name":  "name",
	"email":      "email",
	"initials":   "initials",
	"short_name": "short_name",
	"short name": "short_name",
	"code":       "short_name",
}

// Read parses a CSV or XLSX file, chosen by the file name's extension.
func Read(filename string, r io.Reader) ([]Record, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	}
	return nil, ErrUnsupportedFormat
}

func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	return parseRows(rows)
}

func ReadXLSX(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading upload")
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "parsing spreadsheet")
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "reading rows")
	}
	return parseRows(rows)
}

func parseRows(rows [][]string) ([]Record, error) {
	if len(rows) == 0 {
		return []Record{}, nil
	}
	index := make(map[string]int)
	for i, h := range rows[0] {
		if fld, ok := columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))]; ok {
			if _, seen := index[fld]; !seen {
				index[fld] = i
			}
		}
	}
	if _, ok := index["name"]; !ok {
		return nil, errors.New("missing name column")
	}

	cell := func(row []string, fld string) string {
		i, ok := index[fld]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	records := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		rec := Record{
			Line:      n + 2,
			SourceID:  cell(row, "source_id"),
			Name:      cell(row, "name"),
			Email:     strings.ToLower(cell(row, "email")),
			Initials:  cell(row, "initials"),
			ShortName: cell(row, "short_name"),
		}
		if rec == (Record{Line: rec.Line}) {
			continue // blank line
		}
		records = append(records, rec)
	}
	return records, nil
}
