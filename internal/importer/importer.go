// Package importer reads attendance/payment exports into ordered records
// of named fields. CSV and XLSX exports are supported; anything else, and
// any tabular file missing the required columns, is rejected with a
// FormatError so the caller can report it instead of silently dropping
// the file.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one imported attendee row.
type Row struct {
	// Name is the attendee name.
	Name string

	// Note is the raw payment note, kept verbatim for classification.
	Note string
}

// FormatError reports a file that could not be imported. Import of other
// files continues; the error carries everything the GUI needs to display.
type FormatError struct {
	File   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot import %s: %s", e.File, e.Reason)
}

// Header names accepted for the two required columns, matched
// case-insensitively after trimming.
var (
	nameHeaders = []string{"name", "attendee", "attendee name", "player", "member"}
	noteHeaders = []string{"note", "notes", "payment", "payment note", "memo", "comment"}
)

// ReadFile parses the export at path into rows, dispatching on the file
// extension.
func ReadFile(path string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readXLSX(path)
	default:
		return nil, &FormatError{File: filepath.Base(path), Reason: "not a CSV or XLSX export"}
	}
}

func readCSV(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &FormatError{File: filepath.Base(path), Reason: "file is empty"}
	}
	if err != nil {
		return nil, &FormatError{File: filepath.Base(path), Reason: fmt.Sprintf("not a tabular file: %v", err)}
	}

	nameCol, noteCol, err := resolveColumns(filepath.Base(path), header)
	if err != nil {
		return nil, err
	}

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &FormatError{File: filepath.Base(path), Reason: fmt.Sprintf("malformed row: %v", err)}
		}
		if row, ok := buildRow(record, nameCol, noteCol); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, &FormatError{File: filepath.Base(path), Reason: "no attendee rows"}
	}
	return rows, nil
}

func readXLSX(path string) ([]Row, error) {
	book, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &FormatError{File: filepath.Base(path), Reason: fmt.Sprintf("not a readable workbook: %v", err)}
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, &FormatError{File: filepath.Base(path), Reason: "workbook has no sheets"}
	}
	records, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, &FormatError{File: filepath.Base(path), Reason: fmt.Sprintf("failed to read sheet: %v", err)}
	}
	if len(records) == 0 {
		return nil, &FormatError{File: filepath.Base(path), Reason: "file is empty"}
	}

	nameCol, noteCol, err := resolveColumns(filepath.Base(path), records[0])
	if err != nil {
		return nil, err
	}

	var rows []Row
	for _, record := range records[1:] {
		if row, ok := buildRow(record, nameCol, noteCol); ok {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, &FormatError{File: filepath.Base(path), Reason: "no attendee rows"}
	}
	return rows, nil
}

// resolveColumns locates the required name and note columns in the header
// row.
func resolveColumns(file string, header []string) (nameCol, noteCol int, err error) {
	nameCol = findColumn(header, nameHeaders)
	noteCol = findColumn(header, noteHeaders)
	if nameCol < 0 {
		return 0, 0, &FormatError{File: file, Reason: "missing required attendee name column"}
	}
	if noteCol < 0 {
		return 0, 0, &FormatError{File: file, Reason: "missing required payment note column"}
	}
	return nameCol, noteCol, nil
}

func findColumn(header []string, accepted []string) int {
	for i, cell := range header {
		normalized := strings.ToLower(strings.TrimSpace(cell))
		for _, want := range accepted {
			if normalized == want {
				return i
			}
		}
	}
	return -1
}

// buildRow extracts a row; rows with a blank name are skipped (trailing
// blank lines in exports are routine, not errors).
func buildRow(record []string, nameCol, noteCol int) (Row, bool) {
	name := cell(record, nameCol)
	if strings.TrimSpace(name) == "" {
		return Row{}, false
	}
	return Row{Name: strings.TrimSpace(name), Note: cell(record, noteCol)}, true
}

func cell(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return record[col]
}
