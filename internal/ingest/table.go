// Package ingest turns an uploaded roll of survey responses into
// registrants and registrations.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// ErrFileFormat means the input could not be read as a table at all.
// No row of such an input is ever processed.
var ErrFileFormat = errors.New("unreadable file")

// Table is a header row plus data rows, all cells as text.
type Table struct {
	Header []string
	Rows   [][]string
}

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// ParseFile reads a workbook or CSV file. The extension of name picks the
// format; unknown extensions are sniffed. Only the first sheet of a workbook
// is read.
func ParseFile(name string, r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zipMagic))

	switch ext := strings.ToLower(filepath.Ext(name)); {
	case ext == ".xls" || bytes.HasPrefix(head, oleMagic):
		return Table{}, fmt.Errorf("%w: legacy .xls workbooks are not supported, save as .xlsx", ErrFileFormat)
	case ext == ".csv":
		return parseCSV(br)
	case ext == ".xlsx" || ext == ".xlsm" || bytes.HasPrefix(head, zipMagic):
		return parseWorkbook(br)
	default:
		return parseCSV(br)
	}
}

func parseWorkbook(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrFileFormat)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}
	return newTable(rows)
}

func parseCSV(r io.Reader) (Table, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("ingest.parseCSV: %w", err)
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return Table{}, fmt.Errorf("%w: file is not UTF-8 text", ErrFileFormat)
	}

	cr := csv.NewReader(bytes.NewReader(raw))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrFileFormat, err)
	}
	return newTable(rows)
}

// newTable splits off the header. Fully blank rows are dropped; a table
// without a header is a format error.
func newTable(rows [][]string) (Table, error) {
	var t Table
	for _, row := range rows {
		if blank(row) {
			continue
		}
		if t.Header == nil {
			t.Header = make([]string, len(row))
			for i, h := range row {
				t.Header[i] = strings.TrimSpace(h)
			}
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	if t.Header == nil {
		return Table{}, fmt.Errorf("%w: no header row", ErrFileFormat)
	}
	return t, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
