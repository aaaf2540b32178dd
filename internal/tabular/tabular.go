// Package tabular reads and writes the delimited lead exports as
// header-plus-rows tables. CSV is the primary format; xlsx exports from
// the CRM are supported through excelize. Column lookups tolerate the
// source data's inconsistent header casing and duplicated headers.
package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// utf8BOM matches the byte-order mark the CRM prepends to its exports;
// output files carry it too so spreadsheet tools keep the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is one loaded spreadsheet: a header row plus data rows. Rows may
// be ragged; missing cells read as empty strings.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ColumnIndex returns the index of the named column, trying an exact
// header match first and a case-insensitive one second. Returns -1 when
// the column does not exist.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Headers {
		if h == name {
			return i
		}
	}
	for i, h := range t.Headers {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// ColumnIndices returns every column whose header is the given name,
// including repeated identical headers and "name.N" duplicate-suffix
// variants, in column order.
func (t *Table) ColumnIndices(name string) []int {
	var out []int
	for i, h := range t.Headers {
		h = strings.TrimSpace(h)
		if strings.EqualFold(h, name) {
			out = append(out, i)
			continue
		}
		if dot := strings.LastIndexByte(h, '.'); dot > 0 {
			if strings.EqualFold(h[:dot], name) && isDigits(h[dot+1:]) {
				out = append(out, i)
			}
		}
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Cell returns the value at (row, col), or "" when the row is too short.
func (t *Table) Cell(row, col int) string {
	if col < 0 || row < 0 || row >= len(t.Rows) || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// SetCell writes a value, padding the row if the source row was ragged.
func (t *Table) SetCell(row, col int, value string) {
	if col < 0 || row < 0 || row >= len(t.Rows) {
		return
	}
	for len(t.Rows[row]) <= col {
		t.Rows[row] = append(t.Rows[row], "")
	}
	t.Rows[row][col] = value
}

// DropColumns removes the given columns from the header and every row.
func (t *Table) DropColumns(cols ...int) {
	if len(cols) == 0 {
		return
	}
	drop := make(map[int]bool, len(cols))
	for _, c := range cols {
		if c >= 0 {
			drop[c] = true
		}
	}
	keep := func(row []string) []string {
		out := row[:0]
		for i, v := range row {
			if !drop[i] {
				out = append(out, v)
			}
		}
		return out
	}
	t.Headers = keep(t.Headers)
	for i := range t.Rows {
		t.Rows[i] = keep(t.Rows[i])
	}
}

// Read loads a table, dispatching on the file extension.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return ReadCSV(path)
	}
}

// Write stores a table, dispatching on the file extension.
func Write(path string, t *Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, t)
	default:
		return WriteCSV(path, t)
	}
}

// ReadCSV loads a comma-delimited file, tolerating a UTF-8 BOM and
// ragged rows.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if peek, err := br.Peek(len(utf8BOM)); err == nil && string(peek) == string(utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

// WriteCSV stores the table with a UTF-8 BOM prefix.
func WriteCSV(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(t.Headers); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadXLSX loads the first sheet of an Excel workbook.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

// WriteXLSX stores the table as a single-sheet workbook.
func WriteXLSX(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	writeRow := func(n int, cells []string) error {
		if len(cells) == 0 {
			return nil
		}
		addr, err := excelize.CoordinatesToCellName(1, n)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		return f.SetSheetRow(sheet, addr, &row)
	}

	if err := writeRow(1, t.Headers); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i, r := range t.Rows {
		if err := writeRow(i+2, r); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
