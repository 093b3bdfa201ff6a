// Package sheetrow converts between raw spreadsheet values and keyed records,
// and builds A1 range addresses for write-back.
package sheetrow

import (
	"fmt"
	"sort"
	"strings"
)

// HeaderRow is the row number reserved for column headers
const HeaderRow = 1

// Record is one data row keyed by header, plus its sheet row number
type Record struct {
	RowNumber int
	Fields    map[string]string
	// Headers lists the keys of Fields in sheet column order
	Headers []string
}

// Get returns the trimmed value under the first header among aliases that
// holds a non-empty value. Header matching ignores case and surrounding spaces;
// when several columns match one alias the leftmost non-empty one wins.
func (r Record) Get(aliases ...string) string {
	headers := r.Headers
	if headers == nil {
		headers = make([]string, 0, len(r.Fields))
		for h := range r.Fields {
			headers = append(headers, h)
		}
		sort.Strings(headers)
	}
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for _, header := range headers {
			if normalizeHeader(header) != want {
				continue
			}
			if v := strings.TrimSpace(r.Fields[header]); v != "" {
				return v
			}
		}
	}
	return ""
}

// Table is a parsed sheet: headers plus data records
type Table struct {
	Headers []string
	Records []Record
}

// ParseRows treats the first row as headers and turns every following row into
// a record. Missing cells become empty strings. Records carry RowNumber = index + 2.
func ParseRows(raw [][]string) Table {
	if len(raw) == 0 {
		return Table{Headers: []string{}, Records: []Record{}}
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]Record, 0, len(raw)-1)
	for i, row := range raw[1:] {
		fields := make(map[string]string, len(headers))
		for col, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if col < len(row) {
				value = row[col]
			}
			if _, dup := fields[header]; dup {
				// first column with a given header wins
				continue
			}
			fields[header] = value
		}
		records = append(records, Record{RowNumber: i + 2, Fields: fields, Headers: headers})
	}
	return Table{Headers: headers, Records: records}
}

// ColumnIndex returns the 1-based column of the first header matching any
// alias, or 0 when none matches.
func (t Table) ColumnIndex(aliases ...string) int {
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for i, h := range t.Headers {
			if normalizeHeader(h) == want {
				return i + 1
			}
		}
	}
	return 0
}

// NumberToColumn converts a 1-based column number to its letters (1 -> A, 27 -> AA).
// Non-positive input yields "".
func NumberToColumn(n int) string {
	if n <= 0 {
		return ""
	}
	var buf []byte
	for n > 0 {
		n--
		buf = append(buf, byte('A'+n%26))
		n /= 26
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// ColumnToNumber converts column letters to a 1-based number (A -> 1, AA -> 27).
func ColumnToNumber(letters string) (int, error) {
	letters = strings.ToUpper(strings.TrimSpace(letters))
	if letters == "" {
		return 0, fmt.Errorf("empty column reference")
	}
	n := 0
	for _, r := range letters {
		if r < 'A' || r > 'Z' {
			return 0, fmt.Errorf("invalid column reference %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n, nil
}

// Cell addresses a single cell as "<Col><Row>:<Col><Row>"
func Cell(col, row int) string {
	return Span(col, row, col, row)
}

// Span addresses the rectangle between two 1-based (col, row) corners
func Span(fromCol, fromRow, toCol, toRow int) string {
	return fmt.Sprintf("%s%d:%s%d", NumberToColumn(fromCol), fromRow, NumberToColumn(toCol), toRow)
}

// Rows addresses count full-width rows starting at row, width columns wide
func Rows(startRow, count, width int) string {
	if count < 1 {
		count = 1
	}
	return Span(1, startRow, width, startRow+count-1)
}

// Qualify prefixes a range with its sheet name ('Sheet 1'!A1:B2)
func Qualify(sheet, rng string) string {
	if sheet == "" {
		return rng
	}
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + rng
}

// CellUpdate is one range/value pair of a batch update
type CellUpdate struct {
	Range  string
	Values [][]string
}

// SetCell builds an update writing a single value
func SetCell(sheet string, col, row int, value string) CellUpdate {
	return CellUpdate{Range: Qualify(sheet, Cell(col, row)), Values: [][]string{{value}}}
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
