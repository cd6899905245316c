package sheet

import "strings"

// NBSP shows up in exports from several accounting tools and breaks naive
// TrimSpace calls.
const nbsp = " "

// RawSheet is an ordered, row-major grid of cell values as produced by the
// workbook reader. Rows and columns are 0-indexed. Rows may be ragged; Cell
// performs bounds checking so callers never index the grid directly.
type RawSheet [][]string

// Cell returns the raw value at (row, col), or "" when the coordinate falls
// outside the grid.
func (s RawSheet) Cell(row, col int) string {
	if row < 0 || row >= len(s) {
		return ""
	}
	r := s[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return r[col]
}

// RowCount returns the number of rows in the sheet.
func (s RawSheet) RowCount() int {
	return len(s)
}

// RowIsEmpty reports whether every cell in the row is empty or whitespace.
func (s RawSheet) RowIsEmpty(row int) bool {
	if row < 0 || row >= len(s) {
		return true
	}
	for _, c := range s[row] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CleanText collapses NBSP and repeated whitespace and trims the result.
func CleanText(v string) string {
	v = strings.ReplaceAll(v, nbsp, " ")
	v = strings.TrimSpace(v)
	return strings.Join(strings.Fields(v), " ")
}
