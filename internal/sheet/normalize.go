package sheet

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Cell is the normalized view of a single spreadsheet cell.
//
// IsBlank marks "no value" cells: empty strings and the dash placeholders
// accountants use ("-", "$-"). Blank is not the same as zero: a blank cell
// does not count toward period-column validation, but it is recorded as 0
// once its column has been accepted as a real period.
type Cell struct {
	Text      string
	Numeric   float64
	IsNumeric bool
	IsBlank   bool
}

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// Normalize converts a raw cell value into its typed form. Strings are
// stripped of currency symbols, thousands separators and any other
// decoration before being parsed; parse failure means the cell is plain
// text. Pure function, no side effects.
func Normalize(raw string) Cell {
	text := CleanText(raw)
	c := Cell{Text: text}

	compact := strings.ReplaceAll(text, " ", "")
	if compact == "" || compact == "-" || compact == "$-" || compact == "($-)" {
		c.IsBlank = true
		return c
	}

	cleaned := nonNumericRe.ReplaceAllString(text, "")
	if cleaned == "" || cleaned == "-" || cleaned == "." || cleaned == ".-" || cleaned == "-." {
		return c
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return c
	}
	c.IsNumeric = true
	c.Numeric = d.InexactFloat64()
	return c
}
