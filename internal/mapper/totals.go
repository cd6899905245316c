package mapper

import (
	"strings"
	"unicode"

	"WarrenFinSaas/internal/sheet"
)

// Lexical markers for total/subtotal rows, English and Spanish.
var (
	subtotalMarkers = []string{"subtotal", "sub-total", "sub total"}
	totalMarkers    = []string{"total", "totales", "suma de", "sumas", "suma "}
)

// DetectTotalRows scans the account-name column for rows that look like
// totals or subtotals. Detection is lexical (total/suma vocabulary) with one
// structural cue: a blank row immediately above raises confidence, since
// statements usually set totals off with spacing. Idempotent and
// side-effect free; confidence is metadata only.
func DetectTotalRows(s sheet.RawSheet, tax *Taxonomy, statementType string, nameCol, dataStartRow int) []TotalDetection {
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	_ = statementType // vocabulary is currently statement-type independent

	var out []TotalDetection
	for r := dataStartRow; r < s.RowCount(); r++ {
		name := sheet.CleanText(s.Cell(r, nameCol))
		if name == "" {
			continue
		}
		lower := strings.ToLower(name)

		tt, matched := matchTotalMarker(lower)
		if !matched {
			continue
		}
		// Calculated metrics ("Total Gross Margin %") are not totals.
		if tax.IsCalculated(name) {
			continue
		}

		conf := 60
		if startsWithMarker(lower) {
			conf += 20
		}
		if isAllCaps(name) {
			conf += 10
		}
		if r > 0 && s.RowIsEmpty(r-1) {
			conf += 5
		}

		cat, ok := tax.GuessCategory(name)
		if !ok {
			cat = CategoryOther
		}

		out = append(out, TotalDetection{
			RowIndex:          r,
			AccountName:       name,
			Type:              tt,
			SuggestedCategory: cat,
			Confidence:        clampConfidence(conf),
		})
	}
	return out
}

func matchTotalMarker(lower string) (TotalType, bool) {
	for _, m := range subtotalMarkers {
		if strings.Contains(lower, m) {
			return SubtotalRow, true
		}
	}
	for _, m := range totalMarkers {
		if strings.Contains(lower, m) {
			return TotalRow, true
		}
	}
	return "", false
}

func startsWithMarker(lower string) bool {
	for _, m := range append(subtotalMarkers, totalMarkers...) {
		if strings.HasPrefix(lower, strings.TrimSpace(m)) {
			return true
		}
	}
	return false
}

// isAllCaps reports whether a name carries letters and none of them
// lowercase, the "TOTAL INGRESOS" section-total convention.
func isAllCaps(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLetter(r) {
			hasLetter = true
			if unicode.IsLower(r) {
				return false
			}
		}
	}
	return hasLetter
}
