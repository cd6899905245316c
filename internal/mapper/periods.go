package mapper

import (
	"regexp"

	"WarrenFinSaas/internal/config"
	"WarrenFinSaas/internal/sheet"
)

// Period label patterns. Month tokens cover English and Spanish, both
// abbreviated and full ("Jan-25", "January 2024", "Ene-24", "Dic/2024").
var (
	monthLabelRe = regexp.MustCompile(`(?i)^(ene|jan|feb|mar|abr|apr|may|jun|jul|ago|aug|sep|set|oct|nov|dic|dec)[a-zñáéíóú]*[\s\-/.']*\d{2,4}$`)
	numericMonRe = regexp.MustCompile(`^(0?[1-9]|1[0-2])[/\-]\d{4}$`)
	quarterRe    = regexp.MustCompile(`(?i)^q[1-4][\s\-/]?\d{4}(\s+total)?$`)
	bareYearRe   = regexp.MustCompile(`^(19|20)\d{2}$`)
	totalLabelRe = regexp.MustCompile(`(?i)^total$`)
)

// classifyPeriodLabel reports whether a header cell looks like a period
// label, and which kind.
func classifyPeriodLabel(label string) (PeriodType, bool) {
	v := sheet.CleanText(label)
	if v == "" {
		return "", false
	}
	switch {
	case totalLabelRe.MatchString(v):
		return PeriodTotal, true
	case quarterRe.MatchString(v):
		return PeriodQuarter, true
	case monthLabelRe.MatchString(v) || numericMonRe.MatchString(v):
		return PeriodMonth, true
	case bareYearRe.MatchString(v):
		return PeriodYear, true
	}
	return "", false
}

// DetectHeaderRow scans the candidate header rows (rows 1–3; row 0 is
// assumed to be a sheet-level label) and returns the row with the most
// period-label matches, ties broken by earliest index. Returns -1 when
// nothing scores.
func DetectHeaderRow(s sheet.RawSheet) int {
	best, bestRow := 0, -1
	for r := 1; r <= config.HeaderScanDepth && r < s.RowCount(); r++ {
		score := 0
		for c := 0; c < len(s[r]); c++ {
			if _, ok := classifyPeriodLabel(s.Cell(r, c)); ok {
				score++
			}
		}
		if score > best {
			best = score
			bestRow = r
		}
	}
	return bestRow
}

// DetectPeriodColumns finds the header row, collects every candidate period
// column from it (excluding column 0, the account-name column), and keeps
// only candidates that carry at least one genuine non-zero numeric value in
// the data window below the header. Deterministic; returns an empty slice
// when no header row scores, in which case callers fall back to AI-provided
// period columns or treat the sheet as period-less.
func DetectPeriodColumns(s sheet.RawSheet) []PeriodColumn {
	headerRow := DetectHeaderRow(s)
	if headerRow < 0 {
		return nil
	}

	var candidates []PeriodColumn
	for c := 1; c < len(s[headerRow]); c++ {
		label := sheet.CleanText(s.Cell(headerRow, c))
		if pt, ok := classifyPeriodLabel(label); ok {
			candidates = append(candidates, PeriodColumn{
				ColumnIndex: c,
				Label:       label,
				PeriodType:  pt,
			})
		}
	}

	dataStart := headerRow + 1
	var out []PeriodColumn
	for _, cand := range candidates {
		if columnHasFigures(s, cand.ColumnIndex, dataStart) {
			out = append(out, cand)
		}
	}
	return out
}

// columnHasFigures checks a bounded window of data rows for at least one
// non-zero numeric value. All-zero and decorative columns fail this and are
// dropped from detection.
func columnHasFigures(s sheet.RawSheet, col, dataStart int) bool {
	end := dataStart + config.PeriodScanWindow
	if end > s.RowCount() {
		end = s.RowCount()
	}
	for r := dataStart; r < end; r++ {
		cell := sheet.Normalize(s.Cell(r, col))
		if cell.IsNumeric && cell.Numeric != 0 {
			return true
		}
	}
	return false
}
