package mapper

import (
	"sort"

	"github.com/shopspring/decimal"
)

// MappingSummary is the hand-off header persisted alongside the finalized
// account list.
type MappingSummary struct {
	StatementType   string             `json:"statementType"`
	Currency        string             `json:"currency"`
	PeriodColumns   []PeriodColumn     `json:"periodColumns"`
	TotalItemsCount int                `json:"totalItemsCount"`
	TotalRowsCount  int                `json:"totalRowsCount"`
	DetailRowsCount int                `json:"detailRowsCount"`
	PeriodTotals    map[string]float64 `json:"periodTotals,omitempty"`
}

// Finalize flattens the session's node collection for persistence: active
// nodes only, strictly rowIndex-ascending, plus the summary object. The
// returned slice must not be mutated afterwards.
func Finalize(structure SheetStructure, nodes []*AccountNode) ([]*AccountNode, MappingSummary) {
	var out []*AccountNode
	for _, n := range nodes {
		if n.IsActive {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowIndex < out[j].RowIndex })

	summary := MappingSummary{
		StatementType: structure.StatementType,
		Currency:      structure.Currency,
		PeriodColumns: structure.PeriodColumns,
	}
	summary.TotalItemsCount = len(out)

	// Per-period detail totals accumulate in decimal so repeated float
	// addition doesn't drift on large statements.
	acc := make(map[string]decimal.Decimal)
	for _, n := range out {
		if n.IsTotal {
			summary.TotalRowsCount++
		}
		if !n.IsTotal && n.HasFinancialData {
			summary.DetailRowsCount++
			for label, v := range n.Periods {
				acc[label] = acc[label].Add(decimal.NewFromFloat(v))
			}
		}
	}
	if len(acc) > 0 {
		summary.PeriodTotals = make(map[string]float64, len(acc))
		for label, d := range acc {
			summary.PeriodTotals[label] = d.InexactFloat64()
		}
	}
	return out, summary
}

// UncategorizedCount computes the save-gate check: how many active rows
// still sit in the generic "other" bucket or carry no category at all.
// Section headers don't block a save since they never carry figures.
func UncategorizedCount(nodes []*AccountNode) int {
	count := 0
	for _, n := range nodes {
		if !n.IsActive || n.IsSectionHeader {
			continue
		}
		if n.Category == "" || n.Category == CategoryOther {
			count++
		}
	}
	return count
}
