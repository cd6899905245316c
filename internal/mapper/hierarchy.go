package mapper

import (
	"strings"

	"WarrenFinSaas/internal/sheet"
)

// Engine combines the detectors, the classifiers and the taxonomy into the
// account-hierarchy resolution pass.
type Engine struct {
	tax   *Taxonomy
	local *LocalClassifier
}

// NewEngine builds an engine over the given taxonomy.
func NewEngine(tax *Taxonomy) *Engine {
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	return &Engine{tax: tax, local: NewLocalClassifier(tax)}
}

// BuildAccountNodes turns every data row of the sheet into a classified
// AccountNode. The pass deliberately re-scans the entire sheet from
// DataStartRow rather than an AI-suggested row range, so rows the AI service
// ignored are never silently dropped. A row is skipped only when its name
// cell is blank AND no other cell carries a numeric value.
//
// aiClassifications is keyed by lower-cased account name; when a name is
// absent the local classifier fills in. The whole pass is deterministic and
// never fails: the AI-less degraded mode is a supported path, not an error
// state.
func (e *Engine) BuildAccountNodes(s sheet.RawSheet, structure SheetStructure, aiClassifications map[string]Classification) []*AccountNode {
	totals := DetectTotalRows(s, e.tax, structure.StatementType, structure.NameColumn, structure.DataStartRow)
	totalByRow := make(map[int]TotalDetection, len(totals))
	for _, td := range totals {
		totalByRow[td.RowIndex] = td
	}

	var nodes []*AccountNode
	var lastTotal *int // most recent enclosing total seen so far

	for r := structure.DataStartRow; r < s.RowCount(); r++ {
		rawName := sheet.CleanText(s.Cell(r, structure.NameColumn))

		if rawName == "" && !rowHasNumericData(s, r, structure.NameColumn) {
			continue
		}

		node := &AccountNode{
			RowIndex: r,
			IsActive: true,
			Periods:  make(map[string]float64, len(structure.PeriodColumns)),
		}
		node.AccountName, node.AccountCode = SplitAccountCode(rawName)

		// Period extraction. Numeric cells are recorded as-is; blank and
		// dash cells become 0 once the column is an accepted period. Only a
		// genuinely numeric cell marks the row as carrying financial data.
		var sample *float64
		for _, pc := range structure.PeriodColumns {
			cell := sheet.Normalize(s.Cell(r, pc.ColumnIndex))
			switch {
			case cell.IsNumeric:
				node.Periods[pc.Label] = cell.Numeric
				node.HasFinancialData = true
				if sample == nil {
					v := cell.Numeric
					sample = &v
				}
			case cell.IsBlank:
				node.Periods[pc.Label] = 0
			}
		}

		// Classification: AI result first, local fallback otherwise.
		cls, fromAI := aiClassifications[strings.ToLower(node.AccountName)]
		if !fromAI {
			cls = e.local.ClassifyAccount(node.AccountName, sample, ClassifierContext{StatementType: structure.StatementType})
		}
		rawCategory := cls.SuggestedCategory
		node.IsInflow = cls.IsInflow
		node.Confidence = clampConfidence(cls.Confidence)

		// Calculated-field override: derived metrics are re-routed to the
		// calculated buckets regardless of what any classifier said.
		if e.tax.IsCalculated(node.AccountName) {
			node.IsCalculated = true
			rawCategory = e.tax.CalculatedBucket(node.AccountName)
		}

		// Total resolution. The detector's suggested category wins for
		// total rows unless the calculated override already claimed the row.
		if td, isTotal := totalByRow[r]; isTotal && !node.IsCalculated {
			node.IsTotal = true
			node.IsSubtotal = td.Type == SubtotalRow
			rawCategory = td.SuggestedCategory
			node.Confidence = clampConfidence(td.Confidence)
		}

		// Named rows without figures that are neither totals nor calculated
		// metrics are section headers ("INGRESOS", "Operating Expenses:").
		if !node.IsTotal && !node.IsCalculated && !node.HasFinancialData && node.AccountName != "" {
			node.IsSectionHeader = true
		}

		// Canonicalize the category; subcategory is meaningful only for
		// detail nodes.
		cat, sub := e.tax.Canonicalize(rawCategory)
		node.Category = cat
		if node.Type() == NodeDetail {
			node.Subcategory = sub
			if cls.Subcategory != "" {
				node.Subcategory = cls.Subcategory
			}
		}

		if inflow, fixed := FixedPolarity(node.Category); fixed {
			node.IsInflow = inflow
		}

		// Parent linkage: the nearest preceding total row. Totals stand at
		// top level themselves.
		if !node.IsTotal && lastTotal != nil {
			parent := *lastTotal
			node.ParentTotalID = &parent
		}
		if node.IsTotal {
			row := r
			lastTotal = &row
		}

		nodes = append(nodes, node)
	}
	return nodes
}

// rowHasNumericData reports whether any cell in the row outside the name
// column normalizes to a numeric value.
func rowHasNumericData(s sheet.RawSheet, row, nameCol int) bool {
	if row < 0 || row >= s.RowCount() {
		return false
	}
	for c := range s[row] {
		if c == nameCol {
			continue
		}
		if sheet.Normalize(s.Cell(row, c)).IsNumeric {
			return true
		}
	}
	return false
}
