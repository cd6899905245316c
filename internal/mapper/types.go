package mapper

import (
	"regexp"
	"strings"

	"WarrenFinSaas/internal/sheet"
)

// PeriodType classifies a time-series column.
type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
	PeriodTotal   PeriodType = "total"
)

// PeriodColumn is one spreadsheet column validated to carry real figures for
// a time bucket. Immutable after detection.
type PeriodColumn struct {
	ColumnIndex int        `json:"columnIndex"`
	Label       string     `json:"label"`
	PeriodType  PeriodType `json:"periodType"`
}

// TotalType distinguishes grand totals from intermediate subtotals.
type TotalType string

const (
	TotalRow    TotalType = "total"
	SubtotalRow TotalType = "subtotal"
)

// TotalDetection marks one row judged to be a total or subtotal. Confidence
// is metadata for the UI, never a filtering threshold.
type TotalDetection struct {
	RowIndex          int       `json:"rowIndex"`
	AccountName       string    `json:"accountName"`
	Type              TotalType `json:"type"`
	SuggestedCategory string    `json:"suggestedCategory"`
	Confidence        int       `json:"confidence"`
}

// Classification is a category suggestion for one account name, produced by
// the AI service or the local classifier. AI results win when both exist.
type Classification struct {
	AccountName       string `json:"accountName"`
	SuggestedCategory string `json:"suggestedCategory"`
	Subcategory       string `json:"subcategory,omitempty"`
	IsInflow          bool   `json:"isInflow"`
	Confidence        int    `json:"confidence"`
	Reasoning         string `json:"reasoning,omitempty"`
}

// Statement types understood by the classifier vocabulary.
const (
	StatementProfitLoss   = "profit_loss"
	StatementCashFlow     = "cash_flow"
	StatementBalanceSheet = "balance_sheet"
)

// SheetStructure is the resolved layout of an uploaded sheet: where the
// account names live, where data starts, and which columns are periods. It
// comes from the AI structure service when available, otherwise from local
// detection.
type SheetStructure struct {
	PeriodColumns []PeriodColumn `json:"periodColumns"`
	Currency      string         `json:"currency"`
	StatementType string         `json:"statementType"`
	NameColumn    int            `json:"nameColumn"`
	DataStartRow  int            `json:"dataStartRow"`
}

// NodeType is the exclusive type of an account node.
type NodeType string

const (
	NodeDetail     NodeType = "detail"
	NodeTotal      NodeType = "total"
	NodeCalculated NodeType = "calculated"
	NodeHeader     NodeType = "header"
)

// AccountNode is one classified spreadsheet row. RowIndex doubles as the
// stable identity and the ordering key; hierarchy is expressed through
// ParentTotalID references, never by reordering, so the spreadsheet's visual
// order survives into the output.
type AccountNode struct {
	RowIndex         int                `json:"rowIndex"`
	AccountName      string             `json:"accountName"`
	AccountCode      string             `json:"accountCode,omitempty"`
	Category         string             `json:"category"`
	Subcategory      string             `json:"subcategory,omitempty"`
	IsInflow         bool               `json:"isInflow"`
	IsTotal          bool               `json:"isTotal"`
	IsSubtotal       bool               `json:"isSubtotal"`
	IsCalculated     bool               `json:"isCalculated"`
	IsSectionHeader  bool               `json:"isSectionHeader"`
	IsActive         bool               `json:"isActive"`
	Confidence       int                `json:"confidence"`
	Periods          map[string]float64 `json:"periods"`
	HasFinancialData bool               `json:"hasFinancialData"`
	ParentTotalID    *int               `json:"parentTotalId"`
}

// Type derives the node's exclusive type from its flags.
func (n *AccountNode) Type() NodeType {
	switch {
	case n.IsSectionHeader:
		return NodeHeader
	case n.IsCalculated:
		return NodeCalculated
	case n.IsTotal:
		return NodeTotal
	default:
		return NodeDetail
	}
}

var accountCodeRe = regexp.MustCompile(`^(\d{3,6})[\s\-\.]+(.+)$`)

// SplitAccountCode peels a leading numeric account code ("4010 - Sales")
// off an account name when present.
func SplitAccountCode(name string) (accountName, accountCode string) {
	if m := accountCodeRe.FindStringSubmatch(name); m != nil {
		return strings.TrimSpace(m[2]), m[1]
	}
	return name, ""
}

func sheetClean(v string) string {
	return sheet.CleanText(v)
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
