package mapper

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical category taxonomy. Every node the engine emits carries one of
// these, whatever loose string the classifier or AI service produced.
const (
	CategoryRevenue           = "revenue"
	CategoryCOGS              = "cogs"
	CategoryOperatingExpenses = "operating_expenses"
	CategoryFinancialExpenses = "financial_expenses"
	CategoryTaxes             = "taxes"
	CategoryProfitMetrics     = "profitability_metrics"
	CategoryMarginRatios      = "margin_ratios"
	CategoryFinancialCalcs    = "financial_calculations"
	CategoryOther             = "other"
)

const SubcategoryMisc = "miscellaneous"

// CanonicalCategories lists the full taxonomy in display order.
var CanonicalCategories = []string{
	CategoryRevenue,
	CategoryCOGS,
	CategoryOperatingExpenses,
	CategoryFinancialExpenses,
	CategoryTaxes,
	CategoryProfitMetrics,
	CategoryMarginRatios,
	CategoryFinancialCalcs,
	CategoryOther,
}

// CategoryMapping is the canonical target for a loose/legacy category string.
type CategoryMapping struct {
	Category    string `yaml:"category"`
	Subcategory string `yaml:"subcategory"`
}

// KeywordRule maps name substrings to a category. Rules are evaluated in
// order; first hit wins.
type KeywordRule struct {
	Keywords    []string `yaml:"keywords"`
	Category    string   `yaml:"category"`
	Subcategory string   `yaml:"subcategory"`
}

// Taxonomy holds every hand-curated vocabulary the pipeline consults:
// calculated-metric phrases, legacy category aliases, and the keyword
// fallback chain. The lists are configuration data: compiled-in defaults
// that a YAML overlay can extend, so deployments can add locales without
// code changes.
type Taxonomy struct {
	CalculatedPhrases []string                   `yaml:"calculated_phrases"`
	MarginMarkers     []string                   `yaml:"margin_markers"`
	ProfitMarkers     []string                   `yaml:"profit_markers"`
	Aliases           map[string]CategoryMapping `yaml:"aliases"`
	Fallbacks         []KeywordRule              `yaml:"fallbacks"`
	ClassifierRules   []KeywordRule              `yaml:"classifier_rules"`
}

// DefaultTaxonomy returns the built-in English/Spanish vocabulary observed in
// production uploads.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		CalculatedPhrases: []string{
			"gross profit", "gross margin", "ebitda", "ebit",
			"utilidad bruta", "utilidad neta", "utilidad operativa",
			"net margin", "operating margin",
		},
		MarginMarkers: []string{"margin", "margen", "ratio", "%"},
		ProfitMarkers: []string{"profit", "utilidad", "ebitda", "ebit"},
		Aliases: map[string]CategoryMapping{
			"cost_of_goods_sold":  {Category: CategoryCOGS, Subcategory: "direct_costs"},
			"cost_of_sales":       {Category: CategoryCOGS, Subcategory: "direct_costs"},
			"direct_costs":        {Category: CategoryCOGS, Subcategory: "direct_costs"},
			"personnel_costs":     {Category: CategoryOperatingExpenses, Subcategory: "personnel"},
			"payroll":             {Category: CategoryOperatingExpenses, Subcategory: "personnel"},
			"sales_revenue":       {Category: CategoryRevenue, Subcategory: "sales"},
			"service_revenue":     {Category: CategoryRevenue, Subcategory: "services"},
			"other_income":        {Category: CategoryRevenue, Subcategory: "other_income"},
			"general_admin":       {Category: CategoryOperatingExpenses, Subcategory: "administration"},
			"administrative":      {Category: CategoryOperatingExpenses, Subcategory: "administration"},
			"marketing":           {Category: CategoryOperatingExpenses, Subcategory: "marketing"},
			"interest_expense":    {Category: CategoryFinancialExpenses, Subcategory: "interest"},
			"bank_fees":           {Category: CategoryFinancialExpenses, Subcategory: "fees"},
			"income_tax":          {Category: CategoryTaxes, Subcategory: "income_tax"},
			"vat":                 {Category: CategoryTaxes, Subcategory: "vat"},
			"depreciation":        {Category: CategoryOperatingExpenses, Subcategory: "depreciation"},
		},
		Fallbacks: []KeywordRule{
			{Keywords: []string{"revenue", "income", "sales", "ventas", "ingresos", "cobros"}, Category: CategoryRevenue, Subcategory: "sales"},
			{Keywords: []string{"cost", "material", "materia", "mano de obra"}, Category: CategoryCOGS, Subcategory: "direct_costs"},
			{Keywords: []string{"expense", "operating", "gasto", "egresos", "pagos", "sueldos", "administra"}, Category: CategoryOperatingExpenses, Subcategory: "general"},
			{Keywords: []string{"tax", "impuesto"}, Category: CategoryTaxes, Subcategory: "income_tax"},
		},
		ClassifierRules: []KeywordRule{
			{Keywords: []string{"tax", "impuesto", "iva", "vat"}, Category: CategoryTaxes, Subcategory: "income_tax"},
			{Keywords: []string{"interest", "interes", "bank fee", "comision bancaria", "financial expense"}, Category: CategoryFinancialExpenses, Subcategory: "interest"},
			{Keywords: []string{"cogs", "cost of goods", "cost of sales", "costo de ventas", "materia prima", "mano de obra", "direct cost"}, Category: CategoryCOGS, Subcategory: "direct_costs"},
			{Keywords: []string{"revenue", "sales", "income", "ventas", "ingresos", "cobros", "servicios prestados"}, Category: CategoryRevenue, Subcategory: "sales"},
			{Keywords: []string{"salaries", "salary", "sueldos", "payroll", "wages", "cargas sociales"}, Category: CategoryOperatingExpenses, Subcategory: "personnel"},
			{Keywords: []string{"marketing", "advertising", "publicidad"}, Category: CategoryOperatingExpenses, Subcategory: "marketing"},
			{Keywords: []string{"rent", "alquiler", "utilities", "servicios publicos", "depreciation", "amortizacion", "amortization", "research", "development", "insurance", "seguro", "office", "administracion", "administration", "general", "expense", "gasto", "egresos", "proveedores", "supplier"}, Category: CategoryOperatingExpenses, Subcategory: "general"},
		},
	}
}

// LoadTaxonomy overlays the built-in defaults with a YAML file. A missing
// path returns the defaults; a malformed file is an error.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	t := DefaultTaxonomy()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, err
	}
	var overlay Taxonomy
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, err
	}
	if len(overlay.CalculatedPhrases) > 0 {
		t.CalculatedPhrases = overlay.CalculatedPhrases
	}
	if len(overlay.MarginMarkers) > 0 {
		t.MarginMarkers = overlay.MarginMarkers
	}
	if len(overlay.ProfitMarkers) > 0 {
		t.ProfitMarkers = overlay.ProfitMarkers
	}
	for k, v := range overlay.Aliases {
		if t.Aliases == nil {
			t.Aliases = map[string]CategoryMapping{}
		}
		t.Aliases[k] = v
	}
	if len(overlay.Fallbacks) > 0 {
		t.Fallbacks = overlay.Fallbacks
	}
	if len(overlay.ClassifierRules) > 0 {
		t.ClassifierRules = overlay.ClassifierRules
	}
	return t, nil
}

// IsCanonical reports whether cat is a member of the fixed taxonomy.
func IsCanonical(cat string) bool {
	for _, c := range CanonicalCategories {
		if c == cat {
			return true
		}
	}
	return false
}

var ebitRe = regexp.MustCompile(`(?i)\bebit(da)?\b`)

// IsCalculated reports whether an account name denotes a derived metric
// (margins, EBITDA, utilidad lines) rather than a ledger account.
func (t *Taxonomy) IsCalculated(name string) bool {
	lower := strings.ToLower(sheetClean(name))
	if lower == "" {
		return false
	}
	if strings.Contains(lower, "%") || strings.Contains(lower, "margin") || strings.Contains(lower, "margen") {
		return true
	}
	if ebitRe.MatchString(lower) {
		return true
	}
	for _, p := range t.CalculatedPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// CalculatedBucket routes a calculated-metric name to one of the three
// calculated categories. Margin/ratio markers take priority so that e.g.
// "Gross Profit Margin" lands in margin_ratios, not profitability_metrics.
func (t *Taxonomy) CalculatedBucket(name string) string {
	lower := strings.ToLower(sheetClean(name))
	for _, m := range t.MarginMarkers {
		if strings.Contains(lower, m) {
			return CategoryMarginRatios
		}
	}
	for _, m := range t.ProfitMarkers {
		if strings.Contains(lower, m) {
			return CategoryProfitMetrics
		}
	}
	return CategoryFinancialCalcs
}

// Canonicalize maps whatever raw category string emerged from classification
// onto the fixed taxonomy plus a best-guess subcategory. Resolution order:
// already-canonical, alias table, keyword-substring fallback, then
// other/miscellaneous.
func (t *Taxonomy) Canonicalize(raw string) (string, string) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, " ", "_")

	if IsCanonical(key) {
		return key, defaultSubcategory(key)
	}
	if m, ok := t.Aliases[key]; ok && IsCanonical(m.Category) {
		return m.Category, m.Subcategory
	}

	loose := strings.ReplaceAll(key, "_", " ")
	for _, rule := range t.Fallbacks {
		for _, kw := range rule.Keywords {
			if strings.Contains(loose, kw) {
				return rule.Category, rule.Subcategory
			}
		}
	}
	return CategoryOther, SubcategoryMisc
}

// GuessCategory applies the fallback keyword chain directly to an account
// name. Used by the total-row detector to suggest a category for rows like
// "Total Revenue" or "TOTAL EGRESOS".
func (t *Taxonomy) GuessCategory(name string) (string, bool) {
	lower := strings.ToLower(sheetClean(name))
	for _, rule := range t.Fallbacks {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category, true
			}
		}
	}
	return CategoryOther, false
}

func defaultSubcategory(cat string) string {
	switch cat {
	case CategoryRevenue:
		return "sales"
	case CategoryCOGS:
		return "direct_costs"
	case CategoryOperatingExpenses:
		return "general"
	case CategoryFinancialExpenses:
		return "interest"
	case CategoryTaxes:
		return "income_tax"
	case CategoryOther:
		return SubcategoryMisc
	default:
		return ""
	}
}

// FixedPolarity returns the inflow polarity implied by a category, and
// whether the category pins one at all. Reclassification cascades through
// this so a row moved to an expense bucket flips to outflow.
func FixedPolarity(cat string) (isInflow, fixed bool) {
	switch cat {
	case CategoryRevenue, CategoryProfitMetrics:
		return true, true
	case CategoryCOGS, CategoryOperatingExpenses, CategoryFinancialExpenses, CategoryTaxes:
		return false, true
	default:
		return false, false
	}
}
