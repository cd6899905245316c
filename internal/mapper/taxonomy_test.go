package mapper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsCalculated(t *testing.T) {
	tax := DefaultTaxonomy()
	calculated := []string{
		"Gross Margin %", "EBITDA", "EBIT", "Gross Profit",
		"Utilidad Bruta", "% Margen Operativo", "Operating Margin",
	}
	for _, name := range calculated {
		assert.True(t, tax.IsCalculated(name), "%q should be calculated", name)
	}
	plain := []string{"Total Income", "Rent Expense", "Debit Balance", "Ventas"}
	for _, name := range plain {
		assert.False(t, tax.IsCalculated(name), "%q should not be calculated", name)
	}
}

func TestCalculatedBucketMarginBeatsProfit(t *testing.T) {
	tax := DefaultTaxonomy()
	assert.Equal(t, CategoryMarginRatios, tax.CalculatedBucket("Gross Profit Margin"))
	assert.Equal(t, CategoryMarginRatios, tax.CalculatedBucket("Margen Neto %"))
	assert.Equal(t, CategoryProfitMetrics, tax.CalculatedBucket("EBITDA"))
	assert.Equal(t, CategoryProfitMetrics, tax.CalculatedBucket("Utilidad Neta"))
	assert.Equal(t, CategoryFinancialCalcs, tax.CalculatedBucket("Working Capital Adjustment"))
}

func TestCanonicalize(t *testing.T) {
	tax := DefaultTaxonomy()

	cat, sub := tax.Canonicalize("revenue")
	assert.Equal(t, CategoryRevenue, cat)
	assert.Equal(t, "sales", sub)

	cat, sub = tax.Canonicalize("Cost of Goods Sold")
	assert.Equal(t, CategoryCOGS, cat)
	assert.Equal(t, "direct_costs", sub)

	cat, sub = tax.Canonicalize("payroll")
	assert.Equal(t, CategoryOperatingExpenses, cat)
	assert.Equal(t, "personnel", sub)

	// keyword fallback on an unknown string
	cat, _ = tax.Canonicalize("ventas de exportacion")
	assert.Equal(t, CategoryRevenue, cat)

	cat, sub = tax.Canonicalize("completely unknown bucket")
	assert.Equal(t, CategoryOther, cat)
	assert.Equal(t, SubcategoryMisc, sub)
}

func TestCanonicalizeAlwaysCanonical(t *testing.T) {
	tax := DefaultTaxonomy()
	inputs := []string{"", "REVENUE", "margin_ratios", "utilidades", "junk!!", "Other Income"}
	for _, in := range inputs {
		cat, _ := tax.Canonicalize(in)
		assert.True(t, IsCanonical(cat), "Canonicalize(%q) produced %q", in, cat)
	}
}

func TestGuessCategory(t *testing.T) {
	tax := DefaultTaxonomy()

	cat, ok := tax.GuessCategory("TOTAL INGRESOS")
	require.True(t, ok)
	assert.Equal(t, CategoryRevenue, cat)

	cat, ok = tax.GuessCategory("TOTAL EGRESOS")
	require.True(t, ok)
	assert.Equal(t, CategoryOperatingExpenses, cat)

	_, ok = tax.GuessCategory("Sundry Items")
	assert.False(t, ok)
}

func TestFixedPolarity(t *testing.T) {
	for _, cat := range []string{CategoryRevenue, CategoryProfitMetrics} {
		inflow, fixed := FixedPolarity(cat)
		assert.True(t, fixed)
		assert.True(t, inflow, cat)
	}
	for _, cat := range []string{CategoryCOGS, CategoryOperatingExpenses, CategoryFinancialExpenses, CategoryTaxes} {
		inflow, fixed := FixedPolarity(cat)
		assert.True(t, fixed)
		assert.False(t, inflow, cat)
	}
	for _, cat := range []string{CategoryOther, CategoryMarginRatios, CategoryFinancialCalcs} {
		_, fixed := FixedPolarity(cat)
		assert.False(t, fixed, cat)
	}
}

func TestLoadTaxonomyMissingFileReturnsDefaults(t *testing.T) {
	tax, err := LoadTaxonomy(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, tax.ClassifierRules)

	tax, err = LoadTaxonomy("")
	require.NoError(t, err)
	assert.NotEmpty(t, tax.Aliases)
}

func TestLoadTaxonomyOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	overlay := `
aliases:
  staff costs:
    category: operating_expenses
    subcategory: personnel
margin_markers:
  - margin
  - coefficient
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)

	cat, sub := tax.Canonicalize("staff costs")
	assert.Equal(t, CategoryOperatingExpenses, cat)
	assert.Equal(t, "personnel", sub)

	// default aliases survive the merge
	cat, _ = tax.Canonicalize("payroll")
	assert.Equal(t, CategoryOperatingExpenses, cat)

	// list fields replace wholesale
	assert.Equal(t, []string{"margin", "coefficient"}, tax.MarginMarkers)
}

func TestLoadTaxonomyMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases: [not, a, map"), 0o644))
	_, err := LoadTaxonomy(path)
	assert.Error(t, err)
}

func TestSplitAccountCode(t *testing.T) {
	name, code := SplitAccountCode("4010 - Sales Revenue")
	assert.Equal(t, "Sales Revenue", name)
	assert.Equal(t, "4010", code)

	name, code = SplitAccountCode("510200. Materia Prima")
	assert.Equal(t, "Materia Prima", name)
	assert.Equal(t, "510200", code)

	name, code = SplitAccountCode("Sales Revenue")
	assert.Equal(t, "Sales Revenue", name)
	assert.Equal(t, "", code)

	name, code = SplitAccountCode("2024 Budget")
	assert.Equal(t, "Budget", name)
	assert.Equal(t, "2024", code)
}
