package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WarrenFinSaas/internal/sheet"
)

func totalsFixture() sheet.RawSheet {
	return sheet.RawSheet{
		{"Flujo de Caja"},
		{"Cuentas", "Ene-24", "Feb-24"},
		{"Ventas Nacionales", "10,000", "11,000"},
		{""},
		{"TOTAL INGRESOS", "10,000", "11,000"},
		{"Pago a Proveedores", "-4,000", "-4,200"},
		{"Subtotal Gastos Operativos", "-4,000", "-4,200"},
		{"Total Gross Margin %", "60%", "62%"},
	}
}

func TestDetectTotalRows(t *testing.T) {
	dets := DetectTotalRows(totalsFixture(), DefaultTaxonomy(), StatementCashFlow, 0, 2)
	require.Len(t, dets, 2)

	byRow := map[int]TotalDetection{}
	for _, d := range dets {
		byRow[d.RowIndex] = d
	}

	ingresos, ok := byRow[4]
	require.True(t, ok, "TOTAL INGRESOS must be detected")
	assert.Equal(t, TotalRow, ingresos.Type)
	assert.Equal(t, CategoryRevenue, ingresos.SuggestedCategory)
	// base 60, prefix +20, all caps +10, blank row above +5
	assert.Equal(t, 95, ingresos.Confidence)

	sub, ok := byRow[6]
	require.True(t, ok, "subtotal row must be detected")
	assert.Equal(t, SubtotalRow, sub.Type)
	assert.Equal(t, CategoryOperatingExpenses, sub.SuggestedCategory)
	assert.Equal(t, 80, sub.Confidence)
}

func TestDetectTotalRowsSkipsCalculatedMetrics(t *testing.T) {
	dets := DetectTotalRows(totalsFixture(), DefaultTaxonomy(), StatementProfitLoss, 0, 2)
	for _, d := range dets {
		assert.NotEqual(t, 7, d.RowIndex, "calculated margin row must not be a total")
	}
}

func TestDetectTotalRowsIdempotent(t *testing.T) {
	s := totalsFixture()
	first := DetectTotalRows(s, DefaultTaxonomy(), StatementCashFlow, 0, 2)
	second := DetectTotalRows(s, DefaultTaxonomy(), StatementCashFlow, 0, 2)
	assert.Equal(t, first, second)
}

func TestDetectTotalRowsUncategorizedTotal(t *testing.T) {
	s := sheet.RawSheet{
		{"Account", "Jan-24"},
		{"Total Sundry Items", "400"},
	}
	dets := DetectTotalRows(s, DefaultTaxonomy(), StatementProfitLoss, 0, 1)
	require.Len(t, dets, 1)
	assert.Equal(t, CategoryOther, dets[0].SuggestedCategory)
}
