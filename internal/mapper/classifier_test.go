package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAccountExactKeyword(t *testing.T) {
	lc := NewLocalClassifier(nil)
	ctx := ClassifierContext{StatementType: StatementProfitLoss}

	cls := lc.ClassifyAccount("Sales Revenue", nil, ctx)
	assert.Equal(t, CategoryRevenue, cls.SuggestedCategory)
	assert.Equal(t, 85, cls.Confidence)
	assert.True(t, cls.IsInflow)

	cls = lc.ClassifyAccount("Income Tax Provision", nil, ctx)
	assert.Equal(t, CategoryTaxes, cls.SuggestedCategory, "tax vocabulary must beat the broad revenue bucket")
	assert.False(t, cls.IsInflow)

	cls = lc.ClassifyAccount("Marketing Expense", nil, ctx)
	assert.Equal(t, CategoryOperatingExpenses, cls.SuggestedCategory)
	assert.False(t, cls.IsInflow)
	assert.GreaterOrEqual(t, cls.Confidence, 0)
	assert.LessOrEqual(t, cls.Confidence, 100)

	cls = lc.ClassifyAccount("Sueldos y Cargas Sociales", nil, ctx)
	assert.Equal(t, CategoryOperatingExpenses, cls.SuggestedCategory)
	assert.Equal(t, "personnel", cls.Subcategory)
	assert.False(t, cls.IsInflow)
}

func TestClassifyAccountFuzzyTypo(t *testing.T) {
	lc := NewLocalClassifier(nil)
	cls := lc.ClassifyAccount("Revenu", nil, ClassifierContext{})
	assert.Equal(t, CategoryRevenue, cls.SuggestedCategory)
	assert.Equal(t, 60, cls.Confidence)

	cls = lc.ClassifyAccount("Marketin Digital", nil, ClassifierContext{})
	assert.Equal(t, CategoryOperatingExpenses, cls.SuggestedCategory)
	assert.Equal(t, "marketing", cls.Subcategory)
}

func TestClassifyAccountSampleSignGuess(t *testing.T) {
	lc := NewLocalClassifier(nil)
	neg := -1200.0
	cls := lc.ClassifyAccount("Zzq Adjustments", &neg, ClassifierContext{})
	assert.Equal(t, CategoryOther, cls.SuggestedCategory)
	assert.Equal(t, SubcategoryMisc, cls.Subcategory)
	assert.False(t, cls.IsInflow)
	assert.Equal(t, 25, cls.Confidence)

	pos := 900.0
	cls = lc.ClassifyAccount("Zzq Adjustments", &pos, ClassifierContext{})
	assert.True(t, cls.IsInflow)
}

func TestClassifyAccountNoMatch(t *testing.T) {
	lc := NewLocalClassifier(nil)
	cls := lc.ClassifyAccount("Zzq", nil, ClassifierContext{})
	assert.Equal(t, CategoryOther, cls.SuggestedCategory)
	assert.Equal(t, 20, cls.Confidence)

	cls = lc.ClassifyAccount("   ", nil, ClassifierContext{})
	assert.Equal(t, CategoryOther, cls.SuggestedCategory)
	assert.Equal(t, 10, cls.Confidence)
}

func TestClassifyAccountDeterministic(t *testing.T) {
	lc := NewLocalClassifier(nil)
	a := lc.ClassifyAccount("Utilities", nil, ClassifierContext{})
	b := lc.ClassifyAccount("Utilities", nil, ClassifierContext{})
	assert.Equal(t, a, b)
}
