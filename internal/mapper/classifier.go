package mapper

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

// ClassifierContext carries the statement-type context that shifts the
// classification vocabulary.
type ClassifierContext struct {
	StatementType string
}

// LocalClassifier is the offline fallback classifier: a pure function of its
// inputs, consulted whenever no AI classification exists for an account
// name. It never fails: any non-empty name gets at least the generic
// "other" bucket.
type LocalClassifier struct {
	tax *Taxonomy
}

// NewLocalClassifier builds a classifier over the given taxonomy vocabulary.
func NewLocalClassifier(tax *Taxonomy) *LocalClassifier {
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	return &LocalClassifier{tax: tax}
}

// ClassifyAccount maps an account name (plus an optional sample value and
// statement-type context) to a suggested category, inflow polarity, and
// confidence. Resolution order: exact keyword rules, fuzzy token matching
// (one-edit tolerance for typos like "Reveune"), then a sample-sign guess,
// then other/miscellaneous.
func (lc *LocalClassifier) ClassifyAccount(name string, sampleValue *float64, ctx ClassifierContext) Classification {
	clean := sheetClean(name)
	lower := strings.ToLower(clean)

	cls := Classification{AccountName: clean}

	if lower == "" {
		cls.SuggestedCategory = CategoryOther
		cls.Subcategory = SubcategoryMisc
		cls.Confidence = 10
		cls.Reasoning = "empty account name"
		return lc.finish(cls, sampleValue)
	}

	// Exact keyword rules, first hit wins. Rule order puts the narrow
	// vocabularies (taxes, financial) ahead of the broad expense buckets so
	// "Tax Expense" resolves to taxes, not operating_expenses.
	for _, rule := range lc.tax.ClassifierRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				cls.SuggestedCategory = rule.Category
				cls.Subcategory = rule.Subcategory
				cls.Confidence = 85
				cls.Reasoning = fmt.Sprintf("keyword %q", kw)
				return lc.finish(cls, sampleValue)
			}
		}
	}

	// Fuzzy pass: tolerate a single edit per token against the same
	// vocabulary.
	if cat, sub, kw, ok := lc.fuzzyMatch(lower); ok {
		cls.SuggestedCategory = cat
		cls.Subcategory = sub
		cls.Confidence = 60
		cls.Reasoning = fmt.Sprintf("fuzzy match %q", kw)
		return lc.finish(cls, sampleValue)
	}

	// Sample-sign guess: negative figures smell like outflows.
	if sampleValue != nil && *sampleValue != 0 {
		cls.SuggestedCategory = CategoryOther
		cls.Subcategory = SubcategoryMisc
		cls.IsInflow = *sampleValue > 0
		cls.Confidence = 25
		cls.Reasoning = "sample value sign"
		return cls
	}

	cls.SuggestedCategory = CategoryOther
	cls.Subcategory = SubcategoryMisc
	cls.Confidence = 20
	cls.Reasoning = "no vocabulary match"
	return lc.finish(cls, sampleValue)
}

func (lc *LocalClassifier) fuzzyMatch(lower string) (cat, sub, kw string, ok bool) {
	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '/'
	})
	for _, rule := range lc.tax.ClassifierRules {
		for _, keyword := range rule.Keywords {
			if len(keyword) < 5 || strings.Contains(keyword, " ") {
				continue
			}
			for _, tok := range tokens {
				if len(tok) < 5 {
					continue
				}
				if levenshtein.ComputeDistance(tok, keyword) <= 1 {
					return rule.Category, rule.Subcategory, keyword, true
				}
			}
		}
	}
	return "", "", "", false
}

// finish applies the category's fixed polarity when it has one.
func (lc *LocalClassifier) finish(cls Classification, sampleValue *float64) Classification {
	if inflow, fixed := FixedPolarity(cls.SuggestedCategory); fixed {
		cls.IsInflow = inflow
	} else if sampleValue != nil {
		cls.IsInflow = *sampleValue > 0
	}
	cls.Confidence = clampConfidence(cls.Confidence)
	return cls
}
