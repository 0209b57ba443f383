package service

import (
	"strings"
	"unicode/utf8"

	"blendcaja/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// VariancePolicy holds the escalation thresholds. A variance exactly at a
// threshold is still ACCEPTABLE; only strictly greater values escalate.
type VariancePolicy struct {
	PctThreshold           decimal.Decimal // percent of expected cash, e.g. 5 = 5%
	AbsThreshold           decimal.Decimal // currency units
	MinJustificationLength int             // runes, after trimming
}

func DefaultVariancePolicy() VariancePolicy {
	return VariancePolicy{
		PctThreshold:           decimal.NewFromInt(5),
		AbsThreshold:           decimal.NewFromInt(20),
		MinJustificationLength: 10,
	}
}

// VarianceReport is the outcome of comparing counted against expected cash.
type VarianceReport struct {
	ExpectedCash          decimal.Decimal
	CountedCash           decimal.Decimal
	Variance              decimal.Decimal // counted − expected; negative = faltante
	VariancePct           decimal.Decimal // rounded to 2 places; zero when expected ≤ 0
	Classification        model.VarianceClassification
	RequiresAuthorization bool
	Policy                VariancePolicy
}

// Reconcile classifies the variance between counted and expected cash. Pure.
//
// REQUIRES_REVIEW when |variance| > AbsThreshold, or when expected > 0 and
// |variance|/expected > PctThreshold%. When expected ≤ 0 the relative rule
// does not apply and only the absolute threshold is checked.
func Reconcile(expected, counted decimal.Decimal, p VariancePolicy) VarianceReport {
	variance := counted.Sub(expected)
	r := VarianceReport{
		ExpectedCash: expected,
		CountedCash:  counted,
		Variance:     variance,
		VariancePct:  decimal.Zero,
		Policy:       p,
	}
	if expected.IsPositive() {
		r.VariancePct = variance.Mul(hundred).Div(expected).Round(2)
	}

	abs := variance.Abs()
	switch {
	case variance.IsZero():
		r.Classification = model.VarianceExact
	case abs.GreaterThan(p.AbsThreshold):
		r.Classification = model.VarianceRequiresReview
	// |v|/expected > pct/100  ⇔  |v|·100 > pct·expected, no division rounding
	case expected.IsPositive() && abs.Mul(hundred).GreaterThan(p.PctThreshold.Mul(expected)):
		r.Classification = model.VarianceRequiresReview
	default:
		r.Classification = model.VarianceAcceptable
	}
	r.RequiresAuthorization = r.Classification == model.VarianceRequiresReview
	return r
}

// justificationOK reports whether text satisfies the policy minimum. Blank
// text never does, even with a zero minimum.
func (p VariancePolicy) justificationOK(text string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(text))
	return n > 0 && n >= p.MinJustificationLength
}
