// Package rollup derives the monetary totals of estimates and jobs from their rows.
//
// All functions are pure: callers fetch rows, call into this package and persist
// the result in the same transaction as the mutation that triggered it.
package rollup

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MoneyPlaces is the number of fractional digits stored for monetary values.
	MoneyPlaces = 2
	// QuantityPlaces is the number of fractional digits stored for line item quantities.
	QuantityPlaces = 3
)

var hundred = decimal.NewFromInt(100)

// Variance compares a job's budget with its logged costs.
type Variance struct {
	BudgetTotal decimal.Decimal `json:"budgetTotal"`
	ActualTotal decimal.Decimal `json:"actualTotal"`
	// Variance is actual minus budget; positive means over budget.
	Variance    decimal.Decimal `json:"variance"`
	VariancePct decimal.Decimal `json:"variancePct"`
}

// OverBudget reports whether actual spend exceeds the budget.
func (v Variance) OverBudget() bool {
	return v.Variance.IsPositive()
}

// LineItemTotal returns quantity × unitPrice rounded to cents.
// Negative inputs are multiplied as given.
func LineItemTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(MoneyPlaces)
}

// EstimateTotal sums line item totals. An empty estimate totals zero.
func EstimateTotal(lineTotals []decimal.Decimal) decimal.Decimal {
	return Sum(lineTotals...)
}

// JobVariance computes budget against actual for one job.
func JobVariance(budgetTotals, costAmounts []decimal.Decimal) Variance {
	budget := Sum(budgetTotals...)
	actual := Sum(costAmounts...)
	diff := actual.Sub(budget)

	pct := decimal.Zero
	if budget.IsPositive() {
		pct = diff.Div(budget).Mul(hundred).Round(MoneyPlaces)
	}

	return Variance{
		BudgetTotal: budget,
		ActualTotal: actual,
		Variance:    diff,
		VariancePct: pct,
	}
}

// Sum adds values and rounds to cents.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total.Round(MoneyPlaces)
}

// ParseAmount parses a decimal string as received at the API boundary.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// FitsPlaces reports whether d carries no significant digits beyond places,
// so storing it in a column of that scale does not round it.
func FitsPlaces(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// FormatMoney renders d with exactly two fractional digits.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(MoneyPlaces)
}
