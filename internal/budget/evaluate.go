package budget

import (
	"github.com/Veraticus/pennywise/internal/model"
)

// NearThreshold is the spent percentage at which a budget is reported as near
// its limit.
const NearThreshold = 80.0

// Evaluate reports the status of every budget, in budget order. Categories with
// no aggregate count as zero spending. Aggregates without a budget are ignored.
func Evaluate(budgets []model.Budget, aggregates []model.CategoryAggregate) []model.BudgetStatus {
	spent := make(map[model.Category]float64, len(aggregates))
	for _, agg := range aggregates {
		spent[agg.Category] += agg.TotalAmount
	}

	statuses := make([]model.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		statuses = append(statuses, Status(b, spent[b.Category]))
	}
	return statuses
}

// Status evaluates a single budget against the amount spent in its category.
func Status(b model.Budget, spent float64) model.BudgetStatus {
	status := model.BudgetStatus{
		Category: b.Category,
		Spent:    spent,
		Limit:    b.Limit,
		State:    model.BudgetUnder,
	}

	if b.Limit <= 0 {
		// Unusable limit; anything spent is over.
		if spent > 0 {
			status.State = model.BudgetOver
			status.Percentage = 100
			status.Overage = spent
		}
		return status
	}

	percentage := spent / b.Limit * 100
	if percentage > 100 {
		percentage = 100
	}
	status.Percentage = percentage

	switch {
	case spent > b.Limit:
		status.State = model.BudgetOver
		status.Overage = spent - b.Limit
	case percentage >= NearThreshold:
		status.State = model.BudgetNear
	}
	return status
}
