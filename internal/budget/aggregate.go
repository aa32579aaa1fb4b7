// Package budget aggregates categorized expenses and evaluates them against
// per-category spending limits.
package budget

import (
	"sort"

	"github.com/Veraticus/pennywise/internal/model"
)

// Aggregate groups expenses by category and sums amount and count. The result
// is sorted by category name and is never nil.
func Aggregate(expenses []model.Expense) []model.CategoryAggregate {
	byCategory := make(map[model.Category]*model.CategoryAggregate)
	for _, exp := range expenses {
		agg, ok := byCategory[exp.Category]
		if !ok {
			agg = &model.CategoryAggregate{Category: exp.Category}
			byCategory[exp.Category] = agg
		}
		agg.TotalAmount += exp.Amount
		agg.Count++
	}

	result := make([]model.CategoryAggregate, 0, len(byCategory))
	for _, agg := range byCategory {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Category < result[j].Category
	})
	return result
}

// AggregateByMonth groups expenses by calendar month (YYYY-MM) and category.
// Months are ascending; categories within a month sort by name.
func AggregateByMonth(expenses []model.Expense) []model.MonthlyAggregate {
	type key struct {
		month    string
		category model.Category
	}
	groups := make(map[key]*model.MonthlyAggregate)
	for _, exp := range expenses {
		k := key{month: exp.Date.Format("2006-01"), category: exp.Category}
		agg, ok := groups[k]
		if !ok {
			agg = &model.MonthlyAggregate{
				Month:             k.month,
				CategoryAggregate: model.CategoryAggregate{Category: exp.Category},
			}
			groups[k] = agg
		}
		agg.TotalAmount += exp.Amount
		agg.Count++
	}

	result := make([]model.MonthlyAggregate, 0, len(groups))
	for _, agg := range groups {
		result = append(result, *agg)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Month != result[j].Month {
			return result[i].Month < result[j].Month
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// Total sums the aggregates.
func Total(aggregates []model.CategoryAggregate) (amount float64, count int) {
	for _, agg := range aggregates {
		amount += agg.TotalAmount
		count += agg.Count
	}
	return amount, count
}
