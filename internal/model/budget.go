package model

import (
	"errors"
	"fmt"
)

// ErrInvalidBudget is returned when a budget fails validation.
var ErrInvalidBudget = errors.New("invalid budget")

// Budget is a spending limit for one category. There is at most one per category.
type Budget struct {
	Category Category `json:"category"`
	Limit    float64  `json:"limit"`
}

// Validate checks that the budget names a category and has a positive limit.
func (b *Budget) Validate() error {
	if b.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidBudget)
	}
	if b.Limit <= 0 {
		return fmt.Errorf("%w: limit must be positive: %.2f", ErrInvalidBudget, b.Limit)
	}
	return nil
}

// CategoryAggregate is the per-category total derived from a set of expenses.
type CategoryAggregate struct {
	Category    Category `json:"category"`
	TotalAmount float64  `json:"totalAmount"`
	Count       int      `json:"count"`
}

// MonthlyAggregate is a CategoryAggregate bucketed by calendar month.
type MonthlyAggregate struct {
	Month string `json:"month"` // YYYY-MM
	CategoryAggregate
}

// BudgetState describes how spend relates to a budget limit.
type BudgetState string

// Budget state constants.
const (
	BudgetUnder BudgetState = "under"
	BudgetNear  BudgetState = "near"
	BudgetOver  BudgetState = "over"
)

// BudgetStatus is the evaluated relationship between a budget and its spend.
type BudgetStatus struct {
	Category   Category    `json:"category"`
	State      BudgetState `json:"state"`
	Spent      float64     `json:"spent"`
	Limit      float64     `json:"limit"`
	Percentage float64     `json:"percentage"` // capped at 100
	Overage    float64     `json:"overage"`    // spent - limit when over, else 0
}
