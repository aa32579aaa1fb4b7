package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/pennywise/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrEmptySlice   = errors.New("slice cannot be empty")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateExpense validates a single expense, including its ID.
func validateExpense(expense *model.Expense) error {
	if expense == nil {
		return fmt.Errorf("%w: expense", ErrNilParameter)
	}
	if strings.TrimSpace(expense.ID) == "" {
		return fmt.Errorf("%w: missing ID", model.ErrInvalidExpense)
	}
	if strings.TrimSpace(string(expense.Category)) == "" {
		return fmt.Errorf("%w: missing category", model.ErrInvalidExpense)
	}
	return expense.Validate()
}

// validateExpenses validates a slice of expenses.
func validateExpenses(expenses []model.Expense) error {
	if expenses == nil {
		return fmt.Errorf("%w: expenses", ErrNilParameter)
	}
	if len(expenses) == 0 {
		return fmt.Errorf("%w: expenses", ErrEmptySlice)
	}

	for i := range expenses {
		if err := validateExpense(&expenses[i]); err != nil {
			return fmt.Errorf("expense at index %d: %w", i, err)
		}
	}
	return nil
}

// validateBudget validates a budget.
func validateBudget(budget model.Budget) error {
	return budget.Validate()
}
