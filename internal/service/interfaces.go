// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
)

// ExpenseFilter defines filtering options for expense queries. Zero values
// disable the corresponding filter.
type ExpenseFilter struct {
	From     *time.Time
	To       *time.Time
	Category model.Category
	Limit    int
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Expense operations
	SaveExpense(ctx context.Context, expense *model.Expense) error
	SaveExpenses(ctx context.Context, expenses []model.Expense) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, expense *model.Expense) error
	UpdateExpenseCategories(ctx context.Context, expenses []model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	DeleteExpenses(ctx context.Context, ids []string) (int, error)

	// Budget operations
	SetBudget(ctx context.Context, budget model.Budget) error
	GetBudgets(ctx context.Context) ([]model.Budget, error)
	DeleteBudget(ctx context.Context, category model.Category) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
