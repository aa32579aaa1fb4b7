// Package testutil provides shared helpers for tests that need a real database.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/storage"
)

// TestDB wraps a migrated in-memory database for a single test.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It automatically handles
// migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.SeedExpenses(testutil.Expense("Coffee", 4.5, "2024-01-02", model.CategoryFood))
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedExpenses stores the given expenses or fails the test.
func (db *TestDB) SeedExpenses(expenses ...model.Expense) []model.Expense {
	db.t.Helper()
	if len(expenses) == 0 {
		return expenses
	}
	if err := db.Storage.SaveExpenses(context.Background(), expenses); err != nil {
		db.t.Fatalf("failed to seed expenses: %v", err)
	}
	return expenses
}

// SeedBudgets stores the given budgets or fails the test.
func (db *TestDB) SeedBudgets(budgets ...model.Budget) {
	db.t.Helper()
	for _, b := range budgets {
		if err := db.Storage.SetBudget(context.Background(), b); err != nil {
			db.t.Fatalf("failed to seed budget %q: %v", b.Category, err)
		}
	}
}

// Expense builds a manual expense dated YYYY-MM-DD. It panics on a malformed date.
func Expense(title string, amount float64, date string, category model.Category) model.Expense {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		panic(err)
	}
	exp := model.NewExpense(title, "", amount, d, model.OriginManual)
	exp.Category = category
	return exp
}
