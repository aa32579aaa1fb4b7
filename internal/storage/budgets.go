package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
)

// SetBudget creates or replaces the budget for a category.
func (s *SQLiteStorage) SetBudget(ctx context.Context, budget model.Budget) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(budget); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO budgets (category, amount_limit, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(category) DO UPDATE SET
			amount_limit = excluded.amount_limit,
			updated_at = excluded.updated_at`,
		string(budget.Category),
		budget.Limit,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}
	return nil
}

// GetBudgets returns every budget in the order it was first set.
func (s *SQLiteStorage) GetBudgets(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, amount_limit FROM budgets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	budgets := []model.Budget{}
	for rows.Next() {
		var (
			category string
			budget   model.Budget
		)
		if err := rows.Scan(&category, &budget.Limit); err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budget.Category = model.Category(category)
		budgets = append(budgets, budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}
	return budgets, nil
}

// DeleteBudget removes the budget for a category.
func (s *SQLiteStorage) DeleteBudget(ctx context.Context, category model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(string(category), "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM budgets WHERE category = ?`, string(category))
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return requireAffected(result, "budget "+string(category))
}
