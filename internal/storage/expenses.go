package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/service"
)

const expenseColumns = `id, title, description, amount, date, category, origin, created_at, updated_at`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SaveExpense inserts a single expense. Timestamps are filled in when unset.
func (s *SQLiteStorage) SaveExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	stampExpense(expense, time.Now().UTC())
	return insertExpense(ctx, s.db, expense)
}

// SaveExpenses inserts a batch of expenses in one transaction. Either every
// expense is stored or none is.
func (s *SQLiteStorage) SaveExpenses(ctx context.Context, expenses []model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpenses(expenses); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	for i := range expenses {
		stampExpense(&expenses[i], now)
		if err := insertExpense(ctx, tx, &expenses[i]); err != nil {
			return fmt.Errorf("expense at index %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expenses: %w", err)
	}
	return nil
}

// GetExpense returns the expense with the given ID.
func (s *SQLiteStorage) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// ListExpenses returns expenses matching the filter, newest first.
func (s *SQLiteStorage) ListExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("invalid date range: %s is after %s",
			filter.From.Format(time.DateOnly), filter.To.Format(time.DateOnly))
	}

	var (
		conditions []string
		args       []any
	)
	if filter.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.From != nil {
		conditions = append(conditions, "date >= ?")
		args = append(args, filter.From.UTC())
	}
	if filter.To != nil {
		conditions = append(conditions, "date <= ?")
		args = append(args, filter.To.UTC())
	}

	query := `SELECT ` + expenseColumns + ` FROM expenses`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY date DESC, created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	expenses := []model.Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, *expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense replaces the stored fields of an existing expense.
func (s *SQLiteStorage) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	expense.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET title = ?, description = ?, amount = ?, date = ?, category = ?, origin = ?, updated_at = ?
		WHERE id = ?`,
		expense.Title,
		expense.Description,
		expense.Amount,
		expense.Date.UTC(),
		string(expense.Category),
		string(expense.Origin),
		expense.UpdatedAt,
		expense.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense: %w", err)
	}
	return requireAffected(result, "expense "+expense.ID)
}

// UpdateExpenseCategories writes the category of every given expense in one
// transaction. It is used to persist re-categorization sweeps.
func (s *SQLiteStorage) UpdateExpenseCategories(ctx context.Context, expenses []model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(expenses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `UPDATE expenses SET category = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	for _, expense := range expenses {
		if err := validateString(expense.ID, "id"); err != nil {
			return err
		}
		if err := validateString(string(expense.Category), "category"); err != nil {
			return err
		}
		updatedAt := expense.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = now
		}
		result, err := stmt.ExecContext(ctx, string(expense.Category), updatedAt.UTC(), expense.ID)
		if err != nil {
			return fmt.Errorf("failed to update category for expense %s: %w", expense.ID, err)
		}
		if err := requireAffected(result, "expense "+expense.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category updates: %w", err)
	}
	return nil
}

// DeleteExpense removes a single expense.
func (s *SQLiteStorage) DeleteExpense(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return requireAffected(result, "expense "+id)
}

// DeleteExpenses removes every listed expense and reports how many existed.
func (s *SQLiteStorage) DeleteExpenses(ctx context.Context, ids []string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: ids", ErrEmptySlice)
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		if err := validateString(id, "id"); err != nil {
			return 0, err
		}
		placeholders[i] = "?"
		args[i] = id
	}

	// #nosec G202 - placeholders are generated, values are bound
	query := `DELETE FROM expenses WHERE id IN (` + strings.Join(placeholders, ", ") + `)`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expenses: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

func insertExpense(ctx context.Context, q queryer, expense *model.Expense) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO expenses (`+expenseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID,
		expense.Title,
		expense.Description,
		expense.Amount,
		expense.Date.UTC(),
		string(expense.Category),
		string(expense.Origin),
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save expense: %w", mapWriteError(err))
	}
	return nil
}

func stampExpense(expense *model.Expense, now time.Time) {
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = now
	}
	if expense.UpdatedAt.IsZero() {
		expense.UpdatedAt = expense.CreatedAt
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*model.Expense, error) {
	var (
		expense  model.Expense
		category string
		origin   string
	)
	if err := row.Scan(
		&expense.ID,
		&expense.Title,
		&expense.Description,
		&expense.Amount,
		&expense.Date,
		&category,
		&origin,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	); err != nil {
		return nil, err
	}
	expense.Category = model.Category(category)
	expense.Origin = model.Origin(origin)
	return &expense, nil
}

func requireAffected(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	return nil
}
