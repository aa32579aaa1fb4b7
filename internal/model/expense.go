// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidExpense is returned when an expense fails validation.
var ErrInvalidExpense = errors.New("invalid expense")

// Origin records how an expense entered the system.
type Origin string

// Origin constants.
const (
	OriginManual   Origin = "manual"
	OriginImported Origin = "imported"
)

// Expense is a single spending record.
type Expense struct {
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Origin      Origin    `json:"origin"`
	Amount      float64   `json:"amount"`
}

// NewExpense builds an uncategorized expense with a fresh ID.
func NewExpense(title, description string, amount float64, date time.Time, origin Origin) Expense {
	return Expense{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Amount:      amount,
		Date:        date,
		Category:    CategoryUncategorized,
		Origin:      origin,
	}
}

// Validate checks the invariants every stored expense must hold.
func (e *Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidExpense)
	}
	if e.Amount < 0 {
		return fmt.Errorf("%w: amount cannot be negative: %.2f", ErrInvalidExpense, e.Amount)
	}
	if e.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidExpense)
	}
	switch e.Origin {
	case OriginManual, OriginImported:
	default:
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidExpense, e.Origin)
	}
	return nil
}

// IsUnresolved reports whether the expense still carries a low-confidence category.
func (e *Expense) IsUnresolved() bool {
	return e.Category.IsUnresolved()
}
