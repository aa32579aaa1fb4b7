package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()

	require.Len(t, tax, 9)
	assert.Equal(t, CategoryFood, tax[0])
	assert.Equal(t, CategoryOther, tax[len(tax)-1])
	assert.False(t, tax.Contains(CategoryUncategorized))

	tests := []struct {
		text  string
		want  Category
		found bool
	}{
		{text: "Food", want: CategoryFood, found: true},
		{text: "  utilities ", want: CategoryUtilities, found: true},
		{text: "ENTERTAINMENT", want: CategoryEntertainment, found: true},
		{text: "Uncategorized", found: false},
		{text: "Groceries", found: false},
		{text: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := tax.Lookup(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, tax.Contains("Food"))
	assert.False(t, tax.Contains("food"))
}

func TestCategory_IsUnresolved(t *testing.T) {
	assert.True(t, CategoryUncategorized.IsUnresolved())
	assert.True(t, CategoryOther.IsUnresolved())
	assert.True(t, Category("").IsUnresolved())
	for _, c := range DefaultTaxonomy() {
		if c != CategoryOther {
			assert.False(t, c.IsUnresolved(), c)
		}
	}
}

func TestNewExpense(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	e := NewExpense("  Coffee ", " latte ", 4.5, date, OriginManual)

	_, err := uuid.Parse(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", e.Title)
	assert.Equal(t, "latte", e.Description)
	assert.Equal(t, CategoryUncategorized, e.Category)
	assert.True(t, e.IsUnresolved())
	assert.NoError(t, e.Validate())

	other := NewExpense("Coffee", "", 4.5, date, OriginManual)
	assert.NotEqual(t, e.ID, other.ID)
}

func TestExpense_Validate(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		modify func(*Expense)
		valid  bool
	}{
		{name: "valid", modify: func(*Expense) {}, valid: true},
		{name: "zero amount", modify: func(e *Expense) { e.Amount = 0 }, valid: true},
		{name: "blank title", modify: func(e *Expense) { e.Title = "   " }},
		{name: "negative amount", modify: func(e *Expense) { e.Amount = -0.01 }},
		{name: "missing date", modify: func(e *Expense) { e.Date = time.Time{} }},
		{name: "unknown origin", modify: func(e *Expense) { e.Origin = "scraped" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExpense("Rent", "", 1200, date, OriginImported)
			tt.modify(&e)

			err := e.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidExpense)
			}
		})
	}
}

func TestBudget_Validate(t *testing.T) {
	tests := []struct {
		name   string
		budget Budget
		valid  bool
	}{
		{name: "valid", budget: Budget{Category: CategoryFood, Limit: 100}, valid: true},
		{name: "zero limit", budget: Budget{Category: CategoryFood}},
		{name: "negative limit", budget: Budget{Category: CategoryFood, Limit: -5}},
		{name: "no category", budget: Budget{Limit: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.budget.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBudget)
			}
		})
	}
}
