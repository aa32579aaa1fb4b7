package engine_test

import (
	"context"
	"testing"

	"github.com/Veraticus/pennywise/internal/engine"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/rules"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_PersistedUpdates(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	db.SeedExpenses(
		testutil.Expense("Netflix", 15, "2024-04-01", model.CategoryOther),
		testutil.Expense("Unknown vendor", 40, "2024-04-02", model.CategoryUncategorized),
		testutil.Expense("Pharmacy", 9, "2024-04-03", model.CategoryShopping),
	)

	e := engine.New(rules.NewMatcher(rules.DefaultTable()), nil, engine.DefaultConfig(), nil)

	for pass, wantUpdated := range []int{2, 0} {
		expenses, err := db.Storage.ListExpenses(ctx, service.ExpenseFilter{})
		require.NoError(t, err)

		result, err := e.Sweep(ctx, expenses)
		require.NoError(t, err)
		assert.Equal(t, wantUpdated, result.UpdatedCount, "pass %d", pass)
		require.NoError(t, db.Storage.UpdateExpenseCategories(ctx, result.Updated))
	}

	expenses, err := db.Storage.ListExpenses(ctx, service.ExpenseFilter{})
	require.NoError(t, err)

	got := make(map[string]model.Category, len(expenses))
	for _, exp := range expenses {
		got[exp.Title] = exp.Category
	}
	assert.Equal(t, map[string]model.Category{
		"Netflix":        model.CategoryEntertainment,
		"Unknown vendor": model.CategoryOther,
		"Pharmacy":       model.CategoryShopping,
	}, got)
}
