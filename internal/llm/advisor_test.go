package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvisor_Advise(t *testing.T) {
	spending := SpendingContext{
		Recent: []model.Expense{{
			Title:    "Starbucks Coffee",
			Amount:   5.25,
			Category: model.CategoryFood,
			Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		}},
		ByCategory:  []model.CategoryAggregate{{Category: model.CategoryFood, TotalAmount: 5.25, Count: 1}},
		TotalAmount: 5.25,
		Count:       1,
	}

	t.Run("no backend", func(t *testing.T) {
		a := NewAdvisor(nil, time.Second, slog.Default())
		assert.Equal(t, AdviceUnavailable, a.Advise(context.Background(), "how am I doing?", spending))
	})

	t.Run("answers with context", func(t *testing.T) {
		mock := NewMockGenerator("  Cut back on coffee.  ")
		a := NewAdvisor(mock, time.Second, slog.Default())

		assert.Equal(t, "Cut back on coffee.", a.Advise(context.Background(), "how am I doing?", spending))

		prompts := mock.Prompts()
		require.Len(t, prompts, 1)
		assert.Contains(t, prompts[0], `"how am I doing?"`)
		assert.Contains(t, prompts[0], `"title": "Starbucks Coffee"`)
		assert.Contains(t, prompts[0], `"date": "2024-03-01"`)
		assert.Contains(t, prompts[0], `"totalAmount": 5.25`)
	})

	t.Run("backend error", func(t *testing.T) {
		mock := NewMockGenerator("")
		mock.Err = errors.New("offline")
		a := NewAdvisor(mock, time.Second, slog.Default())
		assert.Equal(t, AdviceFailed, a.Advise(context.Background(), "hi", spending))
	})

	t.Run("empty answer", func(t *testing.T) {
		a := NewAdvisor(NewMockGenerator(" "), time.Second, slog.Default())
		assert.Equal(t, AdviceFailed, a.Advise(context.Background(), "hi", SpendingContext{}))
	})
}
