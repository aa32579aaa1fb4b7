package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Retry: common.RetryOptions{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			MaxDelay:     2 * time.Millisecond,
			Multiplier:   2,
		},
		Timeout:   time.Second,
		CacheTTL:  time.Minute,
		RateLimit: 6000,
	}
}

func newTestClassifier(t *testing.T, g Generator) *Classifier {
	t.Helper()
	c := NewClassifier(g, model.DefaultTaxonomy(), testClassifierConfig(), slog.Default())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClassifier_DegradedMode(t *testing.T) {
	c := newTestClassifier(t, nil)

	assert.False(t, c.Enabled())
	assert.Equal(t, model.CategoryOther, c.Classify(context.Background(), "Mystery Gadget", ""))
}

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     model.Category
	}{
		{name: "exact member", response: "Shopping", want: model.CategoryShopping},
		{name: "lower case", response: "health", want: model.CategoryHealth},
		{name: "markdown wrapped", response: "**Education**", want: model.CategoryEducation},
		{name: "unknown category", response: "Consulting", want: model.CategoryOther},
		{name: "sentence", response: "I think this is probably Food", want: model.CategoryOther},
		{name: "other", response: "Other", want: model.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockGenerator(tt.response)
			c := newTestClassifier(t, mock)

			got := c.Classify(context.Background(), "XYZ Corp Invoice #4821", "consulting")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, mock.CallCount())
		})
	}
}

func TestClassifier_PromptListsTaxonomy(t *testing.T) {
	mock := NewMockGenerator("Other")
	c := newTestClassifier(t, mock)

	c.Classify(context.Background(), "Lawn Service", "mowing")

	prompts := mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Expense Title: Lawn Service")
	assert.Contains(t, prompts[0], "Description: mowing")
	assert.Contains(t, prompts[0], strings.Join(model.DefaultTaxonomy().Names(), ", "))
	assert.Contains(t, prompts[0], "Return ONLY the category name")
}

func TestClassifier_ErrorFallsBackToOther(t *testing.T) {
	mock := NewMockGenerator("Food")
	mock.Err = errors.New("quota exceeded")
	c := newTestClassifier(t, mock)

	assert.Equal(t, model.CategoryOther, c.Classify(context.Background(), "Mystery Gadget", ""))
	assert.Equal(t, 2, mock.CallCount(), "transient errors are retried")
}

func TestClassifier_PanicFallsBackToOther(t *testing.T) {
	mock := NewMockGenerator("Food")
	mock.Panic = true
	c := newTestClassifier(t, mock)

	assert.NotPanics(t, func() {
		assert.Equal(t, model.CategoryOther, c.Classify(context.Background(), "Mystery Gadget", ""))
	})
	assert.Equal(t, 1, mock.CallCount(), "a panicking backend is not retried")
}

func TestClassifier_EmptyResponseFallsBackToOther(t *testing.T) {
	mock := NewMockGenerator("   ")
	c := newTestClassifier(t, mock)

	assert.Equal(t, model.CategoryOther, c.Classify(context.Background(), "Mystery Gadget", ""))
}

type blockingGenerator struct {
	mu    sync.Mutex
	calls int
}

func (b *blockingGenerator) Generate(ctx context.Context, _ string) (string, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	<-ctx.Done()
	return "", ctx.Err()
}

func TestClassifier_TimeoutFallsBackToOther(t *testing.T) {
	cfg := testClassifierConfig()
	cfg.Timeout = 10 * time.Millisecond
	gen := &blockingGenerator{}
	c := NewClassifier(gen, model.DefaultTaxonomy(), cfg, slog.Default())
	defer func() { _ = c.Close() }()

	start := time.Now()
	got := c.Classify(context.Background(), "Slow Vendor", "")

	assert.Equal(t, model.CategoryOther, got)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 2, gen.calls)
}

func TestClassifier_CanceledContext(t *testing.T) {
	mock := NewMockGenerator("Food")
	c := newTestClassifier(t, mock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, model.CategoryOther, c.Classify(ctx, "Anything", ""))
	assert.Equal(t, 0, mock.CallCount())
}

func TestClassifier_CachesResolvedCategories(t *testing.T) {
	mock := NewMockGenerator("Shopping")
	c := newTestClassifier(t, mock)
	ctx := context.Background()

	assert.Equal(t, model.CategoryShopping, c.Classify(ctx, "Gadget Hub", "cables"))
	assert.Equal(t, model.CategoryShopping, c.Classify(ctx, "  GADGET HUB ", "Cables"))
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, 1, c.cache.size())
}

func TestClassifier_DoesNotCacheFailures(t *testing.T) {
	mock := NewMockGenerator("Shopping")
	mock.Err = errors.New("temporarily down")
	c := newTestClassifier(t, mock)
	ctx := context.Background()

	assert.Equal(t, model.CategoryOther, c.Classify(ctx, "Gadget Hub", ""))
	assert.Equal(t, 0, c.cache.size())

	mock.mu.Lock()
	mock.Err = nil
	mock.mu.Unlock()

	assert.Equal(t, model.CategoryShopping, c.Classify(ctx, "Gadget Hub", ""))
}

func TestClassifier_ConcurrentUse(t *testing.T) {
	mock := NewMockGenerator("Travel")
	c := newTestClassifier(t, mock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, model.CategoryTravel, c.Classify(context.Background(), "Ferry crossing", ""))
		}()
	}
	wg.Wait()
}

func TestClassifier_RetriesAreRateLimited(t *testing.T) {
	mock := NewMockGenerator("Food")
	mock.Err = errors.New("503 service unavailable")

	cfg := testClassifierConfig()
	cfg.Retry.MaxAttempts = 3
	cfg.RateLimit = 1
	c := NewClassifier(mock, model.DefaultTaxonomy(), cfg, slog.Default())
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	assert.Equal(t, model.CategoryOther, c.Classify(ctx, "Mystery Gadget", ""))
	assert.Equal(t, 1, mock.CallCount(), "a retry must wait for a rate limit token")
}
