package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// ClassifierConfig tunes the classifier's resource limits.
type ClassifierConfig struct {
	Retry     common.RetryOptions
	Timeout   time.Duration // per backend attempt
	CacheTTL  time.Duration
	RateLimit int // requests per minute
}

// DefaultClassifierConfig returns the settings used when nothing is configured.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Retry:     common.DefaultRetryOptions(),
		Timeout:   20 * time.Second,
		CacheTTL:  24 * time.Hour,
		RateLimit: 60,
	}
}

// Classifier picks a taxonomy category for an expense using a Generator.
// Classify never fails: a missing backend, a backend error, or an answer outside
// the taxonomy all resolve to model.CategoryOther.
type Classifier struct {
	generator Generator
	cache     *categoryCache
	limiter   *requestLimiter
	logger    *slog.Logger
	taxonomy  model.Taxonomy
	retryOpts common.RetryOptions
	timeout   time.Duration
}

// NewClassifier creates a classifier. A nil generator yields a classifier in
// degraded mode that answers Other without any network call.
func NewClassifier(generator Generator, taxonomy model.Taxonomy, cfg ClassifierConfig, logger *slog.Logger) *Classifier {
	defaults := DefaultClassifierConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = defaults.Retry
	}
	if len(taxonomy) == 0 {
		taxonomy = model.DefaultTaxonomy()
	}

	c := &Classifier{
		generator: generator,
		taxonomy:  taxonomy,
		logger:    common.OrDefault(logger),
		retryOpts: cfg.Retry,
		timeout:   cfg.Timeout,
	}
	if generator != nil {
		c.cache = newCategoryCache(cfg.CacheTTL)
		c.limiter = newRequestLimiter(cfg.RateLimit)
	}
	return c
}

// Enabled reports whether a backend is configured.
func (c *Classifier) Enabled() bool {
	return c.generator != nil
}

// Classify returns the backend's best taxonomy category for the expense text.
func (c *Classifier) Classify(ctx context.Context, title, description string) model.Category {
	if c.generator == nil {
		c.logger.Warn("no AI backend configured and no keyword matched, defaulting to Other",
			"title", title)
		return model.CategoryOther
	}

	key := cacheKey(title, description)
	if category, found := c.cache.get(key); found {
		c.logger.Debug("cache hit for expense", "title", title, "category", category)
		return category
	}

	raw, err := c.generate(ctx, BuildClassificationPrompt(c.taxonomy, title, description))
	if err != nil {
		c.logger.Error("AI categorization failed, defaulting to Other",
			"title", title,
			"error", err)
		return model.CategoryOther
	}

	category, ok := c.taxonomy.Lookup(Sanitize(raw))
	if !ok {
		c.logger.Warn("AI returned invalid category, defaulting to Other",
			"title", title,
			"response", raw)
		return model.CategoryOther
	}

	c.cache.set(key, category)
	c.logger.Info("expense classified by AI", "title", title, "category", category)

	return category
}

// generate calls the backend with a timeout per attempt and exponential backoff
// between attempts. Each attempt waits for the rate limiter.
func (c *Classifier) generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var response string
	err := common.WithRetry(ctx, func() error {
		if err := c.limiter.wait(ctx); err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		text, err := safeGenerate(attemptCtx, c.generator, prompt)
		if err != nil {
			if errors.Is(err, errBackendPanic) || ctx.Err() != nil {
				return &common.RetryableError{Err: err, Retryable: false}
			}
			return &common.RetryableError{Err: err, Retryable: true}
		}
		if strings.TrimSpace(text) == "" {
			return &common.RetryableError{Err: common.ErrEmptyResponse, Retryable: true}
		}

		response = text
		return nil
	}, c.retryOpts)

	return response, err
}

var errBackendPanic = errors.New("backend panicked")

// safeGenerate converts a panicking backend into an error.
func safeGenerate(ctx context.Context, g Generator, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errBackendPanic, r)
		}
	}()
	return g.Generate(ctx, prompt)
}

// Close stops background goroutines and cleans up resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return Close(c.generator)
}

// BuildClassificationPrompt creates the prompt asking for exactly one category name.
func BuildClassificationPrompt(taxonomy model.Taxonomy, title, description string) string {
	return fmt.Sprintf(`You are an expert financial assistant.
Categorize the following expense into exactly one of these categories:
%s.

Expense Title: %s
Description: %s

Rules:
1. Return ONLY the category name from the list above.
2. Do not explain your reasoning.
3. Do not use punctuation or markdown formatting.
4. If unsure, choose the best fit or '%s'.`,
		strings.Join(taxonomy.Names(), ", "),
		title,
		description,
		model.CategoryOther)
}
