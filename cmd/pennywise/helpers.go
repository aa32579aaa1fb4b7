package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/config"
	"github.com/Veraticus/pennywise/internal/engine"
	"github.com/Veraticus/pennywise/internal/importer"
	"github.com/Veraticus/pennywise/internal/llm"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/Veraticus/pennywise/internal/rules"
	"github.com/Veraticus/pennywise/internal/service"
	"github.com/Veraticus/pennywise/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadSettings resolves the configuration read by initConfig.
func loadSettings() (config.Settings, error) {
	settings, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, common.NewUserError("Invalid configuration", err)
	}
	return settings, nil
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, settings config.Settings) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(settings.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// categorizer bundles the engine with the resources backing it.
type categorizer struct {
	engine     *engine.Engine
	classifier *llm.Classifier
	advisor    *llm.Advisor
	taxonomy   model.Taxonomy
}

// Close releases the classifier and its backend client.
func (c *categorizer) Close() {
	if err := c.classifier.Close(); err != nil {
		slog.Warn("Failed to close classifier", "error", err)
	}
}

// buildCategorizer wires keyword rules, the AI classifier and the engine from
// settings. Without an API key the classifier runs degraded.
func buildCategorizer(settings config.Settings) (*categorizer, error) {
	taxonomy := model.DefaultTaxonomy()

	table := rules.DefaultTable()
	if settings.Rules.Keywords != "" {
		loaded, err := rules.LoadTable(settings.Rules.Keywords, taxonomy)
		if err != nil {
			return nil, common.NewUserError("Could not load keyword rules from "+settings.Rules.Keywords, err)
		}
		table = loaded
	}

	generator, err := llm.NewGenerator(llmConfig(settings))
	if err != nil {
		return nil, common.NewUserError("Could not create the AI client", err)
	}
	if generator == nil {
		slog.Debug("No LLM API key configured; unmatched expenses will be categorized as Other")
	}

	classifierCfg := llm.DefaultClassifierConfig()
	classifierCfg.Timeout = settings.LLM.Timeout
	classifierCfg.CacheTTL = settings.LLM.CacheTTL
	classifierCfg.RateLimit = settings.LLM.RateLimit
	classifierCfg.Retry.MaxAttempts = settings.LLM.MaxRetries + 1

	classifier := llm.NewClassifier(generator, taxonomy, classifierCfg, slog.Default())

	eng := engine.New(rules.NewMatcher(table), classifier, engine.Config{
		Taxonomy:        taxonomy,
		SweepWorkers:    settings.Sweep.Workers,
		StrictOverrides: settings.Engine.StrictOverrides,
	}, slog.Default())

	return &categorizer{
		engine:     eng,
		classifier: classifier,
		advisor:    llm.NewAdvisor(generator, 3*settings.LLM.Timeout, slog.Default()),
		taxonomy:   taxonomy,
	}, nil
}

func llmConfig(settings config.Settings) llm.Config {
	return llm.Config{
		Provider: settings.LLM.Provider,
		APIKey:   settings.LLM.APIKey,
		Model:    settings.LLM.Model,
		BaseURL:  settings.LLM.BaseURL,
		Timeout:  settings.LLM.Timeout,

		Temperature: settings.LLM.Temperature,
		MaxTokens:   settings.LLM.MaxTokens,
	}
}

// addFilterFlags registers the shared expense filter flags.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("category", "", "only expenses in this category")
	cmd.Flags().String("from", "", "only expenses on or after this date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "only expenses on or before this date (YYYY-MM-DD)")
	cmd.Flags().String("month", "", "only expenses in this month (YYYY-MM)")
}

// filterFromFlags builds an expense filter from addFilterFlags flags.
func filterFromFlags(cmd *cobra.Command) (service.ExpenseFilter, error) {
	var filter service.ExpenseFilter

	category, _ := cmd.Flags().GetString("category")
	filter.Category = model.Category(strings.TrimSpace(category))

	month, _ := cmd.Flags().GetString("month")
	if month != "" {
		start, end, err := monthRange(month)
		if err != nil {
			return filter, err
		}
		filter.From, filter.To = &start, &end
	}

	for _, name := range []string{"from", "to"} {
		raw, _ := cmd.Flags().GetString(name)
		if raw == "" {
			continue
		}
		if month != "" {
			return filter, common.NewUserError("--month cannot be combined with --from or --to", nil)
		}
		d, err := importer.ParseDate(raw)
		if err != nil {
			return filter, common.NewUserError(fmt.Sprintf("Invalid --%s date", name), err)
		}
		if name == "from" {
			filter.From = &d
		} else {
			// Inclusive of the whole day.
			end := d.Add(24*time.Hour - time.Nanosecond)
			filter.To = &end
		}
	}

	return filter, nil
}

// monthRange returns the first and last instant of a YYYY-MM month.
func monthRange(month string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return time.Time{}, time.Time{}, common.NewUserError("Invalid --month, expected YYYY-MM", err)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end, nil
}

// parseAmount reads a non-negative amount argument.
func parseAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(raw), "$"), 64)
	if err != nil {
		return 0, common.NewUserError(fmt.Sprintf("Invalid amount %q", raw), err)
	}
	if amount < 0 {
		return 0, common.NewUserError("Amount cannot be negative", model.ErrInvalidExpense)
	}
	return amount, nil
}

// resolveCategory canonicalizes a user-supplied category against the taxonomy
// and rejects unknown names.
func resolveCategory(taxonomy model.Taxonomy, raw string) (model.Category, error) {
	category, ok := taxonomy.Lookup(raw)
	if !ok {
		return "", common.NewUserError(
			fmt.Sprintf("Unknown category %q (choose from: %s)", raw, strings.Join(taxonomy.Names(), ", ")),
			nil)
	}
	return category, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
