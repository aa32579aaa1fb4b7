package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv is an isolated config file and database for one test.
type testEnv struct {
	t       *testing.T
	dir     string
	cfgPath string
}

func newTestEnv(t *testing.T, extraConfig string) *testEnv {
	t.Helper()

	// Never reach a real backend.
	for _, key := range []string{"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "PENNYWISE_LLM_API_KEY"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	cfg := fmt.Sprintf("database:\n  path: %s\nlogging:\n  level: error\n%s",
		filepath.Join(dir, "pennywise.db"), extraConfig)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))

	viper.Reset()
	t.Cleanup(viper.Reset)

	return &testEnv{t: t, dir: dir, cfgPath: cfgPath}
}

func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	return e.runContext(context.Background(), args...)
}

func (e *testEnv) runContext(ctx context.Context, args ...string) (string, error) {
	e.t.Helper()
	viper.Reset()

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "pennywise %s", strings.Join(args, " "))
	return out
}

func (e *testEnv) listed() []model.Expense {
	e.t.Helper()
	var expenses []model.Expense
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("list", "--json", "-n", "0")), &expenses))
	return expenses
}

// useBackend points the environment at an OpenAI-compatible test server.
func (e *testEnv) useBackend(url, extra string) {
	e.t.Helper()
	e.cfgPath = e.writeFile("config-backend.yaml", fmt.Sprintf(
		"database:\n  path: %s\nlogging:\n  level: error\nllm:\n  provider: openai\n  api_key: test-key\n  base_url: %s\n  max_retries: 0\n%s",
		filepath.Join(e.dir, "pennywise.db"), url, extra))
}

func completion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"choices":[{"message":{"role":"assistant","content":%q}}]}`, content)
}

func (e *testEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, "")
	assert.Equal(t, "pennywise dev\n", env.mustRun("version"))
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		category model.Category
		source   string
	}{
		{
			name:     "keyword rule",
			args:     []string{"add", "Starbucks latte", "4.50", "--date", "2024-03-01"},
			category: model.CategoryFood,
			source:   "rule",
		},
		{
			name:     "override",
			args:     []string{"add", "Starbucks latte", "4.50", "-c", "Shopping"},
			category: model.CategoryShopping,
			source:   "override",
		},
		{
			name:     "no backend falls back to Other",
			args:     []string{"add", "Quokkaville", "12"},
			category: model.CategoryOther,
			source:   "ai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")

			out := env.mustRun(tt.args...)
			assert.Contains(t, out, fmt.Sprintf("→ %s (%s)", tt.category, tt.source))

			expenses := env.listed()
			require.Len(t, expenses, 1)
			assert.Equal(t, tt.category, expenses[0].Category)
			assert.Equal(t, model.OriginManual, expenses[0].Origin)
		})
	}
}

func TestAdd_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "negative amount", args: []string{"add", "--", "Coffee", "-3"}},
		{name: "not a number", args: []string{"add", "Coffee", "three"}},
		{name: "bad date", args: []string{"add", "Coffee", "3", "--date", "yesterday"}},
		{name: "blank title", args: []string{"add", "  ", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "")
			_, err := env.run(tt.args...)
			require.Error(t, err)

			var userErr *common.UserError
			assert.ErrorAs(t, err, &userErr)
		})
	}
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t, "")
	env.mustRun("add", "Uber to airport", "30", "--date", "2024-01-10")
	env.mustRun("add", "Pizza night", "25", "--date", "2024-02-03")
	env.mustRun("add", "Coffee", "4", "--date", "2024-02-20")

	tests := []struct {
		name   string
		args   []string
		titles []string
	}{
		{name: "newest first", args: nil, titles: []string{"Coffee", "Pizza night", "Uber to airport"}},
		{name: "month", args: []string{"--month", "2024-02"}, titles: []string{"Coffee", "Pizza night"}},
		{name: "category", args: []string{"--category", "Travel"}, titles: []string{"Uber to airport"}},
		{name: "inclusive to", args: []string{"--to", "2024-02-03"}, titles: []string{"Pizza night", "Uber to airport"}},
		{name: "limit", args: []string{"-n", "1"}, titles: []string{"Coffee"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var expenses []model.Expense
			out := env.mustRun(append([]string{"list", "--json"}, tt.args...)...)
			require.NoError(t, json.Unmarshal([]byte(out), &expenses))

			titles := make([]string, 0, len(expenses))
			for _, e := range expenses {
				titles = append(titles, e.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}

	_, err := env.run("list", "--month", "2024-02", "--from", "2024-01-01")
	assert.Error(t, err)
}

func TestEditAndDelete(t *testing.T) {
	env := newTestEnv(t, "")
	env.mustRun("add", "Quokkaville", "12", "--date", "2024-05-01")
	id := env.listed()[0].ID

	env.mustRun("edit", id, "--title", "Cinema tickets", "--recategorize")
	edited := env.listed()
	require.Len(t, edited, 1)
	assert.Equal(t, "Cinema tickets", edited[0].Title)
	assert.Equal(t, model.CategoryEntertainment, edited[0].Category)
	assert.InDelta(t, 12.0, edited[0].Amount, 0.001)

	// Declining the prompt keeps the expense.
	env.mustRun("delete", id)
	assert.Len(t, env.listed(), 1)

	out := env.mustRun("delete", "-y", id, "no-such-id")
	assert.Contains(t, out, "1 id(s) did not match")
	assert.Empty(t, env.listed())
}

func TestImportCSVAndExport(t *testing.T) {
	env := newTestEnv(t, "")
	path := env.writeFile("expenses.csv", `Title,Amount,Date,Description
Starbucks,4.50,2024-03-01,latte
Electric company,-80,03/05/2024,monthly bill
,10,2024-03-06,no title
Quokkaville,12,2024-03-07,
`)

	out := env.mustRun("import", "csv", path, "--dry-run")
	assert.Contains(t, out, "line 4 skipped")
	assert.Empty(t, env.listed())

	env.mustRun("import", "csv", path)
	expenses := env.listed()
	require.Len(t, expenses, 3)

	byTitle := make(map[string]model.Expense, len(expenses))
	for _, e := range expenses {
		byTitle[e.Title] = e
	}
	assert.Equal(t, model.CategoryFood, byTitle["Starbucks"].Category)
	assert.Equal(t, model.CategoryUtilities, byTitle["Electric company"].Category)
	assert.InDelta(t, 80.0, byTitle["Electric company"].Amount, 0.001)
	assert.Equal(t, model.CategoryOther, byTitle["Quokkaville"].Category)
	assert.Equal(t, model.OriginImported, byTitle["Starbucks"].Origin)

	exportPath := filepath.Join(env.dir, "out.csv")
	env.mustRun("export", "-o", exportPath, "--category", "Food")
	exported, err := os.ReadFile(exportPath) // #nosec G304 - test temp file
	require.NoError(t, err)
	assert.Equal(t, "title,amount,category,date,description\nStarbucks,4.50,Food,2024-03-01,latte\n", string(exported))
}

func TestAnalyze(t *testing.T) {
	env := newTestEnv(t, "")
	env.mustRun("add", "Quokkaville", "12", "--date", "2024-05-01")
	env.mustRun("add", "Coffee", "3", "--date", "2024-05-02")

	// Nothing new to learn without a backend or different rules.
	out := env.mustRun("analyze")
	assert.Contains(t, out, "Re-categorized 0 of 1")

	keywords := env.writeFile("keywords.yaml", "rules:\n  - category: entertainment\n    keywords: [quokka]\n")
	env.cfgPath = env.writeFile("config-rules.yaml", fmt.Sprintf(
		"database:\n  path: %s\nlogging:\n  level: error\nrules:\n  keywords: %s\n",
		filepath.Join(env.dir, "pennywise.db"), keywords))

	out = env.mustRun("analyze", "--dry-run")
	assert.Contains(t, out, "1 of 1 expense(s) would change")

	out = env.mustRun("analyze")
	assert.Contains(t, out, "Re-categorized 1 of 1")

	categories := map[string]model.Category{}
	for _, e := range env.listed() {
		categories[e.Title] = e.Category
	}
	assert.Equal(t, map[string]model.Category{
		"Quokkaville": model.CategoryEntertainment,
		"Coffee":      model.CategoryFood,
	}, categories)

	out = env.mustRun("analyze")
	assert.Contains(t, out, "Every expense already has a category")
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, "")
	env.mustRun("add", "Coffee", "4", "--date", "2024-01-05")
	env.mustRun("add", "Pizza", "16", "--date", "2024-02-05")
	env.mustRun("add", "Uber", "30", "--date", "2024-02-06")

	var totals struct {
		Categories []model.CategoryAggregate `json:"categories"`
		Total      float64                   `json:"totalAmount"`
		Count      int                       `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("stats", "--json")), &totals))
	assert.InDelta(t, 50.0, totals.Total, 0.001)
	assert.Equal(t, 3, totals.Count)
	require.Len(t, totals.Categories, 2)
	assert.Equal(t, model.CategoryFood, totals.Categories[0].Category)
	assert.InDelta(t, 20.0, totals.Categories[0].TotalAmount, 0.001)

	var months []model.MonthlyAggregate
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("stats", "--monthly", "--json")), &months))
	assert.Len(t, months, 3)

	out := env.mustRun("stats", "--month", "2024-02")
	assert.Contains(t, out, "Travel")
	assert.Contains(t, out, "$46.00")
}

func TestBudget(t *testing.T) {
	env := newTestEnv(t, "")
	today := time.Now().Format("2006-01-02")
	env.mustRun("add", "Grocery run", "90", "--date", today)
	env.mustRun("add", "Uber", "130", "--date", today)
	env.mustRun("add", "Old dinner", "500", "--date", "2020-01-01")

	env.mustRun("budget", "set", "food", "100")
	env.mustRun("budget", "set", "Travel", "$120")
	env.mustRun("budget", "set", "Health", "50")

	_, err := env.run("budget", "set", "Gizmos", "10")
	assert.Error(t, err)
	_, err = env.run("budget", "set", "Food", "0")
	assert.Error(t, err)

	out := env.mustRun("budget", "list")
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "$120.00")

	var statuses []model.BudgetStatus
	require.NoError(t, json.Unmarshal([]byte(env.mustRun("budget", "status", "--json")), &statuses))
	require.Len(t, statuses, 3)

	assert.Equal(t, model.CategoryFood, statuses[0].Category)
	assert.Equal(t, model.BudgetNear, statuses[0].State)
	assert.InDelta(t, 90.0, statuses[0].Percentage, 0.001)

	assert.Equal(t, model.CategoryTravel, statuses[1].Category)
	assert.Equal(t, model.BudgetOver, statuses[1].State)
	assert.InDelta(t, 100.0, statuses[1].Percentage, 0.001)
	assert.InDelta(t, 10.0, statuses[1].Overage, 0.001)

	assert.Equal(t, model.BudgetUnder, statuses[2].State)
	assert.InDelta(t, 0.0, statuses[2].Spent, 0.001)

	out = env.mustRun("budget", "status", "--all")
	assert.Contains(t, out, "Food is over budget by $490.00")
	assert.Contains(t, out, "Travel is over budget by $10.00")

	env.mustRun("budget", "delete", "travel")
	_, err = env.run("budget", "delete", "travel")
	assert.Error(t, err)
	out = env.mustRun("budget", "list")
	assert.NotContains(t, out, "Travel")
}

func TestClassify(t *testing.T) {
	env := newTestEnv(t, "")

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"classify", "Netflix"}, want: "Entertainment via rule"},
		{args: []string{"classify", "Weekend", "hotel stay"}, want: "Travel via rule"},
		{args: []string{"classify", "Quokkaville"}, want: "Other via ai"},
		{args: []string{"classify", "Netflix", "-c", "Education"}, want: "Education via override"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args[1:], " "), func(t *testing.T) {
			assert.Contains(t, env.mustRun(tt.args...), tt.want)
		})
	}

	assert.Empty(t, env.listed())
}

func TestAdviseWithoutBackend(t *testing.T) {
	env := newTestEnv(t, "")
	env.mustRun("add", "Coffee", "4")

	out := env.mustRun("advise", "Where", "can", "I", "save?")
	assert.Contains(t, out, "no AI backend is configured")
}

func TestMigrate(t *testing.T) {
	env := newTestEnv(t, "")

	out := env.mustRun("migrate", "--status")
	assert.Contains(t, out, "Schema version 0 (latest 2)")

	out = env.mustRun("migrate")
	assert.Contains(t, out, "Schema version 2 (latest 2)")

	out = env.mustRun("migrate")
	assert.Contains(t, out, "Schema version 2 (latest 2)")
}

func TestInvalidConfig(t *testing.T) {
	env := newTestEnv(t, "llm:\n  provider: carrier-pigeon\n")

	_, err := env.run("list")
	require.Error(t, err)

	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Equal(t, "Invalid configuration", userErr.UserMessage)
}

func TestAnalyze_InterruptKeepsCompletedUpdates(t *testing.T) {
	env := newTestEnv(t, "")
	env.mustRun("add", "Gizmo Alpha", "20", "--date", "2024-05-02")
	env.mustRun("add", "Gizmo Beta", "30", "--date", "2024-05-01")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var requests atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			completion(w, "Shopping")
			return
		}
		// Ctrl+C while the second expense is being classified.
		cancel()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer backend.Close()

	env.useBackend(backend.URL, "sweep:\n  workers: 1\n")
	out, err := env.runContext(ctx, "analyze")
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out, "Re-categorized 1 of")
	assert.EqualValues(t, 2, requests.Load())

	categories := map[string]model.Category{}
	for _, e := range env.listed() {
		categories[e.Title] = e.Category
	}
	assert.Equal(t, map[string]model.Category{
		"Gizmo Alpha": model.CategoryShopping,
		"Gizmo Beta":  model.CategoryOther,
	}, categories)
}

func TestClassify_SamplingSettingsReachBackend(t *testing.T) {
	env := newTestEnv(t, "")

	var body map[string]any
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		completion(w, "Education")
	}))
	defer backend.Close()

	env.useBackend(backend.URL, "  temperature: 0.4\n  max_tokens: 42\n")
	assert.Contains(t, env.mustRun("classify", "Quokkaville"), "Education via ai")

	require.NotNil(t, body)
	assert.InDelta(t, 0.4, body["temperature"], 1e-9)
	assert.InDelta(t, 42.0, body["max_tokens"], 1e-9)
}
