package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/pennywise/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SubtleStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return BoldStyle.Foreground(PrimaryColor).PaddingRight(1).PaddingLeft(1)
			}
			return TableCellStyle.PaddingLeft(1)
		}).
		Headers(headers...)
}

// FormatAmount renders an amount with two decimals.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// RenderExpenses renders expenses as a table.
func RenderExpenses(expenses []model.Expense) string {
	t := newTable("ID", "Date", "Title", "Amount", "Category", "Origin")
	for _, exp := range expenses {
		t.Row(
			shortID(exp.ID),
			exp.Date.Format("2006-01-02"),
			truncate(exp.Title, 40),
			FormatAmount(exp.Amount),
			string(exp.Category),
			string(exp.Origin),
		)
	}
	return t.String()
}

// RenderAggregates renders per-category totals followed by a grand total row.
func RenderAggregates(aggregates []model.CategoryAggregate) string {
	t := newTable("Category", "Total", "Count")
	var (
		total float64
		count int
	)
	for _, agg := range aggregates {
		t.Row(string(agg.Category), FormatAmount(agg.TotalAmount), fmt.Sprint(agg.Count))
		total += agg.TotalAmount
		count += agg.Count
	}
	t.Row("Total", FormatAmount(total), fmt.Sprint(count))
	return t.String()
}

// RenderMonthly renders per-month, per-category totals.
func RenderMonthly(aggregates []model.MonthlyAggregate) string {
	t := newTable("Month", "Category", "Total", "Count")
	for _, agg := range aggregates {
		t.Row(agg.Month, string(agg.Category), FormatAmount(agg.TotalAmount), fmt.Sprint(agg.Count))
	}
	return t.String()
}

// RenderBudgets renders configured budget limits.
func RenderBudgets(budgets []model.Budget) string {
	t := newTable("Category", "Limit")
	for _, b := range budgets {
		t.Row(string(b.Category), FormatAmount(b.Limit))
	}
	return t.String()
}

// RenderBudgetStatuses renders budget progress with a usage bar per category.
func RenderBudgetStatuses(statuses []model.BudgetStatus) string {
	t := newTable("Category", "Spent", "Limit", "Used", "State", "Over by")
	for _, s := range statuses {
		overage := ""
		if s.State == model.BudgetOver {
			overage = FormatAmount(s.Overage)
		}
		t.Row(
			string(s.Category),
			FormatAmount(s.Spent),
			FormatAmount(s.Limit),
			UsageBar(s.Percentage, 20)+fmt.Sprintf(" %3.0f%%", s.Percentage),
			FormatBudgetState(s.State),
			overage,
		)
	}
	return t.String()
}

// FormatBudgetState colors a budget state.
func FormatBudgetState(state model.BudgetState) string {
	switch state {
	case model.BudgetOver:
		return ErrorStyle.Render(string(state))
	case model.BudgetNear:
		return WarningStyle.Render(string(state))
	default:
		return SuccessStyle.Render(string(state))
	}
}

// UsageBar draws a fixed-width bar for a percentage in [0, 100].
func UsageBar(percentage float64, width int) string {
	if width <= 0 {
		return ""
	}
	switch {
	case percentage < 0:
		percentage = 0
	case percentage > 100:
		percentage = 100
	}
	filled := int(percentage / 100 * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
