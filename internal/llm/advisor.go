package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/pennywise/internal/common"
	"github.com/Veraticus/pennywise/internal/model"
)

// Fixed replies used when the advisor cannot reach a backend.
const (
	AdviceUnavailable = "I'm sorry, I can't provide advice right now because no AI backend is configured."
	AdviceFailed      = "I'm having trouble thinking right now. Please try again later."
)

// SpendingContext is the expense summary shared with the advisor.
type SpendingContext struct {
	Recent      []model.Expense
	ByCategory  []model.CategoryAggregate
	TotalAmount float64
	Count       int
}

// Advisor answers free-form finance questions with the caller's spending as context.
type Advisor struct {
	generator Generator
	logger    *slog.Logger
	timeout   time.Duration
}

// NewAdvisor creates an advisor. A nil generator makes every answer AdviceUnavailable.
func NewAdvisor(generator Generator, timeout time.Duration, logger *slog.Logger) *Advisor {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Advisor{generator: generator, timeout: timeout, logger: common.OrDefault(logger)}
}

// Advise returns the backend's answer, or a fixed message on any failure.
func (a *Advisor) Advise(ctx context.Context, question string, spending SpendingContext) string {
	if a.generator == nil {
		return AdviceUnavailable
	}

	prompt, err := buildAdvicePrompt(question, spending)
	if err != nil {
		a.logger.Error("failed to build advice prompt", "error", err)
		return AdviceFailed
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	answer, err := safeGenerate(ctx, a.generator, prompt)
	if err != nil {
		a.logger.Error("error getting AI advice", "error", err)
		return AdviceFailed
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return AdviceFailed
	}
	return answer
}

type adviceExpense struct {
	Date     string  `json:"date"`
	Title    string  `json:"title"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

type adviceContext struct {
	Categories     []model.CategoryAggregate `json:"categories,omitempty"`
	RecentExpenses []adviceExpense           `json:"recentExpenses"`
	Summary        struct {
		TotalAmount float64 `json:"totalAmount"`
		Count       int     `json:"count"`
	} `json:"summary"`
}

func buildAdvicePrompt(question string, spending SpendingContext) (string, error) {
	ctxData := adviceContext{Categories: spending.ByCategory}
	ctxData.Summary.TotalAmount = spending.TotalAmount
	ctxData.Summary.Count = spending.Count
	ctxData.RecentExpenses = make([]adviceExpense, 0, len(spending.Recent))
	for _, e := range spending.Recent {
		ctxData.RecentExpenses = append(ctxData.RecentExpenses, adviceExpense{
			Date:     e.Date.Format("2006-01-02"),
			Title:    e.Title,
			Category: string(e.Category),
			Amount:   e.Amount,
		})
	}

	data, err := json.MarshalIndent(ctxData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal spending context: %w", err)
	}

	return fmt.Sprintf(`You are a wise and helpful financial advisor and expense tracking assistant.

Here is the user's current expense context:
%s

The user asks: %q

Provide a helpful, friendly, and concise response.
If they ask for advice, analyze their spending patterns and suggest improvements.
If they ask a general question, answer it.
Keep the tone encouraging, professional yet accessible.
Do not output raw JSON, talk to the user naturally.`, string(data), question), nil
}
