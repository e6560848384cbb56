package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/llm"
)

// Task is a title without historical matches, waiting for an estimate.
type Task struct {
	ModuleName string
	Title      string
}

// HourEstimator asks the model for one task estimate at a time while
// spending a fixed hour budget.
type HourEstimator struct {
	llm    llm.Completer
	model  string
	logger *slog.Logger
}

func NewHourEstimator(completer llm.Completer, model string, logger *slog.Logger) *HourEstimator {
	return &HourEstimator{llm: completer, model: model, logger: logger}
}

type estimateItem struct {
	ModuleName string   `json:"moduleName"`
	Title      string   `json:"title"`
	Duration   *float64 `json:"duration"`
}

// Estimate processes tasks strictly in order. Each task may use at most its
// even share of what is left of budget; the last task receives everything
// that remains, so the durations always sum to budget. A negative budget is
// treated as zero. An unusable model answer aborts the whole run.
func (e *HourEstimator) Estimate(ctx context.Context, tasks []Task, budget float64) ([]domain.Suggestion, error) {
	log := NewLogger(ctx, e.logger)
	budget = math.Max(budget, 0)

	out := make([]domain.Suggestion, 0, len(tasks))
	var consumed float64
	for i, t := range tasks {
		remainingHours := budget - consumed
		remainingCount := len(tasks) - i
		maxHours := remainingHours / float64(remainingCount)

		var duration float64
		if maxHours > 0 {
			answer, err := e.ask(ctx, t, maxHours)
			if err != nil {
				return nil, err
			}
			duration = math.Max(0, math.Min(answer, maxHours))
		}
		if i == len(tasks)-1 {
			duration = remainingHours
		}
		consumed += duration

		log.LogDebug("estimate hours", "task estimated",
			"item", i+1, "of", len(tasks), "title", t.Title,
			"max_hours", maxHours, "duration", duration, "consumed", consumed, "budget", budget)

		out = append(out, domain.Suggestion{
			ModuleName: t.ModuleName,
			Title:      t.Title,
			Duration:   duration,
			Exists:     false,
		})
	}
	return out, nil
}

func (e *HourEstimator) ask(ctx context.Context, t Task, maxHours float64) (float64, error) {
	const op = "estimate hours"
	raw, err := e.llm.Complete(ctx, llm.Request{
		Prompt:      estimatePrompt(t.ModuleName, t.Title, maxHours),
		Model:       e.model,
		Temperature: 0.7,
	})
	if err != nil {
		return 0, domain.Upstream(op, err)
	}

	d, err := parseEstimate(raw)
	if err != nil {
		return 0, domain.Malformed(op, raw, err)
	}
	return d, nil
}

// parseEstimate accepts the requested single-element array or a bare object.
func parseEstimate(raw string) (float64, error) {
	body := llm.StripFences(raw)

	var items []estimateItem
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		var item estimateItem
		if objErr := json.Unmarshal([]byte(body), &item); objErr != nil {
			return 0, fmt.Errorf("parse estimate: %w", err)
		}
		items = []estimateItem{item}
	}

	if len(items) == 0 || items[0].Duration == nil {
		return 0, errors.New("estimate has no duration")
	}
	d := *items[0].Duration
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, errors.New("estimate duration is not a number")
	}
	return d, nil
}
