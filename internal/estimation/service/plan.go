package service

import (
	"context"
	"errors"
	"strings"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/llm"
)

// DraftPlan asks the model for a free-form feature plan (phases, budget and
// timeline per feature) for a project brief, usually text extracted from a
// PDF. Nothing is stored.
func (s *EstimationService) DraftPlan(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.Invalid("prompt", "is required")
	}
	log := NewLogger(ctx, s.logger)

	const op = "draft plan"
	raw, err := s.llm.Complete(ctx, llm.Request{
		System: planSystemPrompt,
		Prompt: planPrompt(text),
		Model:  s.model,
	})
	if err != nil {
		err = domain.Upstream(op, err)
		log.LogError(op, err)
		return "", err
	}

	content := strings.TrimSpace(raw)
	if content == "" {
		err := domain.Malformed(op, raw, errors.New("empty plan"))
		log.LogError(op, err)
		return "", err
	}
	log.LogInfo(op, "plan drafted", "chars", len(content))
	return content, nil
}
