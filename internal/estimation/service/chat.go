package service

import (
	"context"
	"errors"
	"strings"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/llm"
)

// ProjectContext describes the project a chat refinement is about.
// Duration is in hours.
type ProjectContext struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	UserMessage string  `json:"userMessage"`
}

type ChatRequest struct {
	Suggestions []domain.Suggestion
	Context     ProjectContext
	ProjectID   string
}

type ChatResult struct {
	Explanation        string              `json:"explanation"`
	UpdatedSuggestions []domain.Suggestion `json:"updatedSuggestions"`
}

type chatResponse struct {
	Explanation        string              `json:"explanation"`
	UpdatedSuggestions []domain.Suggestion `json:"updatedSuggestions"`
}

// RefineSuggestions lets the model revise a suggestion list following the
// user's message. The exists flag of the i-th input suggestion is restored
// on the i-th output suggestion; anything past the input is new and never
// exists. With a ProjectID the exchange is appended to the project's chat
// history. Stored modules are left alone.
func (s *EstimationService) RefineSuggestions(ctx context.Context, req ChatRequest) (*ChatResult, error) {
	if strings.TrimSpace(req.Context.UserMessage) == "" {
		return nil, domain.Invalid("projectContext.userMessage", "is required")
	}
	log := NewLogger(ctx, s.logger)

	const op = "refine suggestions"
	raw, err := s.llm.Complete(ctx, llm.Request{
		Prompt:   chatPrompt(req.Context, req.Suggestions),
		JSONMode: true,
		Model:    s.chatModel,
	})
	if err != nil {
		err = domain.Upstream(op, err)
		log.LogError(op, err)
		return nil, err
	}

	var resp chatResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		err = domain.Malformed(op, raw, err)
		log.LogError(op, err)
		return nil, err
	}
	if resp.UpdatedSuggestions == nil {
		err := domain.Malformed(op, raw, errors.New("missing updatedSuggestions"))
		log.LogError(op, err)
		return nil, err
	}

	for i := range resp.UpdatedSuggestions {
		if i < len(req.Suggestions) {
			resp.UpdatedSuggestions[i].Exists = req.Suggestions[i].Exists
		} else {
			resp.UpdatedSuggestions[i].Exists = false
		}
		if resp.UpdatedSuggestions[i].Duration < 0 {
			resp.UpdatedSuggestions[i].Duration = 0
		}
	}

	if req.ProjectID != "" {
		turn := domain.ChatTurn{User: req.Context.UserMessage, Explanation: resp.Explanation}
		if err := s.projects.AppendChat(ctx, req.ProjectID, turn); err != nil {
			log.LogError(op, err)
			return nil, err
		}
	}

	return &ChatResult{Explanation: resp.Explanation, UpdatedSuggestions: resp.UpdatedSuggestions}, nil
}
