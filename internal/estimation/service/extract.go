package service

import (
	"context"
	"errors"
	"strings"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/llm"
)

type extractedSubmodule struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type extractedModule struct {
	Name       string               `json:"name"`
	Submodules []extractedSubmodule `json:"submodules"`
	// Older prompt revisions answered with a singular key.
	Submodule []extractedSubmodule `json:"submodule"`
}

type extraction struct {
	ProjectName string            `json:"projectName"`
	Modules     []extractedModule `json:"modules"`
	Module      *extractedModule  `json:"module"`
}

// extract asks the model to structure free text into modules. Modules and
// submodules without a name or title are dropped; nothing left is an error.
func (s *EstimationService) extract(ctx context.Context, input string) (*extraction, error) {
	const op = "extract modules"
	raw, err := s.llm.Complete(ctx, llm.Request{
		System:      extractSystemPrompt,
		Prompt:      input,
		JSONMode:    true,
		Model:       s.model,
		Temperature: 0.1,
	})
	if err != nil {
		return nil, domain.Upstream(op, err)
	}

	var ext extraction
	if err := llm.DecodeJSON(raw, &ext); err != nil {
		return nil, domain.Malformed(op, raw, err)
	}
	if ext.Module != nil {
		ext.Modules = append(ext.Modules, *ext.Module)
		ext.Module = nil
	}

	modules := make([]extractedModule, 0, len(ext.Modules))
	for _, m := range ext.Modules {
		m.Name = strings.TrimSpace(m.Name)
		subs := append(m.Submodules, m.Submodule...)
		m.Submodules, m.Submodule = nil, nil
		for _, sub := range subs {
			sub.Title = strings.TrimSpace(sub.Title)
			if sub.Title == "" {
				continue
			}
			m.Submodules = append(m.Submodules, sub)
		}
		if m.Name == "" || len(m.Submodules) == 0 {
			continue
		}
		modules = append(modules, m)
	}
	if len(modules) == 0 {
		return nil, domain.Malformed(op, raw, errors.New("no modules in response"))
	}
	ext.Modules = modules
	return &ext, nil
}
