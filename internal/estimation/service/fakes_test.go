package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/estimation/repository"
	"github.com/scopewise/estimation-backend/internal/llm"
	"github.com/scopewise/estimation-backend/internal/storage/memory"
)

// fakeLLM routes each request to a handler by prompt kind and records calls.
type fakeLLM struct {
	mu    sync.Mutex
	calls []llm.Request

	extract    func(req llm.Request) (string, error)
	synonyms   func(req llm.Request) (string, error)
	estimate   func(req llm.Request) (string, error)
	correction func(req llm.Request) (string, error)
	chat       func(req llm.Request) (string, error)
	plan       func(req llm.Request) (string, error)
}

var errNoHandler = errors.New("no handler configured")

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	var h func(llm.Request) (string, error)
	switch kindOf(req) {
	case "extract":
		h = f.extract
	case "synonyms":
		h = f.synonyms
	case "estimate":
		h = f.estimate
	case "correction":
		h = f.correction
	case "chat":
		h = f.chat
	case "plan":
		h = f.plan
	}
	if h == nil {
		return "", errNoHandler
	}
	return h(req)
}

func (f *fakeLLM) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if kindOf(c) == kind {
			n++
		}
	}
	return n
}

func (f *fakeLLM) prompts(kind string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if kindOf(c) == kind {
			out = append(out, c.Prompt)
		}
	}
	return out
}

func kindOf(req llm.Request) string {
	switch {
	case req.System == extractSystemPrompt:
		return "extract"
	case req.System == synonymSystemPrompt:
		return "synonyms"
	case req.System == correctionSystemPrompt:
		return "correction"
	case req.System == planSystemPrompt:
		return "plan"
	case strings.Contains(req.Prompt, "estimate the development hours"):
		return "estimate"
	case strings.Contains(req.Prompt, "project planning assistant"):
		return "chat"
	default:
		return "unknown"
	}
}

func reply(s string) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return s, nil }
}

func fail(err error) func(llm.Request) (string, error) {
	return func(llm.Request) (string, error) { return "", err }
}

type fixture struct {
	store *memory.Store
	repo  *repository.ProjectRepository
	llm   *fakeLLM
	svc   *EstimationService
}

func newFixture(hoursPerDay float64) *fixture {
	store := memory.New()
	repo := repository.NewProjectRepository(store)
	fake := &fakeLLM{}
	matcher := NewMatcher(repo, fake, nil, "gpt-test", nil)
	svc := NewEstimationService(fake, repo, matcher, Options{
		Model:       "gpt-test",
		ChatModel:   "gpt-chat",
		HoursPerDay: hoursPerDay,
	})
	return &fixture{store: store, repo: repo, llm: fake, svc: svc}
}

// seedHistory stores a complete project with the given team and submodules
// under one module.
func (f *fixture) seedHistory(ctx context.Context, team domain.Team, subs ...domain.Submodule) *domain.Project {
	p := &domain.Project{
		Name:     "Previous",
		Duration: 10,
		Team:     team,
		Modules:  []domain.Module{{Name: "Core", Submodules: subs}},
	}
	if _, err := f.repo.Save(ctx, p); err != nil {
		panic(err)
	}
	return p
}
