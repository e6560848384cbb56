package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/llm"
)

// SubmoduleFinder queries stored submodules by normalized name.
type SubmoduleFinder interface {
	FindByName(ctx context.Context, name string) ([]domain.Match, error)
	FindByNames(ctx context.Context, names []string) ([]domain.Match, error)
}

// SynonymStore caches synonym lists per normalized title.
type SynonymStore interface {
	Get(ctx context.Context, title string) ([]string, bool, error)
	Set(ctx context.Context, title string, names []string) error
}

// Matcher looks up historical submodules for a title: an exact name query
// first, then a membership query over model-generated synonyms.
type Matcher struct {
	finder SubmoduleFinder
	llm    llm.Completer
	cache  SynonymStore
	model  string
	logger *slog.Logger
}

// NewMatcher builds a Matcher. cache may be nil.
func NewMatcher(finder SubmoduleFinder, completer llm.Completer, cache SynonymStore, model string, logger *slog.Logger) *Matcher {
	return &Matcher{finder: finder, llm: completer, cache: cache, model: model, logger: logger}
}

// Match returns stored submodules matching title, all tagged priority 1.
// Store failures are returned as-is; a failed or unusable synonym call
// returns an error matching domain.ErrUpstream.
func (m *Matcher) Match(ctx context.Context, title string) ([]domain.Match, error) {
	key := domain.NormalizeTitle(title)
	if key == "" {
		return nil, nil
	}

	exact, err := m.finder.FindByName(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}

	names, err := m.synonyms(ctx, title, key)
	if err != nil {
		return nil, err
	}
	return m.finder.FindByNames(ctx, names)
}

// MatchOrDegrade applies the fallback policy: an upstream failure leaves the
// title unmatched instead of failing the caller.
func (m *Matcher) MatchOrDegrade(ctx context.Context, title string) ([]domain.Match, error) {
	matches, err := m.Match(ctx, title)
	if errors.Is(err, domain.ErrUpstream) {
		NewLogger(ctx, m.logger).LogWarn("match", "treating title as unmatched", "title", title, "error", err)
		return nil, nil
	}
	return matches, err
}

// MatchAll matches every title concurrently. Results keep the input order.
func (m *Matcher) MatchAll(ctx context.Context, titles []string) ([][]domain.Match, error) {
	out := make([][]domain.Match, len(titles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(matchConcurrency)
	for i, title := range titles {
		g.Go(func() error {
			matches, err := m.MatchOrDegrade(gctx, title)
			if err != nil {
				return err
			}
			out[i] = matches
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Matcher) synonyms(ctx context.Context, title, key string) ([]string, error) {
	log := NewLogger(ctx, m.logger)

	if m.cache != nil {
		names, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			log.LogWarn("synonyms", "synonym cache read failed", "error", err)
		} else if ok {
			return names, nil
		}
	}

	const op = "generate synonyms"
	raw, err := m.llm.Complete(ctx, llm.Request{
		System: synonymSystemPrompt,
		Prompt: synonymPrompt(title),
		Model:  m.model,
	})
	if err != nil {
		return nil, domain.Upstream(op, err)
	}

	names := parseSynonyms(raw)
	if len(names) == 0 {
		return nil, domain.Upstream(op, domain.Malformed(op, raw, errors.New("no synonyms in response")))
	}

	if m.cache != nil {
		if err := m.cache.Set(ctx, key, names); err != nil {
			log.LogWarn("synonyms", "synonym cache write failed", "error", err)
		}
	}
	return names, nil
}

// parseSynonyms splits a comma-separated list, normalizes each entry and
// drops blanks and duplicates. At most SynonymCount names are kept.
func parseSynonyms(raw string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, part := range strings.Split(llm.StripFences(raw), ",") {
		name := domain.NormalizeTitle(strings.Trim(part, " \t\r\n.\"'"))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
		if len(names) == SynonymCount {
			break
		}
	}
	return names
}
