package service

import (
	"strings"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

// HistoryIndex is the read-only view of stored projects used by one
// estimation run. It is rebuilt for every run and never persisted.
type HistoryIndex struct {
	refs        []domain.HistoricalReference
	bySubmodule map[string]int
	byCategory  map[string][]float64
}

// BuildHistory derives historical references from projects, adjusting every
// duration to teamSize. A project or request without a team keeps the
// original duration since there is nothing to scale by.
func BuildHistory(projects []domain.Project, teamSize int) *HistoryIndex {
	h := &HistoryIndex{
		bySubmodule: make(map[string]int),
		byCategory:  make(map[string][]float64),
	}
	for _, p := range projects {
		size := p.Team.Size()
		for _, m := range p.Modules {
			for _, s := range m.Submodules {
				adjusted := s.Duration
				if size > 0 && teamSize > 0 {
					adjusted = AdjustedTime(s.Duration, size, teamSize)
				}
				ref := domain.HistoricalReference{
					SubmoduleID:      s.ID,
					ProjectTitle:     p.Name,
					ModuleName:       m.Name,
					SubmoduleName:    s.Title,
					Category:         s.Category,
					OriginalTime:     s.Duration,
					AdjustedTime:     adjusted,
					OriginalTeamSize: size,
				}
				if s.ID != "" {
					h.bySubmodule[s.ID] = len(h.refs)
				}
				if key := categoryKey(s.Category); key != "" {
					h.byCategory[key] = append(h.byCategory[key], adjusted)
				}
				h.refs = append(h.refs, ref)
			}
		}
	}
	return h
}

func (h *HistoryIndex) References() []domain.HistoricalReference {
	return h.refs
}

func (h *HistoryIndex) Lookup(submoduleID string) (domain.HistoricalReference, bool) {
	i, ok := h.bySubmodule[submoduleID]
	if !ok {
		return domain.HistoricalReference{}, false
	}
	return h.refs[i], true
}

// CategoryMean is the unweighted mean adjusted time of a category.
func (h *HistoryIndex) CategoryMean(category string) (float64, bool) {
	times := h.byCategory[categoryKey(category)]
	if len(times) == 0 {
		return 0, false
	}
	var sum float64
	for _, t := range times {
		sum += t
	}
	return sum / float64(len(times)), true
}

// Resolve keeps the matches that belong to a stored, complete project and
// sets their Duration to the team-adjusted time.
func (h *HistoryIndex) Resolve(matches []domain.Match) []domain.Match {
	out := make([]domain.Match, 0, len(matches))
	for _, m := range matches {
		ref, ok := h.Lookup(m.ID)
		if !ok {
			continue
		}
		m.Duration = ref.AdjustedTime
		if m.Category == "" {
			m.Category = ref.Category
		}
		out = append(out, m)
	}
	return out
}

func categoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
