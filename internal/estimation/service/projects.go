package service

import (
	"context"
	"strings"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

func validateProject(p *domain.Project) error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.Invalid("name", "is required")
	}
	if p.Duration < 0 {
		return domain.Invalid("duration", "must not be negative")
	}
	if p.Budget < 0 {
		return domain.Invalid("budget", "must not be negative")
	}
	for _, m := range p.Modules {
		for _, sub := range m.Submodules {
			if sub.Duration < 0 {
				return domain.Invalid("modules", "submodule duration must not be negative")
			}
		}
	}
	return nil
}

// CreateProject stores a project built by the client.
func (s *EstimationService) CreateProject(ctx context.Context, p *domain.Project) (string, error) {
	if err := validateProject(p); err != nil {
		return "", err
	}
	p.Team = p.Team.Canonical()
	return s.projects.Save(ctx, p)
}

func (s *EstimationService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.Get(ctx, id)
}

func (s *EstimationService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return s.projects.LoadAll(ctx)
}

// UpdateProject overwrites the project's fields and replaces its module list.
func (s *EstimationService) UpdateProject(ctx context.Context, p *domain.Project) error {
	if err := validateProject(p); err != nil {
		return err
	}
	p.Team = p.Team.Canonical()
	return s.projects.Replace(ctx, p)
}

func (s *EstimationService) DeleteProject(ctx context.Context, id string) error {
	return s.projects.Delete(ctx, id)
}

// LookupMatches is the standalone form of the historical match for one name.
func (s *EstimationService) LookupMatches(ctx context.Context, name string) ([]domain.Match, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.Invalid("name", "Name is required")
	}
	return s.matcher.MatchOrDegrade(ctx, name)
}
