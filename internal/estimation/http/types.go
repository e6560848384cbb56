package http

import (
	"context"
	"io"
	"log/slog"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/estimation/service"
)

// TextExtractor turns an uploaded PDF into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Handler bundles the dependencies for estimation HTTP endpoints.
type Handler struct {
	svc     *service.EstimationService
	pdf     TextExtractor
	devMode bool
	logger  *slog.Logger
}

// New builds a Handler. devMode adds error details to 500 responses.
func New(svc *service.EstimationService, pdf TextExtractor, devMode bool, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, pdf: pdf, devMode: devMode, logger: logger}
}

type generateModulesReq struct {
	Input      string `json:"input" binding:"required"`
	Developers int    `json:"developers" binding:"gte=0"`
	Designers  int    `json:"designers" binding:"gte=0"`
	Frontend   int    `json:"frontend" binding:"gte=0"`
	Backend    int    `json:"backend" binding:"gte=0"`
	Duration   int    `json:"duration" binding:"gte=0"`
}

func (r generateModulesReq) team() domain.Team {
	return domain.Team{
		Developers: r.Developers,
		Designers:  r.Designers,
		Frontend:   r.Frontend,
		Backend:    r.Backend,
	}.Canonical()
}

type estimateHoursReq struct {
	Data     []domain.ModuleTitles `json:"data" binding:"required"`
	Duration int                   `json:"duration" binding:"required,gt=0"`
}

type estimateReq struct {
	Prompt        string         `json:"prompt"`
	Correction    string         `json:"correction"`
	CurrentFields map[string]any `json:"currentFields"`
	ProjectID     string         `json:"projectId"`
	Name          string         `json:"name"`
	Team          domain.Team    `json:"team"`
	Duration      int            `json:"duration" binding:"gte=0"`
	Budget        float64        `json:"budget" binding:"gte=0"`
}

type chatReq struct {
	Suggestions    []domain.Suggestion    `json:"suggestions"`
	ProjectContext service.ProjectContext `json:"projectContext"`
	ProjectID      string                 `json:"projectId"`
}

type planReq struct {
	Prompt string `json:"prompt" binding:"required"`
}

type matchReq struct {
	Name string `json:"name"`
}

// projectReq accepts either a module tree or the flat generatedData list
// the web client keeps in its forms.
type projectReq struct {
	Name          string              `json:"name" binding:"required"`
	Description   string              `json:"description"`
	Budget        float64             `json:"budget" binding:"gte=0"`
	Duration      int                 `json:"duration" binding:"gte=0"`
	Team          domain.Team         `json:"team"`
	Modules       []domain.Module     `json:"modules"`
	GeneratedData []domain.Suggestion `json:"generatedData"`
}

func (r projectReq) toProject(id string) *domain.Project {
	modules := r.Modules
	if len(modules) == 0 && len(r.GeneratedData) > 0 {
		modules = domain.GroupSuggestions(r.GeneratedData)
	}
	for i := range modules {
		for j := range modules[i].Submodules {
			s := &modules[i].Submodules[j]
			s.ID = ""
			s.ProcessedTitle = domain.NormalizeTitle(s.Title)
		}
		modules[i].ID = ""
	}
	return &domain.Project{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Budget:      r.Budget,
		Duration:    r.Duration,
		Team:        r.Team.Canonical(),
		Modules:     modules,
	}
}
