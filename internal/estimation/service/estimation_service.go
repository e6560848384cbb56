package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/llm"
)

// ProjectStore is the persistence the estimation pipeline needs.
type ProjectStore interface {
	Save(ctx context.Context, p *domain.Project) (string, error)
	Replace(ctx context.Context, p *domain.Project) error
	Get(ctx context.Context, id string) (*domain.Project, error)
	LoadAll(ctx context.Context) ([]domain.Project, error)
	Delete(ctx context.Context, id string) error
	AppendChat(ctx context.Context, id string, turn domain.ChatTurn) error
}

type Options struct {
	// Model is used for extraction, synonyms and hour estimates.
	Model string
	// ChatModel is used for chat refinement.
	ChatModel   string
	HoursPerDay float64
	Logger      *slog.Logger
}

// EstimationService runs the estimation pipeline: extract modules from text,
// match titles against history, estimate the rest, reconcile and persist.
type EstimationService struct {
	llm         llm.Completer
	projects    ProjectStore
	matcher     *Matcher
	estimator   *HourEstimator
	model       string
	chatModel   string
	hoursPerDay float64
	logger      *slog.Logger
}

func NewEstimationService(completer llm.Completer, projects ProjectStore, matcher *Matcher, opts Options) *EstimationService {
	if opts.HoursPerDay <= 0 {
		opts.HoursPerDay = DefaultHoursPerDay
	}
	if opts.ChatModel == "" {
		opts.ChatModel = opts.Model
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &EstimationService{
		llm:         completer,
		projects:    projects,
		matcher:     matcher,
		estimator:   NewHourEstimator(completer, opts.Model, opts.Logger),
		model:       opts.Model,
		chatModel:   opts.ChatModel,
		hoursPerDay: opts.HoursPerDay,
		logger:      opts.Logger,
	}
}

// TotalHours converts a duration in days into project hours.
func (s *EstimationService) TotalHours(days int) float64 {
	return float64(days) * s.hoursPerDay
}

type GenerateModulesInput struct {
	Input    string
	Team     domain.Team
	Duration int
}

type GenerateModulesResult struct {
	ProjectName string                `json:"-"`
	Modules     []domain.ModuleTitles `json:"modules"`
	Matched     []domain.Suggestion   `json:"matched"`

	history *HistoryIndex
}

// GenerateModules extracts modules from free text and matches every
// submodule title against stored history.
func (s *EstimationService) GenerateModules(ctx context.Context, in GenerateModulesInput) (*GenerateModulesResult, error) {
	if strings.TrimSpace(in.Input) == "" {
		return nil, domain.Invalid("input", "is required")
	}
	log := NewLogger(ctx, s.logger)

	var (
		ext      *extraction
		projects []domain.Project
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ext, err = s.extract(gctx, in.Input)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.projects.LoadAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.LogError("generate modules", err)
		return nil, err
	}

	history := BuildHistory(projects, in.Team.Size())

	var titles []string
	for _, m := range ext.Modules {
		for _, sub := range m.Submodules {
			titles = append(titles, sub.Title)
		}
	}
	matches, err := s.matcher.MatchAll(ctx, titles)
	if err != nil {
		log.LogError("generate modules", err)
		return nil, err
	}

	res := &GenerateModulesResult{ProjectName: ext.ProjectName, history: history}
	k := 0
	for _, m := range ext.Modules {
		mt := domain.ModuleTitles{Name: m.Name, Titles: make([]domain.TitleMatches, 0, len(m.Submodules))}
		for _, sub := range m.Submodules {
			resolved := history.Resolve(matches[k])
			k++
			mt.Titles = append(mt.Titles, domain.TitleMatches{
				OriginalTitle:  sub.Title,
				ProcessedTitle: domain.NormalizeTitle(sub.Title),
				Description:    sub.Description,
				Category:       sub.Category,
				Exists:         len(resolved) > 0,
				Matches:        resolved,
			})
			if len(resolved) > 0 {
				res.Matched = append(res.Matched, domain.Suggestion{
					ModuleName: m.Name,
					Title:      sub.Title,
					Duration:   resolved[0].Duration,
					Exists:     true,
				})
			}
		}
		res.Modules = append(res.Modules, mt)
	}

	log.LogInfo("generate modules", "modules generated",
		"modules", len(res.Modules), "titles", len(titles), "matched", len(res.Matched))
	return res, nil
}

type EstimateHoursInput struct {
	Data     []domain.ModuleTitles
	Duration int
}

// EstimateHours keeps matched titles at their first match's duration and
// spends the hours left over from duration days on the unmatched ones.
func (s *EstimationService) EstimateHours(ctx context.Context, in EstimateHoursInput) ([]domain.Suggestion, error) {
	if len(in.Data) == 0 {
		return nil, domain.Invalid("data", "missing data array")
	}
	if in.Duration <= 0 {
		return nil, domain.Invalid("duration", "must be greater than zero")
	}

	budget := s.TotalHours(in.Duration)
	var (
		existing []domain.Suggestion
		tasks    []Task
	)
	for _, m := range in.Data {
		for _, t := range m.Titles {
			if len(t.Matches) == 0 {
				tasks = append(tasks, Task{ModuleName: m.Name, Title: t.OriginalTitle})
				continue
			}
			d := t.Matches[0].Duration
			budget -= d
			existing = append(existing, domain.Suggestion{ModuleName: m.Name, Title: t.OriginalTitle, Duration: d, Exists: true})
		}
	}

	estimated, err := s.estimator.Estimate(ctx, tasks, budget)
	if err != nil {
		NewLogger(ctx, s.logger).LogError("estimate hours", err)
		return nil, err
	}
	return append(existing, estimated...), nil
}

// EstimateRequest asks for a full project estimate from a prompt, or from a
// correction applied to the current fields of an estimate.
type EstimateRequest struct {
	Prompt        string
	Correction    string
	CurrentFields map[string]any
	ProjectID     string
	Name          string
	Team          domain.Team
	Duration      int
	Budget        float64
}

type EstimateResult struct {
	ID          string
	Project     *domain.Project
	Explanation string
}

// ProduceEstimate runs the whole pipeline and persists the result. With a
// ProjectID the stored project is replaced, otherwise a new one is saved.
// Nothing is written when any step fails.
func (s *EstimationService) ProduceEstimate(ctx context.Context, req EstimateRequest) (*EstimateResult, error) {
	if strings.TrimSpace(req.Prompt) == "" && strings.TrimSpace(req.Correction) == "" {
		return nil, domain.Invalid("prompt", "prompt or correction is required")
	}
	log := NewLogger(ctx, s.logger)

	var explanation string
	if strings.TrimSpace(req.Correction) != "" {
		corrected, expl, err := s.correct(ctx, req)
		if err != nil {
			log.LogError("produce estimate", err)
			return nil, err
		}
		req, explanation = corrected, expl
	}
	if req.Duration <= 0 {
		return nil, domain.Invalid("duration", "must be greater than zero")
	}

	gen, err := s.GenerateModules(ctx, GenerateModulesInput{Input: req.Prompt, Team: req.Team, Duration: req.Duration})
	if err != nil {
		return nil, err
	}

	totalHours := s.TotalHours(req.Duration)
	modules, err := s.assemble(ctx, gen, totalHours)
	if err != nil {
		log.LogError("produce estimate", err)
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = gen.ProjectName
	}
	if name == "" {
		name = truncate(req.Prompt, 60)
	}

	project := &domain.Project{
		ID:          req.ProjectID,
		Name:        name,
		Description: req.Prompt,
		Budget:      req.Budget,
		Duration:    req.Duration,
		Team:        req.Team.Canonical(),
		Modules:     Reconcile(modules, totalHours, gen.history),
	}

	if req.ProjectID != "" {
		if err := s.projects.Replace(ctx, project); err != nil {
			log.LogError("produce estimate", err)
			return nil, err
		}
		if req.Correction != "" {
			turn := domain.ChatTurn{User: req.Correction, Explanation: explanation}
			if err := s.projects.AppendChat(ctx, req.ProjectID, turn); err != nil {
				log.LogWarn("produce estimate", "failed to record correction", "error", err)
			}
		}
	} else {
		if _, err := s.projects.Save(ctx, project); err != nil {
			log.LogError("produce estimate", err)
			return nil, err
		}
	}

	log.LogInfo("produce estimate", "estimate stored",
		"project_id", project.ID, "total_hours", totalHours, "estimated_hours", project.TotalHours())
	return &EstimateResult{ID: project.ID, Project: project, Explanation: explanation}, nil
}

// assemble turns matched titles into submodules and estimates the rest with
// the hours left over.
func (s *EstimationService) assemble(ctx context.Context, gen *GenerateModulesResult, totalHours float64) ([]domain.Module, error) {
	modules := make([]domain.Module, len(gen.Modules))
	type slot struct{ module, sub int }
	var (
		slots  []slot
		tasks  []Task
		budget = totalHours
	)
	for i, m := range gen.Modules {
		modules[i] = domain.Module{Name: m.Name, Submodules: make([]domain.Submodule, len(m.Titles))}
		for j, t := range m.Titles {
			sub := domain.Submodule{
				Title:          t.OriginalTitle,
				ProcessedTitle: t.ProcessedTitle,
				Description:    t.Description,
				Category:       t.Category,
			}
			if len(t.Matches) > 0 {
				sub.Duration = t.Matches[0].Duration
				sub.Exists = true
				if sub.Category == "" {
					sub.Category = t.Matches[0].Category
				}
				budget -= sub.Duration
			} else {
				slots = append(slots, slot{i, j})
				tasks = append(tasks, Task{ModuleName: m.Name, Title: t.OriginalTitle})
			}
			modules[i].Submodules[j] = sub
		}
	}

	estimated, err := s.estimator.Estimate(ctx, tasks, budget)
	if err != nil {
		return nil, err
	}
	for k, e := range estimated {
		modules[slots[k].module].Submodules[slots[k].sub].Duration = e.Duration
	}
	return modules, nil
}

type correctionResponse struct {
	Suggestions map[string]any `json:"suggestions"`
	Explanation string         `json:"explanation"`
}

// correct asks the model how the current fields should change and applies
// the suggested values to req.
func (s *EstimationService) correct(ctx context.Context, req EstimateRequest) (EstimateRequest, string, error) {
	fields := req.CurrentFields
	if len(fields) == 0 {
		fields = map[string]any{
			"name":        req.Name,
			"description": req.Prompt,
			"duration":    req.Duration,
			"budget":      req.Budget,
		}
		if req.ProjectID != "" {
			p, err := s.projects.Get(ctx, req.ProjectID)
			if err != nil {
				return req, "", err
			}
			fields = map[string]any{
				"name":        p.Name,
				"description": p.Description,
				"duration":    p.Duration,
				"budget":      p.Budget,
			}
		}
	}
	applyFields(&req, fields)

	const op = "correct estimate"
	raw, err := s.llm.Complete(ctx, llm.Request{
		System:   correctionSystemPrompt,
		Prompt:   correctionPrompt(fields, req.Correction),
		JSONMode: true,
		Model:    s.model,
	})
	if err != nil {
		return req, "", domain.Upstream(op, err)
	}

	var resp correctionResponse
	if err := llm.DecodeJSON(raw, &resp); err != nil {
		return req, "", domain.Malformed(op, raw, err)
	}
	if resp.Suggestions == nil {
		return req, "", domain.Malformed(op, raw, errors.New("missing suggestions"))
	}
	applyFields(&req, resp.Suggestions)

	if strings.TrimSpace(req.Prompt) == "" {
		return req, "", domain.Invalid("currentFields.description", "nothing to estimate")
	}
	return req, resp.Explanation, nil
}

func applyFields(req *EstimateRequest, fields map[string]any) {
	if v, ok := fields["name"].(string); ok && v != "" {
		req.Name = v
	}
	if v, ok := fields["description"].(string); ok && v != "" {
		req.Prompt = v
	}
	if v, ok := number(fields["duration"]); ok && v > 0 {
		req.Duration = int(math.Round(v))
	}
	if v, ok := number(fields["budget"]); ok && v >= 0 {
		req.Budget = v
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}
