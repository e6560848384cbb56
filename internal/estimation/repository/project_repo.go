package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/storage"
)

// Collection names shared with the web client.
const (
	ProjectsCollection   = "projects"
	ModulesCollection    = "modules"
	SubmodulesCollection = "submodules"

	loadConcurrency = 8
)

// ProjectRepository stores a project as linked project, module and submodule
// records. A project is written as a draft and promoted to complete once all
// of its children are stored; drafts are never read back as history.
type ProjectRepository struct {
	store storage.Store
	now   func() time.Time
}

func NewProjectRepository(store storage.Store) *ProjectRepository {
	return &ProjectRepository{store: store, now: time.Now}
}

// Save writes p and its module tree. IDs are filled in on p.
func (r *ProjectRepository) Save(ctx context.Context, p *domain.Project) (string, error) {
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Status = domain.StatusDraft

	id, err := r.store.Insert(ctx, ProjectsCollection, projectRecord(p))
	if err != nil {
		return "", fmt.Errorf("failed to insert project: %w", err)
	}
	p.ID = id

	if err := r.writeModules(ctx, id, "", p.Modules); err != nil {
		return "", r.abandon(ctx, id, err)
	}

	if err := r.store.Update(ctx, ProjectsCollection, id, storage.Record{"status": domain.StatusComplete}); err != nil {
		return "", r.abandon(ctx, id, fmt.Errorf("failed to promote project %s: %w", id, err))
	}
	p.Status = domain.StatusComplete
	return id, nil
}

// Replace overwrites the project's fields and swaps its module tree. The
// new tree is written under a fresh revision and becomes visible only when
// the project record is switched to it, so a failed write leaves the stored
// project as it was.
func (r *ProjectRepository) Replace(ctx context.Context, p *domain.Project) error {
	existing, err := r.store.Get(ctx, ProjectsCollection, p.ID)
	if err != nil {
		return r.mapErr(err, p.ID)
	}
	stale, err := r.store.QueryByField(ctx, ModulesCollection, "projectId", p.ID)
	if err != nil {
		return fmt.Errorf("failed to query modules: %w", err)
	}

	p.CreatedAt = asTime(existing.Data, "createdAt")
	p.UpdatedAt = r.now()
	p.ChatHistory = decodeChat(existing.Data["chatHistory"])
	p.Status = domain.StatusComplete
	for i := range p.Modules {
		p.Modules[i].ID = ""
	}

	rev := uuid.NewString()
	if err := r.writeModules(ctx, p.ID, rev, p.Modules); err != nil {
		return r.discard(ctx, p.Modules, err)
	}

	fields := projectRecord(p)
	fields["revision"] = rev
	if err := r.store.Update(ctx, ProjectsCollection, p.ID, fields); err != nil {
		return r.discard(ctx, p.Modules, r.mapErr(err, p.ID))
	}

	// The old tree no longer matches the project's revision and is never
	// read back; removing it only reclaims space.
	ids := make([]string, 0, len(stale))
	for _, m := range stale {
		if asString(m.Data, "revision") != rev {
			ids = append(ids, m.ID)
		}
	}
	if err := r.deleteModules(ctx, ids); err != nil {
		return fmt.Errorf("project %s replaced, old modules left behind: %w", p.ID, err)
	}
	return nil
}

// Delete removes the project together with its modules and submodules.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Update(ctx, ProjectsCollection, id, storage.Record{"status": domain.StatusDraft}); err != nil {
		return r.mapErr(err, id)
	}
	if err := r.deleteChildren(ctx, id); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, ProjectsCollection, id); err != nil {
		return r.mapErr(err, id)
	}
	return nil
}

// Get returns one project with its module tree, drafts included.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	doc, err := r.store.Get(ctx, ProjectsCollection, id)
	if err != nil {
		return nil, r.mapErr(err, id)
	}
	p := decodeProject(*doc)
	if p.Modules, err = r.loadModules(ctx, id, asString(doc.Data, "revision")); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadAll returns every non-draft project with its module tree, in store order.
// Trees are loaded in parallel.
func (r *ProjectRepository) LoadAll(ctx context.Context) ([]domain.Project, error) {
	docs, err := r.store.GetAll(ctx, ProjectsCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	projects := make([]domain.Project, 0, len(docs))
	revisions := make([]string, 0, len(docs))
	for _, d := range docs {
		if asString(d.Data, "status") == domain.StatusDraft {
			continue
		}
		projects = append(projects, decodeProject(d))
		revisions = append(revisions, asString(d.Data, "revision"))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)
	for i := range projects {
		g.Go(func() error {
			modules, err := r.loadModules(gctx, projects[i].ID, revisions[i])
			if err != nil {
				return err
			}
			projects[i].Modules = modules
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return projects, nil
}

// AppendChat adds one turn to the project's chat history.
func (r *ProjectRepository) AppendChat(ctx context.Context, id string, turn domain.ChatTurn) error {
	doc, err := r.store.Get(ctx, ProjectsCollection, id)
	if err != nil {
		return r.mapErr(err, id)
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = r.now()
	}
	history := append(decodeChat(doc.Data["chatHistory"]), turn)

	err = r.store.Update(ctx, ProjectsCollection, id, storage.Record{
		"chatHistory": encodeChat(history),
		"updatedAt":   r.now(),
	})
	if err != nil {
		return r.mapErr(err, id)
	}
	return nil
}

// FindByName returns submodules whose normalized name equals name.
func (r *ProjectRepository) FindByName(ctx context.Context, name string) ([]domain.Match, error) {
	docs, err := r.store.QueryByField(ctx, SubmodulesCollection, "name", name)
	if err != nil {
		return nil, fmt.Errorf("failed to query submodules: %w", err)
	}
	return decodeMatches(docs), nil
}

// FindByNames returns submodules whose normalized name is one of names.
func (r *ProjectRepository) FindByNames(ctx context.Context, names []string) ([]domain.Match, error) {
	if len(names) == 0 {
		return nil, nil
	}
	docs, err := r.store.QueryByFieldIn(ctx, SubmodulesCollection, "name", names)
	if err != nil {
		return nil, fmt.Errorf("failed to query submodules: %w", err)
	}
	return decodeMatches(docs), nil
}

// Ping checks that the underlying store is reachable.
func (r *ProjectRepository) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}

func (r *ProjectRepository) writeModules(ctx context.Context, projectID, rev string, modules []domain.Module) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range modules {
		g.Go(func() error {
			return r.writeModule(gctx, projectID, rev, i, &modules[i])
		})
	}
	return g.Wait()
}

func (r *ProjectRepository) writeModule(ctx context.Context, projectID, rev string, position int, m *domain.Module) error {
	now := r.now()
	rec := storage.Record{
		"name":      m.Name,
		"projectId": projectID,
		"position":  position,
		"createdAt": now,
		"updatedAt": now,
	}
	if rev != "" {
		rec["revision"] = rev
	}
	moduleID, err := r.store.Insert(ctx, ModulesCollection, rec)
	if err != nil {
		return fmt.Errorf("failed to insert module %q: %w", m.Name, err)
	}
	m.ID = moduleID

	g, gctx := errgroup.WithContext(ctx)
	for i := range m.Submodules {
		s := &m.Submodules[i]
		g.Go(func() error {
			if s.ProcessedTitle == "" {
				s.ProcessedTitle = domain.NormalizeTitle(s.Title)
			}
			id, err := r.store.Insert(gctx, SubmodulesCollection, storage.Record{
				"name":        s.ProcessedTitle,
				"title":       s.Title,
				"description": s.Description,
				"category":    s.Category,
				"time":        s.Duration,
				"exists":      s.Exists,
				"moduleId":    moduleID,
				"position":    i,
				"createdAt":   now,
				"updatedAt":   now,
			})
			if err != nil {
				return fmt.Errorf("failed to insert submodule %q: %w", s.Title, err)
			}
			s.ID = id
			return nil
		})
	}
	return g.Wait()
}

// abandon removes a draft whose tree could not be written. If cleanup fails
// too the draft stays behind and is skipped by LoadAll.
func (r *ProjectRepository) abandon(ctx context.Context, id string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	if err := r.deleteChildren(ctx, id); err != nil {
		return errors.Join(cause, err)
	}
	if err := r.store.Delete(ctx, ProjectsCollection, id); err != nil {
		return errors.Join(cause, fmt.Errorf("failed to delete draft %s: %w", id, err))
	}
	return cause
}

// discard removes the modules written by a failed Replace.
func (r *ProjectRepository) discard(ctx context.Context, modules []domain.Module, cause error) error {
	ids := make([]string, 0, len(modules))
	for _, m := range modules {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	if err := r.deleteModules(context.WithoutCancel(ctx), ids); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

func (r *ProjectRepository) deleteChildren(ctx context.Context, projectID string) error {
	modules, err := r.store.QueryByField(ctx, ModulesCollection, "projectId", projectID)
	if err != nil {
		return fmt.Errorf("failed to query modules: %w", err)
	}
	ids := make([]string, 0, len(modules))
	for _, m := range modules {
		ids = append(ids, m.ID)
	}
	return r.deleteModules(ctx, ids)
}

// deleteModules removes the given modules and their submodules.
func (r *ProjectRepository) deleteModules(ctx context.Context, moduleIDs []string) error {
	for _, id := range moduleIDs {
		subs, err := r.store.QueryByField(ctx, SubmodulesCollection, "moduleId", id)
		if err != nil {
			return fmt.Errorf("failed to query submodules: %w", err)
		}
		for _, s := range subs {
			if err := r.store.Delete(ctx, SubmodulesCollection, s.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to delete submodule %s: %w", s.ID, err)
			}
		}
		if err := r.store.Delete(ctx, ModulesCollection, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete module %s: %w", id, err)
		}
	}
	return nil
}

// loadModules returns the project's modules of the given revision. Projects
// that were never replaced have an empty revision, as do their modules.
func (r *ProjectRepository) loadModules(ctx context.Context, projectID, rev string) ([]domain.Module, error) {
	all, err := r.store.QueryByField(ctx, ModulesCollection, "projectId", projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}

	docs := all[:0]
	for _, d := range all {
		if asString(d.Data, "revision") == rev {
			docs = append(docs, d)
		}
	}
	sortByPosition(docs)
	modules := make([]domain.Module, 0, len(docs))
	for _, d := range docs {
		subs, err := r.store.QueryByField(ctx, SubmodulesCollection, "moduleId", d.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to query submodules: %w", err)
		}
		sortByPosition(subs)
		m := domain.Module{ID: d.ID, Name: asString(d.Data, "name"), Submodules: make([]domain.Submodule, 0, len(subs))}
		for _, s := range subs {
			m.Submodules = append(m.Submodules, decodeSubmodule(s))
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// sortByPosition restores write order for children inserted concurrently.
// Records without a position keep their store order.
func sortByPosition(docs []storage.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return asInt(docs[i].Data, "position") < asInt(docs[j].Data, "position")
	})
}

func (r *ProjectRepository) mapErr(err error, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("project %s: %w", id, err)
}

func projectRecord(p *domain.Project) storage.Record {
	team := p.Team.Canonical()
	rec := storage.Record{
		"name":        p.Name,
		"description": p.Description,
		"budget":      p.Budget,
		"duration":    p.Duration,
		"team": map[string]any{
			"developers": team.Developers,
			"designers":  team.Designers,
		},
		"status":    p.Status,
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
	if len(p.ChatHistory) > 0 {
		rec["chatHistory"] = encodeChat(p.ChatHistory)
	}
	return rec
}

func decodeProject(d storage.Document) domain.Project {
	// Projects saved by the web client carry "title" and a frontend/backend team.
	name := asString(d.Data, "name")
	if name == "" {
		name = asString(d.Data, "title")
	}
	team := asRecord(d.Data["team"])
	return domain.Project{
		ID:          d.ID,
		Name:        name,
		Description: asString(d.Data, "description"),
		Budget:      asFloat(d.Data, "budget"),
		Duration:    asInt(d.Data, "duration"),
		Team: domain.Team{
			Developers: asInt(team, "developers"),
			Designers:  asInt(team, "designers"),
			Frontend:   asInt(team, "frontend"),
			Backend:    asInt(team, "backend"),
		}.Canonical(),
		Status:      asString(d.Data, "status"),
		ChatHistory: decodeChat(d.Data["chatHistory"]),
		CreatedAt:   asTime(d.Data, "createdAt"),
		UpdatedAt:   asTime(d.Data, "updatedAt"),
	}
}

func decodeSubmodule(d storage.Document) domain.Submodule {
	title := asString(d.Data, "title")
	if title == "" {
		title = asString(d.Data, "name")
	}
	return domain.Submodule{
		ID:             d.ID,
		Title:          title,
		ProcessedTitle: asString(d.Data, "name"),
		Description:    asString(d.Data, "description"),
		Category:       asString(d.Data, "category"),
		Duration:       asFloat(d.Data, "time"),
		Exists:         asBool(d.Data, "exists"),
	}
}

func decodeMatches(docs []storage.Document) []domain.Match {
	out := make([]domain.Match, 0, len(docs))
	for _, d := range docs {
		t := asFloat(d.Data, "time")
		out = append(out, domain.Match{
			ID:           d.ID,
			Name:         asString(d.Data, "name"),
			Title:        asString(d.Data, "title"),
			Category:     asString(d.Data, "category"),
			ModuleID:     asString(d.Data, "moduleId"),
			Priority:     1,
			OriginalTime: t,
			Duration:     t,
		})
	}
	return out
}

func encodeChat(turns []domain.ChatTurn) []any {
	out := make([]any, 0, len(turns))
	for _, t := range turns {
		out = append(out, map[string]any{
			"user":        t.User,
			"explanation": t.Explanation,
			"timestamp":   t.Timestamp,
		})
	}
	return out
}

func decodeChat(v any) []domain.ChatTurn {
	items := asList(v)
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.ChatTurn, 0, len(items))
	for _, it := range items {
		out = append(out, domain.ChatTurn{
			User:        asString(it, "user"),
			Explanation: asString(it, "explanation"),
			Timestamp:   asTime(it, "timestamp"),
		})
	}
	return out
}
