package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/storage"
	"github.com/scopewise/estimation-backend/internal/storage/memory"
)

func sampleProject() *domain.Project {
	return &domain.Project{
		Name:        "Shop",
		Description: "online store",
		Budget:      5000,
		Duration:    10,
		Team:        domain.Team{Frontend: 2, Backend: 1, Designers: 1},
		Modules: []domain.Module{
			{Name: "Auth", Submodules: []domain.Submodule{
				{Title: "User Login", Duration: 12, Category: "auth"},
				{Title: "Password Reset", Duration: 6, Category: "auth", Exists: true},
			}},
			{Name: "Catalog", Submodules: []domain.Submodule{
				{Title: "Product Search", Duration: 20},
			}},
		},
	}
}

func TestProjectRepository_SaveAndGet(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	p := sampleProject()
	id, err := repo.Save(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, domain.StatusComplete, p.Status)
	assert.NotEmpty(t, p.Modules[0].ID)
	assert.NotEmpty(t, p.Modules[0].Submodules[1].ID)

	assert.Equal(t, 1, store.Count(ProjectsCollection))
	assert.Equal(t, 2, store.Count(ModulesCollection))
	assert.Equal(t, 3, store.Count(SubmodulesCollection))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Shop", got.Name)
	assert.Equal(t, domain.Team{Developers: 3, Designers: 1}, got.Team)
	assert.Equal(t, 10, got.Duration)
	assert.Equal(t, domain.StatusComplete, got.Status)
	require.Len(t, got.Modules, 2)
	assert.Equal(t, "Auth", got.Modules[0].Name)
	require.Len(t, got.Modules[0].Submodules, 2)

	sub := got.Modules[0].Submodules[0]
	assert.Equal(t, "User Login", sub.Title)
	assert.Equal(t, "userlogin", sub.ProcessedTitle)
	assert.Equal(t, 12.0, sub.Duration)
	assert.Equal(t, 38.0, got.TotalHours())
}

func TestProjectRepository_SaveFailureLeavesNoHistory(t *testing.T) {
	store := memory.New()
	var submoduleInserts int32
	store.FailInsert = func(collection string, rec storage.Record) error {
		if collection == SubmodulesCollection && atomic.AddInt32(&submoduleInserts, 1) == 2 {
			return errors.New("disk full")
		}
		return nil
	}
	repo := NewProjectRepository(store)
	ctx := context.Background()

	_, err := repo.Save(ctx, sampleProject())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, 0, store.Count(ProjectsCollection))
	assert.Equal(t, 0, store.Count(ModulesCollection))
}

func TestProjectRepository_LoadAllSkipsDrafts(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	_, err := repo.Save(ctx, sampleProject())
	require.NoError(t, err)

	// A draft left behind by an interrupted write.
	_, err = store.Insert(ctx, ProjectsCollection, storage.Record{"name": "Half", "status": domain.StatusDraft})
	require.NoError(t, err)

	// A legacy record written by the web client without a status field.
	legacyID, err := store.Insert(ctx, ProjectsCollection, storage.Record{
		"title": "Legacy",
		"team":  map[string]any{"frontend": int64(1), "backend": int64(1), "designers": int64(0)},
	})
	require.NoError(t, err)
	modID, err := store.Insert(ctx, ModulesCollection, storage.Record{"name": "Core", "projectId": legacyID})
	require.NoError(t, err)
	_, err = store.Insert(ctx, SubmodulesCollection, storage.Record{"name": "dashboard", "time": int64(16), "moduleId": modID})
	require.NoError(t, err)

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Shop", all[0].Name)
	assert.Equal(t, "Legacy", all[1].Name)
	assert.Equal(t, 2, all[1].Team.Size())
	require.Len(t, all[1].Modules, 1)
	assert.Equal(t, "dashboard", all[1].Modules[0].Submodules[0].Title)
	assert.Equal(t, 16.0, all[1].Modules[0].Submodules[0].Duration)
}

func TestProjectRepository_Replace(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	p := sampleProject()
	id, err := repo.Save(ctx, p)
	require.NoError(t, err)
	created := p.CreatedAt

	edit := &domain.Project{
		ID:       id,
		Name:     "Shop v2",
		Budget:   8000,
		Duration: 20,
		Team:     domain.Team{Developers: 4},
		Modules: []domain.Module{
			{Name: "Payments", Submodules: []domain.Submodule{{Title: "Checkout", Duration: 30}}},
		},
	}
	require.NoError(t, repo.Replace(ctx, edit))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Shop v2", got.Name)
	assert.Equal(t, 20, got.Duration)
	assert.Equal(t, 4, got.Team.Developers)
	assert.WithinDuration(t, created, got.CreatedAt, time.Millisecond)
	require.Len(t, got.Modules, 1)
	assert.Equal(t, "Payments", got.Modules[0].Name)

	assert.Equal(t, 1, store.Count(ModulesCollection))
	assert.Equal(t, 1, store.Count(SubmodulesCollection))
}

func TestProjectRepository_ReplaceFailureKeepsStoredTree(t *testing.T) {
	tests := []struct {
		name  string
		apply func(store *memory.Store)
	}{
		{"submodule insert fails", func(store *memory.Store) {
			store.FailInsert = func(collection string, rec storage.Record) error {
				if collection == SubmodulesCollection {
					return errors.New("boom")
				}
				return nil
			}
		}},
		{"project update fails", func(store *memory.Store) {
			store.FailUpdate = func(collection, id string, partial storage.Record) error {
				if collection == ProjectsCollection {
					return errors.New("boom")
				}
				return nil
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			repo := NewProjectRepository(store)
			ctx := context.Background()

			id, err := repo.Save(ctx, sampleProject())
			require.NoError(t, err)

			tt.apply(store)
			err = repo.Replace(ctx, &domain.Project{
				ID:   id,
				Name: "Shop v2",
				Modules: []domain.Module{
					{Name: "Payments", Submodules: []domain.Submodule{{Title: "Checkout", Duration: 30}}},
					{Name: "Search", Submodules: []domain.Submodule{{Title: "Product Search", Duration: 10}}},
				},
			})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "boom")
			store.FailInsert, store.FailUpdate = nil, nil

			got, err := repo.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "Shop", got.Name)
			assert.Equal(t, domain.StatusComplete, got.Status)
			require.Len(t, got.Modules, 2)
			assert.Equal(t, 38.0, got.TotalHours())

			all, err := repo.LoadAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 1)
			assert.Equal(t, 38.0, all[0].TotalHours())

			assert.Equal(t, 2, store.Count(ModulesCollection))
			assert.Equal(t, 3, store.Count(SubmodulesCollection))
		})
	}
}

func TestProjectRepository_ReplaceTwice(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	id, err := repo.Save(ctx, sampleProject())
	require.NoError(t, err)

	for _, title := range []string{"Checkout", "Refunds"} {
		err := repo.Replace(ctx, &domain.Project{
			ID:      id,
			Name:    "Shop",
			Modules: []domain.Module{{Name: "Payments", Submodules: []domain.Submodule{{Title: title, Duration: 5}}}},
		})
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.Modules, 1)
	assert.Equal(t, "Refunds", got.Modules[0].Submodules[0].Title)
	assert.Equal(t, 1, store.Count(ModulesCollection))
	assert.Equal(t, 1, store.Count(SubmodulesCollection))
}

func TestProjectRepository_SavePromoteFailureAbandonsDraft(t *testing.T) {
	store := memory.New()
	store.FailUpdate = func(collection, id string, partial storage.Record) error {
		if partial["status"] == domain.StatusComplete {
			return errors.New("promote refused")
		}
		return nil
	}
	repo := NewProjectRepository(store)
	ctx := context.Background()

	_, err := repo.Save(ctx, sampleProject())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "promote refused")

	assert.Equal(t, 0, store.Count(ProjectsCollection))
	assert.Equal(t, 0, store.Count(ModulesCollection))
	assert.Equal(t, 0, store.Count(SubmodulesCollection))
}

func TestProjectRepository_Delete(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	id, err := repo.Save(ctx, sampleProject())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	assert.Equal(t, 0, store.Count(ProjectsCollection))
	assert.Equal(t, 0, store.Count(ModulesCollection))
	assert.Equal(t, 0, store.Count(SubmodulesCollection))

	err = repo.Delete(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectRepository_AppendChat(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	id, err := repo.Save(ctx, sampleProject())
	require.NoError(t, err)

	require.NoError(t, repo.AppendChat(ctx, id, domain.ChatTurn{User: "add payments", Explanation: "added"}))
	require.NoError(t, repo.AppendChat(ctx, id, domain.ChatTurn{User: "shorter", Explanation: "trimmed"}))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.Len(t, got.ChatHistory, 2)
	assert.Equal(t, "add payments", got.ChatHistory[0].User)
	assert.Equal(t, "trimmed", got.ChatHistory[1].Explanation)
	assert.False(t, got.ChatHistory[1].Timestamp.IsZero())
	require.Len(t, got.Modules, 2, "chat does not touch the module tree")

	err = repo.AppendChat(ctx, "missing", domain.ChatTurn{User: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProjectRepository_FindByName(t *testing.T) {
	store := memory.New()
	repo := NewProjectRepository(store)
	ctx := context.Background()

	_, err := repo.Save(ctx, sampleProject())
	require.NoError(t, err)

	matches, err := repo.FindByName(ctx, "userlogin")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Priority)
	assert.Equal(t, 12.0, matches[0].OriginalTime)
	assert.Equal(t, "auth", matches[0].Category)
	assert.NotEmpty(t, matches[0].ModuleID)

	matches, err = repo.FindByNames(ctx, []string{"signin", "productsearch", "passwordreset"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	matches, err = repo.FindByNames(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
