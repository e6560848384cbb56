package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
	"github.com/scopewise/estimation-backend/internal/estimation/repository"
)

func TestMatcher_ExactMatchSkipsModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(8)
	f.seedHistory(ctx, domain.Team{Developers: 2}, domain.Submodule{Title: "User Login", Duration: 40})
	f.llm.synonyms = reply("should not be used")

	matches, err := f.svc.matcher.Match(ctx, "User  Login")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "userlogin", matches[0].Name)
	assert.Equal(t, 1, matches[0].Priority)
	assert.Equal(t, 0, f.llm.count("synonyms"))
}

func TestMatcher_SynonymMatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(8)
	f.seedHistory(ctx, domain.Team{Developers: 2}, domain.Submodule{Title: "Sign In", Duration: 20})
	f.llm.synonyms = reply("Log In, Sign In, Authentication, Sign-on")

	matches, err := f.svc.matcher.Match(ctx, "User Login")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "signin", matches[0].Name)
	assert.Equal(t, 1, matches[0].Priority)
	assert.Equal(t, 1, f.llm.count("synonyms"))
	assert.Contains(t, f.llm.prompts("synonyms")[0], "'User Login'")
}

func TestMatcher_UpstreamFailureDegrades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(8)
	f.llm.synonyms = fail(errors.New("503"))

	_, err := f.svc.matcher.Match(ctx, "Checkout")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	matches, err := f.svc.matcher.MatchOrDegrade(ctx, "Checkout")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatcher_UnparsableSynonymsDegrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(8)
	f.llm.synonyms = reply(" , ,  ")

	_, err := f.svc.matcher.Match(ctx, "Checkout")
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	matches, err := f.svc.matcher.MatchOrDegrade(ctx, "Checkout")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

type brokenFinder struct{}

func (brokenFinder) FindByName(context.Context, string) ([]domain.Match, error) {
	return nil, errors.New("store offline")
}

func (brokenFinder) FindByNames(context.Context, []string) ([]domain.Match, error) {
	return nil, errors.New("store offline")
}

func TestMatcher_StoreFailureIsTerminal(t *testing.T) {
	m := NewMatcher(brokenFinder{}, &fakeLLM{}, nil, "gpt-test", nil)

	_, err := m.MatchOrDegrade(context.Background(), "Checkout")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrUpstream)

	_, err = m.MatchAll(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestMatcher_SynonymCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(8)
	f.seedHistory(ctx, domain.Team{Developers: 2}, domain.Submodule{Title: "Sign In", Duration: 20})
	f.llm.synonyms = reply("Sign In, Log In")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := repository.NewSynonymCache(client, time.Hour)
	m := NewMatcher(f.repo, f.llm, cache, "gpt-test", nil)

	for i := 0; i < 3; i++ {
		matches, err := m.Match(ctx, "User Login")
		require.NoError(t, err)
		require.Len(t, matches, 1)
	}
	assert.Equal(t, 1, f.llm.count("synonyms"))
	assert.True(t, mr.Exists("estimate:synonyms:userlogin"))
}

func TestMatcher_MatchAllKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(8)
	f.seedHistory(ctx, domain.Team{Developers: 2},
		domain.Submodule{Title: "Search", Duration: 10},
		domain.Submodule{Title: "Cart", Duration: 12},
	)
	f.llm.synonyms = reply("nothing, relevant")

	out, err := f.svc.matcher.MatchAll(ctx, []string{"Cart", "Unknown", "Search"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "cart", out[0][0].Name)
	assert.Empty(t, out[1])
	assert.Equal(t, "search", out[2][0].Name)
}

func TestParseSynonyms(t *testing.T) {
	names := parseSynonyms("```\nSign In, sign in, Log In,  , \"Auth\".\n```")
	assert.Equal(t, []string{"signin", "login", "auth"}, names)

	var parts []string
	for i := 0; i < 40; i++ {
		parts = append(parts, "name"+strings.Repeat("x", i))
	}
	assert.Len(t, parseSynonyms(strings.Join(parts, ",")), SynonymCount)
}
