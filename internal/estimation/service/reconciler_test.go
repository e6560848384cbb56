package service

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

func modulesOf(hours ...float64) []domain.Module {
	m := domain.Module{Name: "M"}
	for _, h := range hours {
		m.Submodules = append(m.Submodules, domain.Submodule{Title: "t", Duration: h})
	}
	return []domain.Module{m}
}

func durations(modules []domain.Module) []float64 {
	var out []float64
	for _, m := range modules {
		for _, s := range m.Submodules {
			out = append(out, s.Duration)
		}
	}
	return out
}

func TestReconcile_CategoryBand(t *testing.T) {
	history := BuildHistory([]domain.Project{{
		Team: domain.Team{Developers: 2},
		Modules: []domain.Module{{Name: "Auth", Submodules: []domain.Submodule{
			{ID: "a", Category: "auth", Duration: 10},
			{ID: "b", Category: "Auth ", Duration: 30},
		}}},
	}}, 2)

	in := []domain.Module{{Name: "Auth", Submodules: []domain.Submodule{
		{Title: "too long", Category: "auth", Duration: 50},
		{Title: "too short", Category: "AUTH", Duration: 2},
		{Title: "fine", Category: "auth", Duration: 25},
		{Title: "no history", Category: "ui", Duration: 3},
	}}}

	out := Reconcile(in, 0, history)
	assert.Equal(t, []float64{30, 10, 25, 3}, durations(out))
}

func TestReconcile_Ceiling(t *testing.T) {
	out := Reconcile(modulesOf(50, 25, 25, 15), 100, nil)
	assert.Equal(t, []float64{30, 25, 25, 15}, durations(out))
}

func TestReconcile_RescaleWhenOffByMoreThanTenPercent(t *testing.T) {
	out := Reconcile(modulesOf(5, 5, 5, 5, 5), 100, nil)
	assert.Equal(t, []float64{20, 20, 20, 20, 20}, durations(out))
}

func TestReconcile_NoRescaleWithinTolerance(t *testing.T) {
	out := Reconcile(modulesOf(25, 25, 25, 20), 100, nil)
	assert.Equal(t, []float64{25, 25, 25, 20}, durations(out))
}

func TestReconcile_CeilingAfterRescale(t *testing.T) {
	// 10/20/10 scales to 25/50/25; the middle task must be capped again.
	out := Reconcile(modulesOf(10, 20, 10, 0), 100, nil)
	for _, d := range durations(out) {
		assert.LessOrEqual(t, d, 30.0)
	}
	assert.Equal(t, []float64{25, 30, 25, 0}, durations(out))
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	in := modulesOf(90, 10)
	_ = Reconcile(in, 100, nil)
	assert.Equal(t, []float64{90, 10}, durations(in))
}

func TestReconcile_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := 4 + rng.Intn(10)
		hours := make([]float64, n)
		for i := range hours {
			hours[i] = float64(1 + rng.Intn(60))
		}
		target := float64(40 + rng.Intn(400))

		out := durations(Reconcile(modulesOf(hours...), target, nil))
		require.Len(t, out, n)

		var sum float64
		for _, d := range out {
			assert.LessOrEqual(t, d, TaskCeilingShare*target, "ceiling, round %d", round)
			assert.GreaterOrEqual(t, d, 0.0)
			sum += d
		}

		// The rescale can only be undone by the second ceiling pass, which
		// only ever lowers values.
		var capped float64
		for _, h := range hours {
			capped += math.Min(h, TaskCeilingShare*target)
		}
		if math.Abs(capped-target) > RescaleTolerance*target && !anyAbove(hours, capped, target) {
			assert.InDelta(t, target, sum, float64(n)*0.5, "rescale, round %d", round)
		}
	}
}

// anyAbove reports whether rescaling the capped hours would push a task past
// the ceiling.
func anyAbove(hours []float64, cappedSum, target float64) bool {
	ceiling := TaskCeilingShare * target
	for _, h := range hours {
		if math.Round(math.Min(h, ceiling)*target/cappedSum) > ceiling {
			return true
		}
	}
	return false
}
