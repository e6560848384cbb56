package service

import (
	"math"

	"github.com/scopewise/estimation-backend/internal/estimation/domain"
)

// Reconcile finalizes submodule hours against totalHours. The input is not
// modified. Steps, in order:
//
//  1. clamp each submodule into mean ±50% of its category's adjusted history
//  2. cap each submodule at 30% of totalHours
//  3. when the sum is off by more than 10%, scale every submodule by
//     totalHours/sum and round to whole hours
//  4. cap again, since step 3 can push a submodule past the ceiling
//
// A non-positive totalHours only applies the category band.
func Reconcile(modules []domain.Module, totalHours float64, history *HistoryIndex) []domain.Module {
	out := cloneModules(modules)

	each := func(fn func(s *domain.Submodule)) {
		for i := range out {
			for j := range out[i].Submodules {
				fn(&out[i].Submodules[j])
			}
		}
	}

	if history != nil {
		each(func(s *domain.Submodule) {
			mean, ok := history.CategoryMean(s.Category)
			if !ok {
				return
			}
			lo := mean * (1 - CategoryBandTolerance)
			hi := mean * (1 + CategoryBandTolerance)
			s.Duration = math.Min(math.Max(s.Duration, lo), hi)
		})
	}

	if totalHours <= 0 {
		return out
	}

	ceiling := TaskCeilingShare * totalHours
	capTask := func(s *domain.Submodule) {
		if s.Duration > ceiling {
			s.Duration = ceiling
		}
	}
	each(capTask)

	var sum float64
	each(func(s *domain.Submodule) { sum += s.Duration })
	if sum > 0 && math.Abs(sum-totalHours) > RescaleTolerance*totalHours {
		factor := totalHours / sum
		each(func(s *domain.Submodule) {
			s.Duration = math.Round(s.Duration * factor)
		})
		each(capTask)
	}

	return out
}

func cloneModules(modules []domain.Module) []domain.Module {
	out := make([]domain.Module, len(modules))
	for i, m := range modules {
		out[i] = m
		out[i].Submodules = append([]domain.Submodule(nil), m.Submodules...)
	}
	return out
}
