package service

import "math"

// AdjustedTime rescales a historical duration recorded with originalTeamSize
// people to a team of newTeamSize. Any zero or negative input yields 0.
// The result never drops below MinReductionFactor of the original and is
// rounded to whole hours; equal team sizes return originalTime untouched.
func AdjustedTime(originalTime float64, originalTeamSize, newTeamSize int) float64 {
	if originalTime <= 0 || originalTeamSize <= 0 || newTeamSize <= 0 {
		return 0
	}
	if originalTeamSize == newTeamSize {
		return originalTime
	}

	ratio := float64(originalTeamSize) / float64(newTeamSize)
	adjusted := originalTime * math.Pow(ratio, TeamScalingExponent)
	floor := MinReductionFactor * originalTime

	return math.Round(math.Max(adjusted, floor))
}
