package service

const (
	// SynonymCount is how many alternative names the model is asked for.
	SynonymCount = 25

	// TeamScalingExponent makes team-size scaling sub-linear.
	TeamScalingExponent = 0.7
	// MinReductionFactor is the smallest share of the original time a
	// team-size adjustment may return.
	MinReductionFactor = 0.3

	// CategoryBandTolerance is the allowed deviation from the category mean.
	CategoryBandTolerance = 0.5
	// TaskCeilingShare caps any single task at this share of total project hours.
	TaskCeilingShare = 0.3
	// RescaleTolerance is the total deviation that triggers a global rescale.
	RescaleTolerance = 0.1

	// DefaultHoursPerDay converts project days to hours when none is configured.
	DefaultHoursPerDay = 8

	matchConcurrency = 8
)
