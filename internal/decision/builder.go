package decision

import (
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
)

// FromNeighborhood builds a RobustnessInput from a neighborhood scan result.
func FromNeighborhood(res *domain.NeighborhoodResult) (*RobustnessInput, error) {
	if res == nil {
		return nil, ErrNoNeighborhoodResult
	}
	metric, err := metrics.Lookup(res.PrimaryMetric)
	if err != nil {
		return nil, err
	}

	input := &RobustnessInput{
		PrimaryMetric:       res.PrimaryMetric,
		BaselineValue:       metric.Value(res.Baseline),
		Levels:              make([]LevelDegradation, 0, len(res.Levels)),
		WorstDegradationPct: res.WorstDegradationPct,
		Truncated:           res.Truncated,
	}
	for _, l := range res.Levels {
		input.Levels = append(input.Levels, LevelDegradation{
			Column:         l.Column,
			Level:          l.Level,
			DegradationPct: l.DegradationPct,
		})
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}
	return input, nil
}
