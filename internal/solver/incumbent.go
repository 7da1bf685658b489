package solver

import "fmt"

// updateIncumbent recomputes the incumbent under the configured policy.
// It runs every iteration, whether or not the model was retrained.
func (s *Solver) updateIncumbent() error {
	best, err := argmin(s.obs.Y)
	if err != nil {
		return err
	}

	switch s.cfg.Policy {
	case PolicyBestObserved:
		s.logger.Info("Use best point seen so far as incumbent")
		s.incumbent = Incumbent{X: cloneVec(s.obs.X[best]), Value: s.obs.Y[best]}
		return nil

	case PolicyMultiRestartPosterior:
		s.logger.Info("Optimize the posterior to find a new incumbent", "restarts", s.cfg.NRestarts)
		lower, upper := s.cfg.Task.Lower(), s.cfg.Task.Upper()
		starts := make([][]float64, 0, s.cfg.NRestarts+1)
		for i := 0; i < s.cfg.NRestarts; i++ {
			starts = append(starts, uniform(lower, upper, s.rng))
		}
		starts = append(starts, cloneVec(s.obs.X[best]))
		return s.recommendFrom(starts, true)

	case PolicySingleStartPosterior:
		return s.recommendFrom([][]float64{cloneVec(s.obs.X[best])}, false)

	default:
		return &ConfigError{Field: "Policy", Reason: "unknown value " + s.cfg.Policy.String()}
	}
}

func (s *Solver) recommendFrom(starts [][]float64, withGradients bool) error {
	x, v, err := s.cfg.Recommender.Recommend(
		s.cfg.Model,
		s.cfg.Task.Lower(),
		s.cfg.Task.Upper(),
		starts,
		withGradients,
	)
	if err != nil {
		return fmt.Errorf("recommend incumbent: %w", err)
	}
	s.incumbent = Incumbent{X: cloneVec(x), Value: v}
	return nil
}
