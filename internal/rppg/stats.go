package rppg

import "math"

// RunningStats accumulates streaming summary statistics using
// Welford's update, so long sessions never lose precision to a naive
// sum of squares. Used for frame-interval jitter and per-stage timing
// aggregates. Not safe for concurrent use.
type RunningStats struct {
	count int64
	mean  float64
	m2    float64
	min   float64
	max   float64
}

// Push folds one observation into the aggregates.
func (s *RunningStats) Push(x float64) {
	s.count++
	if s.count == 1 {
		s.min = x
		s.max = x
	} else {
		if x < s.min {
			s.min = x
		}
		if x > s.max {
			s.max = x
		}
	}
	delta := x - s.mean
	s.mean += delta / float64(s.count)
	s.m2 += delta * (x - s.mean)
}

// Count returns the number of observations pushed.
func (s *RunningStats) Count() int64 { return s.count }

// Mean returns the running mean, or 0 before any observation.
func (s *RunningStats) Mean() float64 { return s.mean }

// Variance returns the sample variance (n-1 denominator). Fewer than
// two observations yield 0.
func (s *RunningStats) Variance() float64 {
	if s.count < 2 {
		return 0
	}
	return s.m2 / float64(s.count-1)
}

// StdDev returns the sample standard deviation.
func (s *RunningStats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// Min returns the smallest observation, or 0 before any.
func (s *RunningStats) Min() float64 { return s.min }

// Max returns the largest observation, or 0 before any.
func (s *RunningStats) Max() float64 { return s.max }

// Reset clears all aggregates.
func (s *RunningStats) Reset() {
	*s = RunningStats{}
}
