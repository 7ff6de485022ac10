package rppg

import (
	"math"
	"testing"
)

func TestRunningStatsKnownSeries(t *testing.T) {
	var s RunningStats
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		s.Push(x)
	}
	if s.Count() != 8 {
		t.Errorf("count = %d, want 8", s.Count())
	}
	if s.Mean() != 5 {
		t.Errorf("mean = %v, want 5", s.Mean())
	}
	wantVar := 32.0 / 7.0
	if math.Abs(s.Variance()-wantVar) > 1e-12 {
		t.Errorf("variance = %v, want %v", s.Variance(), wantVar)
	}
	if math.Abs(s.StdDev()-math.Sqrt(wantVar)) > 1e-12 {
		t.Errorf("stddev = %v, want %v", s.StdDev(), math.Sqrt(wantVar))
	}
	if s.Min() != 2 || s.Max() != 9 {
		t.Errorf("min/max = %v/%v, want 2/9", s.Min(), s.Max())
	}
}

func TestRunningStatsSingleObservation(t *testing.T) {
	var s RunningStats
	s.Push(-3.5)
	if s.Mean() != -3.5 || s.Min() != -3.5 || s.Max() != -3.5 {
		t.Errorf("got mean/min/max %v/%v/%v, want -3.5 for all", s.Mean(), s.Min(), s.Max())
	}
	if s.Variance() != 0 || s.StdDev() != 0 {
		t.Errorf("variance of one observation should be 0, got %v", s.Variance())
	}
}

func TestRunningStatsEmpty(t *testing.T) {
	var s RunningStats
	if s.Count() != 0 || s.Mean() != 0 || s.Variance() != 0 || s.Min() != 0 || s.Max() != 0 {
		t.Error("zero value should report zeros throughout")
	}
}

func TestRunningStatsReset(t *testing.T) {
	var s RunningStats
	s.Push(10)
	s.Push(20)
	s.Reset()
	if s.Count() != 0 || s.Mean() != 0 || s.Variance() != 0 {
		t.Error("reset did not clear aggregates")
	}
	s.Push(7)
	if s.Mean() != 7 || s.Min() != 7 || s.Max() != 7 {
		t.Error("stats after reset should start fresh")
	}
}

func TestRunningStatsMatchesDirectComputation(t *testing.T) {
	xs := []float64{0.13, -2.4, 17.9, 3.3, 3.3, -8.25, 100.5, 0}
	var s RunningStats
	var sum float64
	for _, x := range xs {
		s.Push(x)
		sum += x
	}
	mean := sum / float64(len(xs))
	var m2 float64
	for _, x := range xs {
		m2 += (x - mean) * (x - mean)
	}
	wantVar := m2 / float64(len(xs)-1)
	if math.Abs(s.Mean()-mean) > 1e-9 {
		t.Errorf("mean = %v, want %v", s.Mean(), mean)
	}
	if math.Abs(s.Variance()-wantVar) > 1e-9 {
		t.Errorf("variance = %v, want %v", s.Variance(), wantVar)
	}
}
