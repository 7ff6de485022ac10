package pos

import (
	"math"
	"testing"

	"github.com/heartbeam-data/pulse.report/internal/rppg/window"
)

func TestExtractTooShort(t *testing.T) {
	if _, err := Extract([]window.ColorSample{{B: 1, G: 1, R: 1}}); err == nil {
		t.Fatal("expected error for single sample")
	}
	if _, err := Extract(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestExtractLengthAndOrdering(t *testing.T) {
	samples := make([]window.ColorSample, 40)
	for i := range samples {
		v := 100 + 5*math.Sin(2*math.Pi*float64(i)/10)
		samples[i] = window.ColorSample{B: 90, G: v, R: 110}
	}

	h, err := Extract(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h) != len(samples) {
		t.Fatalf("expected length %d, got %d", len(samples), len(h))
	}
}

func TestExtractConstantInputIsZero(t *testing.T) {
	samples := make([]window.ColorSample, 85)
	for i := range samples {
		samples[i] = window.ColorSample{B: 80, G: 120, R: 100}
	}

	h, err := Extract(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range h {
		if math.Abs(v) > 1e-9 {
			t.Fatalf("constant input should give a zero signal, h[%d] = %v", i, v)
		}
	}
}

func TestExtractZeroMean(t *testing.T) {
	samples := make([]window.ColorSample, 64)
	for i := range samples {
		samples[i] = window.ColorSample{
			B: 90 + 3*math.Sin(2*math.Pi*float64(i)/16),
			G: 120 + 6*math.Sin(2*math.Pi*float64(i)/16+0.4),
			R: 100 + 2*math.Cos(2*math.Pi*float64(i)/16),
		}
	}

	h, err := Extract(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Mean removal happens before the taper, so the tapered signal is
	// not exactly zero-mean, but must remain near zero relative to its
	// own scale.
	var sum, peak float64
	for _, v := range h {
		sum += v
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		t.Fatal("expected a non-trivial signal")
	}
	if math.Abs(sum/float64(len(h)))/peak > 0.2 {
		t.Errorf("signal mean %v too large relative to peak %v", sum/float64(len(h)), peak)
	}
}

func TestHammingEndpoints(t *testing.T) {
	v := make([]float64, 85)
	for i := range v {
		v[i] = 1
	}
	applyHamming(v)

	if math.Abs(v[0]-0.08) > 1e-12 {
		t.Errorf("expected 0.08 at the left edge, got %v", v[0])
	}
	if math.Abs(v[len(v)-1]-0.08) > 1e-12 {
		t.Errorf("expected 0.08 at the right edge, got %v", v[len(v)-1])
	}
	mid := v[(len(v)-1)/2]
	if mid < 0.9 {
		t.Errorf("expected near-unit weight at the midpoint, got %v", mid)
	}
}

func TestHammingExactMidpointOddLength(t *testing.T) {
	v := make([]float64, 85)
	for i := range v {
		v[i] = 1
	}
	applyHamming(v)

	// With N odd, i = (N-1)/2 sits exactly at the cosine trough.
	if math.Abs(v[42]-1.0) > 1e-12 {
		t.Errorf("expected weight 1.0 at index 42, got %v", v[42])
	}
}

func TestExtractPreservesOscillation(t *testing.T) {
	// A green-channel oscillation at 12 samples per cycle must survive
	// into the output with the same period.
	const period = 12
	samples := make([]window.ColorSample, 96)
	for i := range samples {
		samples[i] = window.ColorSample{
			B: 95,
			G: 120 + 4*math.Sin(2*math.Pi*float64(i)/period),
			R: 105,
		}
	}

	h, err := Extract(samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Count zero crossings in the central half where the taper leaves
	// the signal strong.
	start, end := len(h)/4, 3*len(h)/4
	crossings := 0
	for i := start + 1; i < end; i++ {
		if (h[i-1] < 0) != (h[i] < 0) {
			crossings++
		}
	}
	wantCycles := float64(end-start) / period
	got := float64(crossings) / 2
	if math.Abs(got-wantCycles) > 1.5 {
		t.Errorf("expected ~%.1f cycles in central half, got %.1f", wantCycles, got)
	}
}
