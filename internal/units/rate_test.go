package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	if !IsValid("bpm") || !IsValid("hz") {
		t.Error("expected bpm and hz to be valid")
	}
	if IsValid("mph") {
		t.Error("mph should not be a valid rate unit")
	}
}

func TestConvertRate(t *testing.T) {
	if got := ConvertRate(72, BPM); got != 72 {
		t.Errorf("bpm passthrough: got %v", got)
	}
	if got := ConvertRate(72, Hz); math.Abs(got-1.2) > 1e-12 {
		t.Errorf("expected 1.2 Hz, got %v", got)
	}
	if got := ConvertRate(72, "furlongs"); got != 72 {
		t.Errorf("unknown unit should pass through, got %v", got)
	}
}

func TestClampHz(t *testing.T) {
	if got := ClampHz(-1, 10); got != 0 {
		t.Errorf("expected clamp to 0, got %v", got)
	}
	if got := ClampHz(9, 10); got != 5 {
		t.Errorf("expected clamp to Nyquist 5, got %v", got)
	}
	if got := ClampHz(2, 10); got != 2 {
		t.Errorf("in-band value changed: %v", got)
	}
}

func TestBinConversions(t *testing.T) {
	// 85-sample window at 10 fps: the scenario anchor.
	const n = 85
	const fps = 10.0

	if got := LowBin(0.75, fps, n); got != 6 {
		t.Errorf("expected low bin 6, got %d", got)
	}
	if got := HighBin(3.0, fps, n); got != 26 {
		t.Errorf("expected high bin 26, got %d", got)
	}

	width := BinWidthBPM(fps, n)
	if math.Abs(width-7.0588235294) > 1e-6 {
		t.Errorf("expected bin width ~7.06 BPM, got %v", width)
	}

	// Round trip stays within one bin width across the band.
	for bpm := 45.0; bpm <= 180.0; bpm += 5 {
		bin := LowBin(BPMToHz(bpm), fps, n)
		back := BinToBPM(bin, fps, n)
		if math.Abs(back-bpm) > width {
			t.Errorf("round trip %v BPM -> bin %d -> %v BPM exceeds bin width", bpm, bin, back)
		}
	}
}
