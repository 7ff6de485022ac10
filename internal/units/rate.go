// Package units provides shared conversions between heart-rate units
// and spectral bin positions
package units

import "math"

// Unit constants
const (
	BPM = "bpm"
	Hz  = "hz"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{BPM, Hz}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "bpm, hz"
}

// BPMToHz converts beats per minute to Hertz.
func BPMToHz(bpm float64) float64 {
	return bpm / 60.0
}

// HzToBPM converts Hertz to beats per minute.
func HzToBPM(hz float64) float64 {
	return hz * 60.0
}

// ConvertRate converts a rate stored in BPM to the target units.
// Stores and APIs carry rates in BPM.
func ConvertRate(rateBPM float64, targetUnits string) float64 {
	switch targetUnits {
	case BPM:
		return rateBPM
	case Hz:
		return BPMToHz(rateBPM)
	default:
		return rateBPM
	}
}

// ClampHz restricts a frequency to [0, fps/2], the representable band of
// a real spectrum sampled at fps.
func ClampHz(hz, fps float64) float64 {
	if hz < 0 {
		return 0
	}
	if nyquist := fps / 2; hz > nyquist {
		return nyquist
	}
	return hz
}

// LowBin returns the inclusive lower DFT bin index for a band edge in
// Hz over an N-sample window at fps.
func LowBin(hz, fps float64, n int) int {
	return int(math.Floor(hz * float64(n) / fps))
}

// HighBin returns the inclusive upper DFT bin index for a band edge in
// Hz over an N-sample window at fps.
func HighBin(hz, fps float64, n int) int {
	return int(math.Ceil(hz * float64(n) / fps))
}

// BinToBPM converts a DFT bin index back to beats per minute.
func BinToBPM(bin int, fps float64, n int) float64 {
	return float64(bin) * fps / float64(n) * 60.0
}

// BinWidthBPM is the BPM resolution of an N-sample window at fps.
func BinWidthBPM(fps float64, n int) float64 {
	return fps / float64(n) * 60.0
}
