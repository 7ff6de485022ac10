// Package spectral estimates heart rate from an extracted pulse
// waveform.
//
// Responsibilities: the windowed DFT, band-limited peak selection with
// an explicit noise-floor policy, and the peak diagnostics surfaced in
// debug mode.
// Key types: Estimator, Result.
//
// Dependency rule: spectral depends only on units and gonum; it never
// sees frames or landmarks.
package spectral
