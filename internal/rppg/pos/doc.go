// Package pos implements Plane-Orthogonal-to-Skin pulse extraction.
//
// Responsibilities: turning a window of mean skin-color samples into a
// zero-centred, Hamming-weighted pulse waveform ready for spectral
// analysis.
//
// Dependency rule: pos may depend on window, never on the spectral
// layer above it.
package pos
