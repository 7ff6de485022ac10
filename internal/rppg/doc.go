// Package rppg owns the heart-rate estimation core.
//
// Responsibilities: spatial color sampling over stabilized skin regions,
// window-level pulse recovery and spectral analysis (via the pos, window
// and spectral subpackages), and the Analyzer that composes them behind
// a two-call surface.
// Key types: Analyzer, BPMEstimate, RunningStats.
//
// Dependency rule: rppg and its subpackages may depend on vision, but
// never on pipeline, storage, monitor or the HUD.
package rppg
