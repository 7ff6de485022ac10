// Package window owns the sample-accumulation layer of the rPPG data
// model.
//
// Responsibilities: per-frame mean color samples and the fixed-capacity
// sliding window the estimator reads from.
// Key types: ColorSample, TemporalWindow.
//
// Dependency rule: window depends only on the standard library.
package window
