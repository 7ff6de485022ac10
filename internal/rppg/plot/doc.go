// Package plot renders scalar sequences into fixed-size BGR rasters
// for the debug HUD: the windowed pulse waveform and the magnitude
// spectrum.
//
// Rendering is a pure function of its input; no state is kept between
// calls.
package plot
