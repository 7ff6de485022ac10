// Package stabilize owns the geometric stabilization layer of the rPPG
// data model.
//
// Responsibilities: solving the anchor affine against the canonical
// face space, projecting the canonical forehead rectangle into source
// frames, and warping the cropped region into the fixed ROI raster.
// Key types: Stabilizer, Affine.
//
// Dependency rule: stabilize may depend on vision and landmarks, never
// on the estimation layers above it.
package stabilize
