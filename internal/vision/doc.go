// Package vision owns the raw image layer of the rPPG data model.
//
// Responsibilities: explicitly shaped BGR rasters, pixel geometry
// (points, rectangles, quads), crops and the small drawing primitives
// the diagnostic surfaces need.
// Key types: Frame, Point, Rect, Quad.
//
// Dependency rule: vision depends only on the standard library; every
// other package may depend on vision.
package vision
