// Package landmarks owns the facial landmark layer of the rPPG data
// model.
//
// Responsibilities: the 68-point landmark set contract shared with
// external detectors, the named indices the estimation core reads, and
// central-face selection when a detector reports several faces.
// Key types: Set.
//
// Dependency rule: landmarks may depend on vision, never on the
// estimation layers.
package landmarks
