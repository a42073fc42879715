// Package tracking models the spatial trail of a delivery: append-only
// location samples, the mirrored current position and the tracker's
// projection of the order used to authorize incoming samples.
package tracking
