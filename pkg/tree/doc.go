// Package tree lays generated branches out in a flat, breadth-first array.
//
// [Build] drives a [branch.Generator] layer by layer into a pre-sized slice
// and records where each layer starts. The resulting [Tree] is what the
// loaders persist and reconstruct; [DeriveLayers] recomputes the layer
// boundaries from a stored sequence and rejects sequences whose depths go
// backwards.
package tree
