// Package branch defines the segment value that makes up a generated tree
// and the pseudo-random process that grows new segments from old ones.
//
// # Branches
//
// A [Branch] is one directed line segment: it starts at [Branch.Pos], points
// along [Branch.Angle] (radians, image coordinates with y growing downward)
// and is [Branch.Length] long. Branches are plain values; the relation to the
// branch a segment grew from is kept as the parent's index, never as a
// pointer, so a stored branch can always be rebuilt from its own fields.
//
// # Generation
//
// A [Generator] produces the root and, for any parent, the ordered set of its
// children:
//
//	g := branch.NewGenerator(42)
//	root := g.Root()
//	kids := g.Children(root, 1, 1) // two children at depth 1
//
// Up to layer 10 every branch forks into [MaxChildren] children, which makes
// those layers fully deterministic. Beyond that the fan-out is drawn from a
// clipped Gaussian whose mean falls with depth, so trees thin out naturally.
// The same seed always yields the same tree.
package branch
