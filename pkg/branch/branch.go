package branch

import "math"

// NoParent is the Parent value of the root branch.
const NoParent = -1

// Vec is a point or displacement in tree coordinates.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+w.
func (v Vec) Add(w Vec) Vec { return Vec{X: v.X + w.X, Y: v.Y + w.Y} }

// Scale returns v*s.
func (v Vec) Scale(s float64) Vec { return Vec{X: v.X * s, Y: v.Y * s} }

// Branch is one segment of a generated tree.
type Branch struct {
	Index  int     // position in breadth-first order, unique within a tree
	Pos    Vec     // start point
	Length float64 // always positive
	Width  float64 // always positive
	Angle  float64 // radians
	Depth  int     // generation layer, 0 for the root
	Parent int     // index of the branch this one grew from, NoParent for the root
	Text   string  // optional label
}

// IsRoot reports whether b has no parent.
func (b Branch) IsRoot() bool { return b.Parent == NoParent }

// Tip returns the end point of b, where its children start.
func (b Branch) Tip() Vec {
	return b.Pos.Add(Vec{X: math.Cos(b.Angle), Y: math.Sin(b.Angle)}.Scale(b.Length))
}

// SameGeometry reports whether a and b describe the same segment.
// Index, parent and label are ignored.
func SameGeometry(a, b Branch) bool {
	return a.Pos == b.Pos &&
		a.Length == b.Length &&
		a.Width == b.Width &&
		a.Angle == b.Angle &&
		a.Depth == b.Depth
}
