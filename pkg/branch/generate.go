package branch

import (
	"math"
	"math/rand/v2"
)

// Growth constants.
const (
	MaxChildren       = 2
	MaxBranchLength   = 0.2
	WidthShrinkFactor = 0.8
	// DeterministicLayers is the last layer with a fixed fan-out.
	DeterministicLayers = 10
)

// LengthShrinkFactor scales a child's length relative to its parent.
var LengthShrinkFactor = 1 / math.Sqrt2

// BranchAngles alternate the side a child turns to, in quarter turns.
var BranchAngles = [...]float64{1, -1}

// Root parameters.
var (
	RootPos    = Vec{X: 0.5, Y: 0.99}
	RootLength = 0.4
	RootWidth  = 0.008
	RootAngle  = -math.Pi / 2
)

// Generator grows branches. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator returns a Generator whose random fan-out is reproducible
// for a given seed.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Root returns the fixed root branch.
func (g *Generator) Root() Branch {
	return Branch{
		Index:  0,
		Pos:    RootPos,
		Length: RootLength,
		Width:  RootWidth,
		Angle:  RootAngle,
		Depth:  0,
		Parent: NoParent,
	}
}

// Children returns the branches that grow from parent at the given layer,
// numbered from start. Layer 0 is the seeding sentinel and yields only the
// root.
func (g *Generator) Children(parent Branch, start, layer int) []Branch {
	if layer == 0 {
		return []Branch{g.Root()}
	}

	n := g.fanOut(layer)
	if n == 0 {
		return nil
	}

	pos := parent.Tip()
	length := math.Min(parent.Length, MaxBranchLength) * LengthShrinkFactor
	width := parent.Width * WidthShrinkFactor

	children := make([]Branch, n)
	for i := range children {
		children[i] = Branch{
			Index:  start + i,
			Pos:    pos,
			Length: length,
			Width:  width,
			Angle:  parent.Angle + BranchAngles[i%len(BranchAngles)]*math.Pi/2,
			Depth:  layer,
			Parent: parent.Index,
		}
	}
	return children
}

// fanOut is MaxChildren up to DeterministicLayers; past that it samples
// N(0.5-0.5*layer, 0.5), floors at zero and rounds to nearest.
func (g *Generator) fanOut(layer int) int {
	if layer <= DeterministicLayers {
		return MaxChildren
	}
	mean := 0.5 - 0.5*float64(layer)
	sample := g.rng.NormFloat64()*0.5 + mean
	return int(math.Floor(math.Max(0, sample) + 0.5))
}
