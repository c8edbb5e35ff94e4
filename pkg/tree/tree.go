package tree

import (
	"github.com/matzehuels/wordstree/pkg/branch"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
)

// Tree is an ordered collection of branches plus its layer boundaries.
type Tree struct {
	ID         int64 // 0 until a relational store assigns one
	Name       string
	Branches   []branch.Branch
	Layers     []int // first index of every depth present
	FullWidth  float64
	FullHeight float64
}

// Len returns the number of branches.
func (t *Tree) Len() int { return len(t.Branches) }

// Depth returns the number of layers.
func (t *Tree) Depth() int { return len(t.Layers) }

// Layer returns the branches at depth d, or nil if d is out of range.
func (t *Tree) Layer(d int) []branch.Branch {
	if d < 0 || d >= len(t.Layers) {
		return nil
	}
	end := len(t.Branches)
	if d+1 < len(t.Layers) {
		end = t.Layers[d+1]
	}
	return t.Branches[t.Layers[d]:end]
}

// DeriveLayers returns the index of every branch whose depth is greater
// than its predecessor's. A depth that decreases is reported as
// CORRUPT_DATA.
func DeriveLayers(branches []branch.Branch) ([]int, error) {
	layers := []int{}
	prev := -1
	for i, b := range branches {
		switch {
		case b.Depth > prev:
			layers = append(layers, i)
			prev = b.Depth
		case b.Depth < prev:
			return nil, wterrors.New(wterrors.ErrCodeCorruptData,
				"branches not in order: index %d has depth %d after depth %d", i, b.Depth, prev)
		}
	}
	return layers, nil
}

// CheckIndices verifies that every branch's index equals its position,
// which is what makes Parent usable as a slice index.
func CheckIndices(branches []branch.Branch) error {
	for i, b := range branches {
		if b.Index != i {
			return wterrors.New(wterrors.ErrCodeCorruptData, "branch at position %d has index %d", i, b.Index)
		}
	}
	return nil
}

// CheckLineage verifies that every non-root branch names a parent that
// appears earlier in the sequence at exactly one layer shallower.
func CheckLineage(branches []branch.Branch) error {
	depthOf := make(map[int]int, len(branches))
	for i, b := range branches {
		if b.IsRoot() {
			if b.Depth != 0 {
				return wterrors.New(wterrors.ErrCodeCorruptData, "root at position %d has depth %d", i, b.Depth)
			}
		} else {
			pd, ok := depthOf[b.Parent]
			if !ok {
				return wterrors.New(wterrors.ErrCodeCorruptData,
					"branch %d refers to unknown parent %d", b.Index, b.Parent)
			}
			if b.Depth != pd+1 {
				return wterrors.New(wterrors.ErrCodeCorruptData,
					"branch %d has depth %d, parent %d has depth %d", b.Index, b.Depth, b.Parent, pd)
			}
		}
		depthOf[b.Index] = b.Depth
	}
	return nil
}
