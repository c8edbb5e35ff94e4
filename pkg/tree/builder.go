package tree

import (
	"github.com/matzehuels/wordstree/pkg/branch"
	wterrors "github.com/matzehuels/wordstree/pkg/errors"
)

// MaxDepthLimit bounds Generate, whose capacity doubles with every layer.
const MaxDepthLimit = 24

// initialSlots is the most Build allocates before any branch is grown.
const initialSlots = 1 << 12

// Build fills up to capacity slots with branches grown breadth-first for
// at most maxLayers layers (the root being layer 0). It returns the filled
// prefix, the start index of every layer present and the number of slots
// used.
//
// Growth stops early when a layer adds nothing. When capacity runs out the
// current layer is cut short and no further layer is grown.
func Build(g *branch.Generator, capacity, maxLayers int) ([]branch.Branch, []int, int) {
	if capacity < 1 {
		return nil, nil, 0
	}

	// grown on demand: past the deterministic layers fan-out dies out long
	// before a deep capacity is reached
	branches := make([]branch.Branch, 0, min(capacity, initialSlots))
	branches = append(branches, g.Children(branch.Branch{}, 0, 0)[0])
	layers := []int{0}

	begin, end := 0, 1
	for layer := 1; layer < maxLayers && end < capacity; layer++ {
		layerEnd := end
		for ; begin < layerEnd; begin++ {
			for _, child := range g.Children(branches[begin], end, layer) {
				if end == capacity {
					break
				}
				branches = append(branches, child)
				end++
			}
		}
		if end == layerEnd {
			break
		}
		layers = append(layers, layerEnd)
	}

	return branches, layers, end
}

// Generate grows a fresh, unsaved tree of at most maxDepth layers. The
// capacity of 2^maxDepth+1 never truncates the deterministic layers.
func Generate(g *branch.Generator, maxDepth int, name string) (*Tree, error) {
	if maxDepth < 1 || maxDepth > MaxDepthLimit {
		return nil, wterrors.New(wterrors.ErrCodeInvalidInput,
			"max depth must be between 1 and %d, got %d", MaxDepthLimit, maxDepth)
	}

	branches, layers, _ := Build(g, 1<<maxDepth+1, maxDepth)
	return &Tree{
		Name:     name,
		Branches: branches,
		Layers:   layers,
	}, nil
}
