package tilegrid

import (
	"image"
	"sort"
)

// Grid describes the tile layout covering a super-image. Built by Plan;
// treat as read-only afterwards.
type Grid struct {
	SuperWidth  int
	SuperHeight int
	TileWidth   int
	TileHeight  int
	OverlapX    int
	OverlapY    int
	Cols        int
	Rows        int
}

// TileSpec locates one tile inside a Grid
type TileSpec struct {
	Row   int
	Col   int
	Index int // Row*Cols + Col, raster order
	Crop  image.Rectangle
}

// RenderedTile is a synthesized tile ready for compositing
type RenderedTile struct {
	TileSpec
	Image *image.NRGBA
	Mask  MaskKind
	Seed  uint32
}

// Selection is the set of tiles to regenerate. The zero value selects the
// full grid; a non-empty selection is a sparse rerun over an existing image.
type Selection struct {
	indices []int
	lookup  map[int]bool
}

// NewSelection builds a sparse selection from 1-based tile numbers as users
// supply them. Indices are shifted to 0-based, sorted ascending and
// deduplicated. An empty input yields the full-grid selection.
func NewSelection(oneBased []int) Selection {
	if len(oneBased) == 0 {
		return Selection{}
	}

	lookup := make(map[int]bool, len(oneBased))
	for _, n := range oneBased {
		lookup[n-1] = true
	}

	indices := make([]int, 0, len(lookup))
	for idx := range lookup {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	return Selection{indices: indices, lookup: lookup}
}

// Sparse reports whether the selection names an explicit subset of tiles
func (s Selection) Sparse() bool {
	return len(s.indices) > 0
}

// Contains reports membership of a 0-based linear index. Always true for
// the full-grid selection.
func (s Selection) Contains(index int) bool {
	if !s.Sparse() {
		return true
	}
	return s.lookup[index]
}

// Indices returns the selected 0-based indices in ascending order
func (s Selection) Indices() []int {
	out := make([]int, len(s.indices))
	copy(out, s.indices)
	return out
}

// Count returns how many tiles the selection covers within the given grid
func (s Selection) Count(g *Grid) int {
	if !s.Sparse() {
		return g.Count()
	}
	return len(s.indices)
}

// Validate checks every sparse index against the grid bounds
func (s Selection) Validate(g *Grid) error {
	total := g.Count()
	for _, idx := range s.indices {
		if idx < 0 || idx >= total {
			return &TileIndexError{Index: idx, Count: total}
		}
	}
	return nil
}
