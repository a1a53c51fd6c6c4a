package tilegrid

// positionClass locates a tile against the grid boundary
type positionClass int

const (
	posTopLeft positionClass = iota
	posTopEdge
	posTopRight
	posLeftEdge
	posInterior
	posRightEdge
	posBottomLeft
	posBottomEdge
	posBottomRight
)

// classify resolves a tile's position class. Top beats bottom and left
// beats right, so the single row of a one-row grid is the top row and the
// single column of a one-column grid is the left column.
func (g *Grid) classify(t TileSpec) positionClass {
	top := t.Row == 0
	bottom := !top && t.Row == g.Rows-1
	left := t.Col == 0
	right := !left && t.Col == g.Cols-1

	switch {
	case top && left:
		return posTopLeft
	case top && right:
		return posTopRight
	case top:
		return posTopEdge
	case bottom && left:
		return posBottomLeft
	case bottom && right:
		return posBottomRight
	case bottom:
		return posBottomEdge
	case left:
		return posLeftEdge
	case right:
		return posRightEdge
	default:
		return posInterior
	}
}

type fullKey struct {
	topRow  bool
	leftCol bool
	lastCol bool
}

// fullGridMask covers raster-order full-grid compositing, where only the
// already-painted neighbors above and to the left need blending
var fullGridMask = map[fullKey]MaskKind{
	{true, true, true}:    MaskOpaque,
	{true, true, false}:   MaskOpaque,
	{true, false, true}:   MaskLeft,
	{true, false, false}:  MaskLeft,
	{false, true, true}:   MaskTop,
	{false, true, false}:  MaskTopAsym,
	{false, false, true}:  MaskLeftTop,
	{false, false, false}: MaskLeftTopAsym,
}

type sparseKey struct {
	pos   positionClass
	right bool
	below bool
}

// sparseMask covers reruns over a seeded base image: fade every side where
// no regenerated neighbor will paint its own matching fade, and hold a
// straight or asymmetric edge where one will.
var sparseMask = map[sparseKey]MaskKind{
	// top row, left column
	{posTopLeft, true, true}:   MaskOpaque,
	{posTopLeft, true, false}:  MaskBottom,
	{posTopLeft, false, true}:  MaskRight,
	{posTopLeft, false, false}: MaskRightBottomCorner,

	// top row, middle columns
	{posTopEdge, true, true}:   MaskLeft,
	{posTopEdge, true, false}:  MaskLeftBottomCorner,
	{posTopEdge, false, true}:  MaskLeftRight,
	{posTopEdge, false, false}: MaskAllButTop,

	// top row, last column: nothing can follow to the right
	{posTopRight, true, true}:   MaskLeft,
	{posTopRight, false, true}:  MaskLeft,
	{posTopRight, true, false}:  MaskLeftBottomCorner,
	{posTopRight, false, false}: MaskLeftBottomCorner,

	// middle rows, left column
	{posLeftEdge, true, true}:   MaskTopAsym,
	{posLeftEdge, true, false}:  MaskTopBottom,
	{posLeftEdge, false, true}:  MaskRightTopCorner,
	{posLeftEdge, false, false}: MaskAllButLeft,

	// middle rows, middle columns
	{posInterior, true, true}:   MaskLeftTopAsym,
	{posInterior, true, false}:  MaskAllButRight,
	{posInterior, false, true}:  MaskAllButBottom,
	{posInterior, false, false}: MaskAllSides,

	// middle rows, last column
	{posRightEdge, true, true}:   MaskLeftTop,
	{posRightEdge, false, true}:  MaskLeftTop,
	{posRightEdge, true, false}:  MaskAllButRight,
	{posRightEdge, false, false}: MaskAllButRight,

	// bottom row, left column
	{posBottomLeft, true, true}:   MaskTopAsym,
	{posBottomLeft, true, false}:  MaskTopAsym,
	{posBottomLeft, false, true}:  MaskRightTopCorner,
	{posBottomLeft, false, false}: MaskRightTopCorner,

	// bottom row, middle columns
	{posBottomEdge, true, true}:   MaskLeftTopAsym,
	{posBottomEdge, true, false}:  MaskLeftTopAsym,
	{posBottomEdge, false, true}:  MaskAllButBottom,
	{posBottomEdge, false, false}: MaskAllButBottom,

	// bottom row, last column: no look-aheads left to consult
	{posBottomRight, true, true}:   MaskLeftTop,
	{posBottomRight, true, false}:  MaskLeftTop,
	{posBottomRight, false, true}:  MaskLeftTop,
	{posBottomRight, false, false}: MaskLeftTop,
}

// SelectMask picks the alpha layer for one tile. Full-grid runs blend only
// against the tiles already painted above and to the left of each tile;
// sparse reruns blend against the seeded base image on every side where no
// selected neighbor will repaint, which needs the two look-aheads.
func SelectMask(g *Grid, t TileSpec, sel Selection) MaskKind {
	if !sel.Sparse() {
		return fullGridMask[fullKey{
			topRow:  t.Row == 0,
			leftCol: t.Col == 0,
			lastCol: t.Col == g.Cols-1,
		}]
	}

	// Look-aheads are raw linear-index membership. In a one-column grid
	// the +1 probe lands on the next row's first tile; the left-column
	// rules consult it that way regardless.
	rightPresent := sel.Contains(t.Index + 1)
	belowPresent := sel.Contains(t.Index + g.Cols)

	return sparseMask[sparseKey{pos: g.classify(t), right: rightPresent, below: belowPresent}]
}
