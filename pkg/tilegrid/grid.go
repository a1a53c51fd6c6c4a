package tilegrid

import (
	"fmt"
	"image"
	"math"
)

// OverlapPixels derives the overlap band sizes in pixels from a single
// overlap setting: values below 1 are a per-axis fraction of the tile
// dimensions, values of 1 and above are an absolute pixel count applied to
// both axes. Negative settings degrade to no overlap.
func OverlapPixels(overlap float64, tileW, tileH int) (int, int) {
	if overlap >= 1 {
		px := int(math.Round(overlap))
		return px, px
	}
	if overlap < 0 {
		overlap = 0
	}
	return int(math.Round(overlap * float64(tileW))), int(math.Round(overlap * float64(tileH)))
}

// Plan computes the tile grid covering a super-image of the given size.
// Tiles are always full tileW x tileH rectangles; the grid gains a column
// (or row) whenever the remaining span exceeds the non-overlapping stride,
// and the last column/row is shifted flush with the far edge rather than
// shrunk.
func Plan(superW, superH, tileW, tileH, overlapX, overlapY int) (*Grid, error) {
	if tileW <= 0 || tileH <= 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("tile size %dx%d must be positive", tileW, tileH)}
	}
	if superW < tileW || superH < tileH {
		return nil, &ConfigError{Reason: fmt.Sprintf("super-image %dx%d smaller than tile %dx%d", superW, superH, tileW, tileH)}
	}
	if overlapX < 0 || overlapY < 0 {
		return nil, &ConfigError{Reason: fmt.Sprintf("overlap %dx%d must not be negative", overlapX, overlapY)}
	}
	if overlapX >= tileW || overlapY >= tileH {
		return nil, &ConfigError{Reason: fmt.Sprintf("overlap %dx%d must be smaller than tile %dx%d", overlapX, overlapY, tileW, tileH)}
	}

	cols := 1
	if superW-tileW > 0 {
		cols = ceilDiv(superW-tileW, tileW-overlapX) + 1
	}
	rows := 1
	if superH-tileH > 0 {
		rows = ceilDiv(superH-tileH, tileH-overlapY) + 1
	}

	if cols == 1 && rows == 1 {
		return nil, &ConfigError{Reason: fmt.Sprintf("super-image %dx%d fits in a single %dx%d tile, nothing to embiggen", superW, superH, tileW, tileH)}
	}

	return &Grid{
		SuperWidth:  superW,
		SuperHeight: superH,
		TileWidth:   tileW,
		TileHeight:  tileH,
		OverlapX:    overlapX,
		OverlapY:    overlapY,
		Cols:        cols,
		Rows:        rows,
	}, nil
}

// ceilDiv is integer ceiling division for positive operands
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Count returns the total number of tiles in the grid
func (g *Grid) Count() int {
	return g.Cols * g.Rows
}

// Tile returns the TileSpec for a 0-based linear index in raster order.
// The index must be within [0, Count()).
func (g *Grid) Tile(index int) TileSpec {
	return g.TileAt(index/g.Cols, index%g.Cols)
}

// TileAt returns the TileSpec at the given grid coordinates
func (g *Grid) TileAt(row, col int) TileSpec {
	left := col * (g.TileWidth - g.OverlapX)
	if col == g.Cols-1 {
		left = g.SuperWidth - g.TileWidth
	}
	top := row * (g.TileHeight - g.OverlapY)
	if row == g.Rows-1 {
		top = g.SuperHeight - g.TileHeight
	}

	return TileSpec{
		Row:   row,
		Col:   col,
		Index: row*g.Cols + col,
		Crop:  image.Rect(left, top, left+g.TileWidth, top+g.TileHeight),
	}
}

// Tiles returns every TileSpec in ascending linear-index order
func (g *Grid) Tiles() []TileSpec {
	tiles := make([]TileSpec, 0, g.Count())
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			tiles = append(tiles, g.TileAt(row, col))
		}
	}
	return tiles
}
