package tilegrid

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// Compositor lays rendered tiles onto the output canvas using the mask
// set built for the grid's geometry
type Compositor struct {
	grid  *Grid
	masks *MaskSet
}

// NewCompositor creates a compositor for one grid and its mask set
func NewCompositor(g *Grid, masks *MaskSet) *Compositor {
	return &Compositor{grid: g, masks: masks}
}

// Composite blends rendered tiles into the final image, in ascending
// linear-index order. Later tiles cover part of earlier ones inside the
// overlap bands, which is what the directional fades rely on. Sparse
// selections paint over a canvas seeded with base; full-grid selections
// start from a blank canvas and base is ignored.
func (c *Compositor) Composite(base image.Image, sel Selection, tiles []RenderedTile) (*image.NRGBA, error) {
	expected := sel.Count(c.grid)
	if len(tiles) != expected {
		return nil, &IncompleteResultError{Expected: expected, Rendered: len(tiles)}
	}

	ordered := make([]RenderedTile, len(tiles))
	copy(ordered, tiles)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	seen := make(map[int]bool, len(ordered))
	for _, t := range ordered {
		if t.Index < 0 || t.Index >= c.grid.Count() {
			return nil, &TileIndexError{Index: t.Index, Count: c.grid.Count()}
		}
		if t.Image == nil {
			return nil, fmt.Errorf("tile %d has no image", t.Index)
		}
		if t.Image.Bounds().Dx() != c.grid.TileWidth || t.Image.Bounds().Dy() != c.grid.TileHeight {
			return nil, fmt.Errorf("tile %d is %dx%d, want %dx%d", t.Index,
				t.Image.Bounds().Dx(), t.Image.Bounds().Dy(), c.grid.TileWidth, c.grid.TileHeight)
		}
		seen[t.Index] = true
	}
	if len(seen) != expected {
		return nil, &IncompleteResultError{Expected: expected, Rendered: len(seen)}
	}

	canvas := imaging.New(c.grid.SuperWidth, c.grid.SuperHeight, color.NRGBA{})
	if sel.Sparse() {
		if base == nil {
			return nil, &ConfigError{Reason: "sparse rerun needs the base super-image to seed the canvas"}
		}
		canvas = imaging.Paste(canvas, base, image.Pt(0, 0))
	}

	for _, t := range ordered {
		img := t.Image
		if mask := c.masks.Mask(t.Mask); mask != nil {
			img = applyAlpha(img, mask)
		}
		canvas = imaging.Overlay(canvas, img, t.Crop.Min, 1.0)
	}

	// The tile union covers every pixel, so the output carries no
	// transparency.
	for i := 3; i < len(canvas.Pix); i += 4 {
		canvas.Pix[i] = 255
	}

	return canvas, nil
}

// applyAlpha returns a copy of the tile with the mask installed as its
// alpha channel
func applyAlpha(img *image.NRGBA, mask *image.Gray) *image.NRGBA {
	out := imaging.Clone(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.Pix[y*out.Stride+x*4+3] = mask.Pix[y*mask.Stride+x]
		}
	}
	return out
}
