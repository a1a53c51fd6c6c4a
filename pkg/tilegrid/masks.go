package tilegrid

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

// maskRefSize is the side of the square reference grid the corner fades
// are sampled on before being resized to the overlap rectangle
const maskRefSize = 256

// MaskKind names one alpha layer from the fixed mask set
type MaskKind int

const (
	// MaskOpaque applies no fade at all
	MaskOpaque MaskKind = iota
	// MaskLeft fades in from the left edge
	MaskLeft
	// MaskTop fades in from the top edge
	MaskTop
	// MaskTopAsym is MaskTop plus the asymmetric corner at top-right
	MaskTopAsym
	// MaskLeftTop fades left and top with a radial corner between them
	MaskLeftTop
	// MaskLeftTopAsym is MaskLeftTop plus the asymmetric corner at top-right
	MaskLeftTopAsym
	// MaskRight fades out toward the right edge
	MaskRight
	// MaskBottom fades out toward the bottom edge
	MaskBottom
	// MaskTopBottom fades top and bottom
	MaskTopBottom
	// MaskLeftRight fades left and right
	MaskLeftRight
	// MaskRightBottomCorner fades right and bottom with a radial corner
	MaskRightBottomCorner
	// MaskLeftBottomCorner fades left and bottom with a radial corner
	MaskLeftBottomCorner
	// MaskRightTopCorner fades right and top with a radial corner
	MaskRightTopCorner
	// MaskAllButTop fades every edge except the top
	MaskAllButTop
	// MaskAllButLeft fades every edge except the left
	MaskAllButLeft
	// MaskAllButRight fades every edge except the right
	MaskAllButRight
	// MaskAllButBottom fades every edge except the bottom
	MaskAllButBottom
	// MaskAllSides fades all four edges
	MaskAllSides
)

var maskNames = map[MaskKind]string{
	MaskOpaque:            "opaque",
	MaskLeft:              "left",
	MaskTop:               "top",
	MaskTopAsym:           "top-asym",
	MaskLeftTop:           "left-top",
	MaskLeftTopAsym:       "left-top-asym",
	MaskRight:             "right",
	MaskBottom:            "bottom",
	MaskTopBottom:         "top-bottom",
	MaskLeftRight:         "left-right",
	MaskRightBottomCorner: "right-bottom-corner",
	MaskLeftBottomCorner:  "left-bottom-corner",
	MaskRightTopCorner:    "right-top-corner",
	MaskAllButTop:         "all-but-top",
	MaskAllButLeft:        "all-but-left",
	MaskAllButRight:       "all-but-right",
	MaskAllButBottom:      "all-but-bottom",
	MaskAllSides:          "all-sides",
}

func (k MaskKind) String() string {
	if name, ok := maskNames[k]; ok {
		return name
	}
	return fmt.Sprintf("maskkind(%d)", int(k))
}

// ParseMaskKind resolves a mask name as produced by MaskKind.String
func ParseMaskKind(name string) (MaskKind, error) {
	for kind, n := range maskNames {
		if n == name {
			return kind, nil
		}
	}
	return MaskOpaque, fmt.Errorf("unknown mask kind %q", name)
}

// MaskKinds returns every mask kind in declaration order
func MaskKinds() []MaskKind {
	kinds := make([]MaskKind, 0, len(maskNames))
	for k := MaskOpaque; k <= MaskAllSides; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// MaskSet is the full set of alpha layers for one tile/overlap geometry.
// Built once per run, never mutated afterwards; safe for concurrent reads.
type MaskSet struct {
	TileWidth  int
	TileHeight int
	OverlapX   int
	OverlapY   int

	masks map[MaskKind]*image.Gray
}

// BuildMasks constructs every mask at tile resolution for the given
// overlap band sizes
func BuildMasks(tileW, tileH, overlapX, overlapY int) *MaskSet {
	b := &maskBuilder{w: tileW, h: tileH, ox: overlapX, oy: overlapY}
	return &MaskSet{
		TileWidth:  tileW,
		TileHeight: tileH,
		OverlapX:   overlapX,
		OverlapY:   overlapY,
		masks:      b.build(),
	}
}

// Mask returns the alpha layer for a kind. MaskOpaque has no layer and
// returns nil; the compositor leaves such tiles fully opaque.
func (m *MaskSet) Mask(kind MaskKind) *image.Gray {
	return m.masks[kind]
}

// maskBuilder assembles the mask set from fade bands and corner patches.
// Bands are synthesized directly at band size; corners are sampled on the
// reference grid, rotated, and resized to the overlap rectangle.
type maskBuilder struct {
	w, h, ox, oy int

	left, top, right, bottom               *image.Gray
	cornerTL, cornerTR, cornerBL, cornerBR *image.Gray
	asymTR                                 *image.Gray
}

func (b *maskBuilder) build() map[MaskKind]*image.Gray {
	corner := cornerGradient()
	asym := asymCornerGradient()

	b.left = b.hBand(false)
	b.right = b.hBand(true)
	b.top = b.vBand(false)
	b.bottom = b.vBand(true)
	b.cornerTL = b.fitCorner(corner)
	b.cornerBL = b.fitCorner(rotateGray(corner, 1))
	b.cornerBR = b.fitCorner(rotateGray(corner, 2))
	b.cornerTR = b.fitCorner(rotateGray(corner, 3))
	b.asymTR = b.fitCorner(rotateGray(asym, 3))

	masks := make(map[MaskKind]*image.Gray, 17)

	l := b.base()
	pasteGray(l, b.left, 0, 0)
	masks[MaskLeft] = l

	t := b.base()
	pasteGray(t, b.top, 0, 0)
	masks[MaskTop] = t

	ltc := b.base()
	pasteGray(ltc, b.left, 0, 0)
	pasteGray(ltc, b.top, 0, 0)
	pasteGray(ltc, b.cornerTL, 0, 0)
	masks[MaskLeftTop] = ltc

	tac := cloneGray(t)
	pasteGray(tac, b.asymTR, b.w-b.ox, 0)
	masks[MaskTopAsym] = tac

	ltac := cloneGray(ltc)
	pasteGray(ltac, b.asymTR, b.w-b.ox, 0)
	masks[MaskLeftTopAsym] = ltac

	r := b.base()
	pasteGray(r, b.right, b.w-b.ox, 0)
	masks[MaskRight] = r

	bt := b.base()
	pasteGray(bt, b.bottom, 0, b.h-b.oy)
	masks[MaskBottom] = bt

	tb := b.base()
	pasteGray(tb, b.top, 0, 0)
	pasteGray(tb, b.bottom, 0, b.h-b.oy)
	masks[MaskTopBottom] = tb

	lr := b.base()
	pasteGray(lr, b.left, 0, 0)
	pasteGray(lr, b.right, b.w-b.ox, 0)
	masks[MaskLeftRight] = lr

	rbc := b.base()
	pasteGray(rbc, b.right, b.w-b.ox, 0)
	pasteGray(rbc, b.bottom, 0, b.h-b.oy)
	pasteGray(rbc, b.cornerBR, b.w-b.ox, b.h-b.oy)
	masks[MaskRightBottomCorner] = rbc

	lbc := b.base()
	pasteGray(lbc, b.left, 0, 0)
	pasteGray(lbc, b.bottom, 0, b.h-b.oy)
	pasteGray(lbc, b.cornerBL, 0, b.h-b.oy)
	masks[MaskLeftBottomCorner] = lbc

	rtc := b.base()
	pasteGray(rtc, b.right, b.w-b.ox, 0)
	pasteGray(rtc, b.top, 0, 0)
	pasteGray(rtc, b.cornerTR, b.w-b.ox, 0)
	masks[MaskRightTopCorner] = rtc

	abt := cloneGray(lbc)
	pasteGray(abt, b.right, b.w-b.ox, 0)
	pasteGray(abt, b.cornerBR, b.w-b.ox, b.h-b.oy)
	masks[MaskAllButTop] = abt

	abl := cloneGray(rtc)
	pasteGray(abl, b.bottom, 0, b.h-b.oy)
	pasteGray(abl, b.cornerBR, b.w-b.ox, b.h-b.oy)
	masks[MaskAllButLeft] = abl

	abr := cloneGray(lbc)
	pasteGray(abr, b.top, 0, 0)
	pasteGray(abr, b.cornerTL, 0, 0)
	masks[MaskAllButRight] = abr

	abb := cloneGray(rtc)
	pasteGray(abb, b.left, 0, 0)
	pasteGray(abb, b.cornerTL, 0, 0)
	masks[MaskAllButBottom] = abb

	aa := cloneGray(abt)
	pasteGray(aa, b.top, 0, 0)
	pasteGray(aa, b.cornerTL, 0, 0)
	pasteGray(aa, b.cornerTR, b.w-b.ox, 0)
	masks[MaskAllSides] = aa

	return masks
}

// base returns a fully opaque tile-sized layer
func (b *maskBuilder) base() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, b.w, b.h))
	for i := range g.Pix {
		g.Pix[i] = 255
	}
	return g
}

// hBand builds the vertical strip that fades horizontally across the
// overlap width. reversed=false rises from transparent at x=0 (a left
// edge), reversed=true falls to transparent at the far side (a right
// edge).
func (b *maskBuilder) hBand(reversed bool) *image.Gray {
	if b.ox <= 0 {
		return nil
	}
	band := image.NewGray(image.Rect(0, 0, b.ox, b.h))
	for x := 0; x < b.ox; x++ {
		v := rampValue(x, b.ox)
		if reversed {
			v = rampValue(b.ox-1-x, b.ox)
		}
		for y := 0; y < b.h; y++ {
			band.Pix[y*band.Stride+x] = v
		}
	}
	return band
}

// vBand is hBand turned on its side: a horizontal strip fading vertically
// across the overlap height
func (b *maskBuilder) vBand(reversed bool) *image.Gray {
	if b.oy <= 0 {
		return nil
	}
	band := image.NewGray(image.Rect(0, 0, b.w, b.oy))
	for y := 0; y < b.oy; y++ {
		v := rampValue(y, b.oy)
		if reversed {
			v = rampValue(b.oy-1-y, b.oy)
		}
		row := band.Pix[y*band.Stride : y*band.Stride+b.w]
		for x := range row {
			row[x] = v
		}
	}
	return band
}

// fitCorner resizes a reference-grid corner patch to the overlap rectangle
func (b *maskBuilder) fitCorner(ref *image.Gray) *image.Gray {
	if b.ox <= 0 || b.oy <= 0 {
		return nil
	}
	dst := image.NewGray(image.Rect(0, 0, b.ox, b.oy))
	draw.CatmullRom.Scale(dst, dst.Bounds(), ref, ref.Bounds(), draw.Src, nil)
	return dst
}

// rampValue is a linear 0..255 ramp over n samples
func rampValue(i, n int) uint8 {
	if n <= 1 {
		return 0
	}
	return uint8(math.Round(255 * float64(i) / float64(n-1)))
}

// cornerGradient samples the quarter-radial corner fade on the reference
// grid: opaque at the bottom-right, falling off with distance toward the
// top-left
func cornerGradient() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, maskRefSize, maskRefSize))
	for y := 0; y < maskRefSize; y++ {
		for x := 0; x < maskRefSize; x++ {
			d := math.Hypot(float64(maskRefSize-1-x), float64(maskRefSize-1-y))
			if d > 255 {
				d = 255
			}
			g.Pix[y*g.Stride+x] = uint8(math.Round(255 - d))
		}
	}
	return g
}

// asymCornerGradient samples the diagonal corner fade used where a
// neighboring tile's radial corner lands in the same overlap: transparent
// above the anti-diagonal, fully opaque along the right edge, ramping
// along the bottom
func asymCornerGradient() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, maskRefSize, maskRefSize))
	for y := 0; y < maskRefSize; y++ {
		for x := 0; x < maskRefSize; x++ {
			v := math.Round(float64(max(0, x-(maskRefSize-1-y))) * (255.0 / float64(max(1, y))))
			if v > 255 {
				v = 255
			}
			g.Pix[y*g.Stride+x] = uint8(v)
		}
	}
	return g
}

// rotateGray rotates a square gray image counter-clockwise by the given
// number of quarter turns
func rotateGray(src *image.Gray, quarters int) *image.Gray {
	n := src.Bounds().Dx()
	dst := image.NewGray(src.Bounds())
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			var v uint8
			switch quarters % 4 {
			case 1:
				v = src.Pix[x*src.Stride+(n-1-y)]
			case 2:
				v = src.Pix[(n-1-y)*src.Stride+(n-1-x)]
			case 3:
				v = src.Pix[(n-1-x)*src.Stride+y]
			default:
				v = src.Pix[y*src.Stride+x]
			}
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

// pasteGray copies src pixels into dst at the given offset, replacing
// whatever is there. A nil src is a no-op so zero-overlap geometries
// degrade to plain opaque masks.
func pasteGray(dst, src *image.Gray, atX, atY int) {
	if src == nil {
		return
	}
	sw, sh := src.Bounds().Dx(), src.Bounds().Dy()
	dw, dh := dst.Bounds().Dx(), dst.Bounds().Dy()
	for y := 0; y < sh; y++ {
		dy := atY + y
		if dy < 0 || dy >= dh {
			continue
		}
		for x := 0; x < sw; x++ {
			dx := atX + x
			if dx < 0 || dx >= dw {
				continue
			}
			dst.Pix[dy*dst.Stride+dx] = src.Pix[y*src.Stride+x]
		}
	}
}

func cloneGray(src *image.Gray) *image.Gray {
	dst := image.NewGray(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}
