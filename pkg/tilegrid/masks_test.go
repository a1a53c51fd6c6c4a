package tilegrid

import (
	"image"
	"testing"
)

func TestBuildMasksDimensions(t *testing.T) {
	set := BuildMasks(64, 64, 16, 16)

	if set.Mask(MaskOpaque) != nil {
		t.Error("Expected no alpha layer for the opaque kind")
	}

	for _, kind := range MaskKinds() {
		if kind == MaskOpaque {
			continue
		}
		m := set.Mask(kind)
		if m == nil {
			t.Errorf("Mask %s: expected a layer, got nil", kind)
			continue
		}
		if m.Bounds().Dx() != 64 || m.Bounds().Dy() != 64 {
			t.Errorf("Mask %s: expected 64x64, got %dx%d", kind, m.Bounds().Dx(), m.Bounds().Dy())
		}
	}
}

func TestLeftMaskRamp(t *testing.T) {
	m := BuildMasks(64, 64, 16, 16).Mask(MaskLeft)

	for _, y := range []int{0, 31, 63} {
		if v := m.GrayAt(0, y).Y; v != 0 {
			t.Errorf("Expected transparent left edge at y=%d, got %d", y, v)
		}
		if v := m.GrayAt(15, y).Y; v != 255 {
			t.Errorf("Expected opaque band end at y=%d, got %d", y, v)
		}
		if v := m.GrayAt(16, y).Y; v != 255 {
			t.Errorf("Expected opaque interior at y=%d, got %d", y, v)
		}
		for x := 1; x < 16; x++ {
			if m.GrayAt(x, y).Y < m.GrayAt(x-1, y).Y {
				t.Errorf("Ramp not monotone at (%d,%d)", x, y)
			}
		}
	}
}

func TestOpposingMasksMirror(t *testing.T) {
	set := BuildMasks(64, 64, 16, 16)

	left, right := set.Mask(MaskLeft), set.Mask(MaskRight)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if left.GrayAt(x, y).Y != right.GrayAt(63-x, y).Y {
				t.Fatalf("Left/right masks differ at (%d,%d)", x, y)
			}
		}
	}

	top, bottom := set.Mask(MaskTop), set.Mask(MaskBottom)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if top.GrayAt(x, y).Y != bottom.GrayAt(x, 63-y).Y {
				t.Fatalf("Top/bottom masks differ at (%d,%d)", x, y)
			}
		}
	}
}

func TestCornerGradientSamples(t *testing.T) {
	g := cornerGradient()

	testCases := []struct {
		x, y int
		want uint8
	}{
		{255, 255, 255},
		{252, 251, 250},
		{0, 255, 0},
		{255, 0, 0},
		{0, 0, 0},
	}
	for _, tc := range testCases {
		if v := g.GrayAt(tc.x, tc.y).Y; v != tc.want {
			t.Errorf("Expected %d at (%d,%d), got %d", tc.want, tc.x, tc.y, v)
		}
	}
}

func TestAsymCornerGradientSamples(t *testing.T) {
	g := asymCornerGradient()

	testCases := []struct {
		name string
		x, y int
		want uint8
	}{
		{"above the anti-diagonal", 10, 10, 0},
		{"on the anti-diagonal", 155, 100, 0},
		{"right edge", 255, 100, 255},
		{"bottom row ramps with x", 100, 255, 100},
		{"bottom right", 255, 255, 255},
		{"top row", 255, 0, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if v := g.GrayAt(tc.x, tc.y).Y; v != tc.want {
				t.Errorf("Expected %d at (%d,%d), got %d", tc.want, tc.x, tc.y, v)
			}
		})
	}
}

func TestRotateGrayQuarterTurns(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 3))
	for i := range src.Pix {
		src.Pix[i] = uint8(i + 1)
	}

	testCases := []struct {
		quarters int
		want     []uint8
	}{
		{0, []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{1, []uint8{3, 6, 9, 2, 5, 8, 1, 4, 7}},
		{2, []uint8{9, 8, 7, 6, 5, 4, 3, 2, 1}},
		{3, []uint8{7, 4, 1, 8, 5, 2, 9, 6, 3}},
	}
	for _, tc := range testCases {
		got := rotateGray(src, tc.quarters)
		for i, want := range tc.want {
			if got.Pix[i] != want {
				t.Errorf("Rotation by %d quarters: expected %v, got %v", tc.quarters, tc.want, got.Pix)
				break
			}
		}
	}
}

func TestCornerOrientations(t *testing.T) {
	set := BuildMasks(64, 64, 16, 16)

	// Each radial corner is opaque where it meets the tile interior and
	// transparent toward the outer tile corner.
	testCases := []struct {
		kind       MaskKind
		inX, inY   int
		outX, outY int
	}{
		{MaskLeftTop, 15, 15, 0, 0},
		{MaskRightBottomCorner, 48, 48, 63, 63},
		{MaskRightTopCorner, 48, 15, 63, 0},
		{MaskLeftBottomCorner, 15, 48, 0, 63},
	}
	for _, tc := range testCases {
		m := set.Mask(tc.kind)
		if v := m.GrayAt(tc.inX, tc.inY).Y; v < 200 {
			t.Errorf("Mask %s: expected near-opaque inner corner at (%d,%d), got %d",
				tc.kind, tc.inX, tc.inY, v)
		}
		if v := m.GrayAt(tc.outX, tc.outY).Y; v > 50 {
			t.Errorf("Mask %s: expected near-transparent outer corner at (%d,%d), got %d",
				tc.kind, tc.outX, tc.outY, v)
		}
	}
}

func TestAsymCornerOverridesTopBand(t *testing.T) {
	set := BuildMasks(64, 64, 16, 16)

	// The top band alone is opaque along the bottom of the overlap row.
	// The asymmetric patch pasted over the top-right corner keeps that
	// bottom-left weight but fades out above its diagonal, so the next
	// tile's radial corner lands on a soft edge instead of a hard one.
	if v := set.Mask(MaskTop).GrayAt(48, 15).Y; v != 255 {
		t.Errorf("Expected opaque band bottom on plain top mask, got %d", v)
	}
	if v := set.Mask(MaskTopAsym).GrayAt(48, 15).Y; v < 200 {
		t.Errorf("Expected strong bottom-left corner weight on asymmetric top mask, got %d", v)
	}
	for _, kind := range []MaskKind{MaskTopAsym, MaskLeftTopAsym} {
		if v := set.Mask(kind).GrayAt(56, 0).Y; v > 80 {
			t.Errorf("Mask %s: expected faded upper corner patch, got %d", kind, v)
		}
		plain := set.Mask(MaskTop).GrayAt(56, 8).Y
		asym := set.Mask(kind).GrayAt(56, 8).Y
		if asym >= plain {
			t.Errorf("Mask %s: expected diagonal fade below the plain band value %d, got %d",
				kind, plain, asym)
		}
	}

	// Outside the corner patch the two variants agree.
	for _, y := range []int{0, 8, 15} {
		for x := 0; x < 48; x++ {
			plain := set.Mask(MaskTop).GrayAt(x, y).Y
			asym := set.Mask(MaskTopAsym).GrayAt(x, y).Y
			if plain != asym {
				t.Fatalf("Masks differ outside the corner patch at (%d,%d)", x, y)
			}
		}
	}
}

func TestZeroOverlapMasksAreOpaque(t *testing.T) {
	set := BuildMasks(64, 64, 0, 0)

	for _, kind := range []MaskKind{MaskLeft, MaskLeftTopAsym, MaskAllSides} {
		m := set.Mask(kind)
		if m == nil {
			t.Fatalf("Mask %s: expected a layer, got nil", kind)
		}
		for i, v := range m.Pix {
			if v != 255 {
				t.Fatalf("Mask %s: expected fully opaque layer, got %d at offset %d", kind, v, i)
			}
		}
	}
}

func TestParseMaskKindRoundTrip(t *testing.T) {
	for _, kind := range MaskKinds() {
		parsed, err := ParseMaskKind(kind.String())
		if err != nil {
			t.Errorf("ParseMaskKind(%q) failed: %v", kind.String(), err)
			continue
		}
		if parsed != kind {
			t.Errorf("Expected %d, got %d", kind, parsed)
		}
	}

	if _, err := ParseMaskKind("diagonal"); err == nil {
		t.Error("Expected an error for an unknown mask name, got nil")
	}
}
