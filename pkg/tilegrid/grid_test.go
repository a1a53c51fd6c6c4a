package tilegrid

import (
	"errors"
	"image"
	"testing"
)

func TestOverlapPixels(t *testing.T) {
	testCases := []struct {
		name       string
		overlap    float64
		tileW      int
		tileH      int
		wantX      int
		wantY      int
	}{
		{"quarter ratio square tile", 0.25, 512, 512, 128, 128},
		{"ratio scales each axis", 0.25, 512, 256, 128, 64},
		{"absolute pixels", 128, 512, 512, 128, 128},
		{"absolute applies to both axes", 64, 512, 256, 64, 64},
		{"one is absolute", 1.0, 512, 512, 1, 1},
		{"zero ratio", 0, 512, 512, 0, 0},
		{"negative degrades to zero", -0.5, 512, 512, 0, 0},
		{"fractional pixels round", 0.1, 515, 515, 52, 52},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ox, oy := OverlapPixels(tc.overlap, tc.tileW, tc.tileH)
			if ox != tc.wantX || oy != tc.wantY {
				t.Errorf("Expected overlap %dx%d, got %dx%d", tc.wantX, tc.wantY, ox, oy)
			}
		})
	}
}

func TestPlanRejectsInvalidConfigurations(t *testing.T) {
	testCases := []struct {
		name   string
		superW int
		superH int
		tileW  int
		tileH  int
		ox     int
		oy     int
	}{
		{"single tile covers everything", 512, 512, 512, 512, 128, 128},
		{"overlap equals tile width", 1024, 512, 512, 512, 512, 128},
		{"overlap above tile height", 512, 1024, 512, 512, 128, 600},
		{"super smaller than tile", 300, 1024, 512, 512, 128, 128},
		{"zero tile size", 1024, 1024, 0, 512, 0, 0},
		{"negative overlap", 1024, 512, 512, 512, -1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.superW, tc.superH, tc.tileW, tc.tileH, tc.ox, tc.oy)
			if err == nil {
				t.Fatal("Expected an error, got nil")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Errorf("Expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestPlanWideExample(t *testing.T) {
	g, err := Plan(1024, 512, 512, 512, 128, 128)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if g.Cols != 3 || g.Rows != 1 {
		t.Fatalf("Expected 3x1 grid, got %dx%d", g.Cols, g.Rows)
	}

	wantCrops := []image.Rectangle{
		image.Rect(0, 0, 512, 512),
		image.Rect(384, 0, 896, 512),
		image.Rect(512, 0, 1024, 512),
	}
	for i, want := range wantCrops {
		got := g.Tile(i).Crop
		if got != want {
			t.Errorf("Tile %d: expected crop %v, got %v", i, want, got)
		}
	}
}

func TestPlanColumnCountBoundary(t *testing.T) {
	// A super-image exactly one tile wide plans a single column; one pixel
	// more forces a second.
	g, err := Plan(512, 2048, 512, 512, 128, 128)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if g.Cols != 1 {
		t.Errorf("Expected 1 column for exact tile width, got %d", g.Cols)
	}

	g, err = Plan(513, 2048, 512, 512, 128, 128)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if g.Cols != 2 {
		t.Errorf("Expected 2 columns for one extra pixel, got %d", g.Cols)
	}
}

func TestPlanCropsCoverSuperImage(t *testing.T) {
	testCases := []struct {
		name   string
		superW int
		superH int
		tileW  int
		tileH  int
		ox     int
		oy     int
	}{
		{"square grid", 160, 160, 64, 64, 16, 16},
		{"wide strip", 1024, 512, 512, 512, 128, 128},
		{"tall strip", 512, 1024, 512, 512, 128, 128},
		{"no overlap", 128, 64, 64, 64, 0, 0},
		{"odd sizes", 333, 222, 100, 100, 25, 25},
		{"asymmetric overlap", 200, 150, 64, 64, 16, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Plan(tc.superW, tc.superH, tc.tileW, tc.tileH, tc.ox, tc.oy)
			if err != nil {
				t.Fatalf("Plan failed: %v", err)
			}

			covered := make([]bool, tc.superW*tc.superH)
			for _, tile := range g.Tiles() {
				if tile.Crop.Dx() != tc.tileW || tile.Crop.Dy() != tc.tileH {
					t.Fatalf("Tile %d: expected size %dx%d, got %dx%d",
						tile.Index, tc.tileW, tc.tileH, tile.Crop.Dx(), tile.Crop.Dy())
				}
				if tile.Crop.Min.X < 0 || tile.Crop.Min.Y < 0 ||
					tile.Crop.Max.X > tc.superW || tile.Crop.Max.Y > tc.superH {
					t.Fatalf("Tile %d: crop %v outside super-image %dx%d",
						tile.Index, tile.Crop, tc.superW, tc.superH)
				}
				for y := tile.Crop.Min.Y; y < tile.Crop.Max.Y; y++ {
					for x := tile.Crop.Min.X; x < tile.Crop.Max.X; x++ {
						covered[y*tc.superW+x] = true
					}
				}
			}

			for i, ok := range covered {
				if !ok {
					t.Fatalf("Pixel (%d,%d) not covered by any tile", i%tc.superW, i/tc.superW)
				}
			}
		})
	}
}

func TestPlanLastRowAndColumnFlush(t *testing.T) {
	g, err := Plan(333, 222, 100, 100, 25, 25)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	for _, tile := range g.Tiles() {
		if tile.Col == g.Cols-1 && tile.Crop.Max.X != g.SuperWidth {
			t.Errorf("Tile %d in last column: expected right edge %d, got %d",
				tile.Index, g.SuperWidth, tile.Crop.Max.X)
		}
		if tile.Row == g.Rows-1 && tile.Crop.Max.Y != g.SuperHeight {
			t.Errorf("Tile %d in last row: expected bottom edge %d, got %d",
				tile.Index, g.SuperHeight, tile.Crop.Max.Y)
		}
	}
}

func TestTileIndexRoundTrip(t *testing.T) {
	g, err := Plan(160, 160, 64, 64, 16, 16)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if g.Count() != 9 {
		t.Fatalf("Expected 9 tiles, got %d", g.Count())
	}

	for i := 0; i < g.Count(); i++ {
		tile := g.Tile(i)
		if tile.Index != i {
			t.Errorf("Tile(%d): expected index %d, got %d", i, i, tile.Index)
		}
		if tile.Row != i/g.Cols || tile.Col != i%g.Cols {
			t.Errorf("Tile(%d): expected position (%d,%d), got (%d,%d)",
				i, i/g.Cols, i%g.Cols, tile.Row, tile.Col)
		}
		if g.TileAt(tile.Row, tile.Col) != tile {
			t.Errorf("TileAt(%d,%d) disagrees with Tile(%d)", tile.Row, tile.Col, i)
		}
	}
}

func TestSelectionNormalization(t *testing.T) {
	sel := NewSelection([]int{5, 2, 2, 9, 1})
	want := []int{0, 1, 4, 8}

	got := sel.Indices()
	if len(got) != len(want) {
		t.Fatalf("Expected %d indices, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Index %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	if !sel.Sparse() {
		t.Error("Expected a sparse selection")
	}
	if NewSelection(nil).Sparse() {
		t.Error("Expected empty input to select the full grid")
	}
}

func TestSelectionValidate(t *testing.T) {
	g, err := Plan(160, 160, 64, 64, 16, 16)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	if err := NewSelection([]int{1, 9}).Validate(g); err != nil {
		t.Errorf("Expected indices 1..9 to validate on a 9-tile grid, got %v", err)
	}

	err = NewSelection([]int{10}).Validate(g)
	if err == nil {
		t.Fatal("Expected an error for index beyond the grid, got nil")
	}
	var idxErr *TileIndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("Expected TileIndexError, got %T: %v", err, err)
	}
	if idxErr.Index != 9 || idxErr.Count != 9 {
		t.Errorf("Expected index 9 of 9 in error, got index %d of %d", idxErr.Index, idxErr.Count)
	}
}
