package embiggen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/kiesman99/embiggen/pkg/synth"
	"github.com/kiesman99/embiggen/pkg/tilegrid"
)

func testPattern(w, h int) *image.NRGBA {
	img := imaging.New(w, h, color.NRGBA{A: 255})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			img.Pix[i] = uint8(x * 7 % 256)
			img.Pix[i+1] = uint8(y * 11 % 256)
			img.Pix[i+2] = uint8((x + y) % 256)
			img.Pix[i+3] = 255
		}
	}
	return img
}

// echoSynth returns each init tile unchanged and records the requests
func echoSynth(calls *[]synth.Request) synth.SynthesizerFunc {
	return func(ctx context.Context, req synth.Request) (*image.NRGBA, error) {
		*calls = append(*calls, req)
		return req.Init, nil
	}
}

func failingUpscaler(t *testing.T) synth.UpscalerFunc {
	return func(ctx context.Context, img *image.NRGBA, factor int) (*image.NRGBA, error) {
		t.Error("Expected the upscaler to stay untouched")
		return img, nil
	}
}

func baseOptions() Options {
	return Options{
		Prompt:     "a stone bridge",
		Steps:      20,
		CfgScale:   7.5,
		Strength:   0.3,
		Seed:       100,
		Scale:      1.0,
		TileWidth:  64,
		TileHeight: 64,
		Overlap:    16,
	}
}

func TestRunSeedSequence(t *testing.T) {
	var calls []synth.Request
	e := New(echoSynth(&calls), nil, nil)

	res, err := e.Run(context.Background(), testPattern(160, 160), baseOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(calls) != 9 {
		t.Fatalf("Expected 9 synthesis calls, got %d", len(calls))
	}
	for i, call := range calls {
		if call.Seed != uint32(100+i) {
			t.Errorf("Call %d: expected seed %d, got %d", i, 100+i, call.Seed)
		}
		if call.Width != 64 || call.Height != 64 {
			t.Errorf("Call %d: expected 64x64 request, got %dx%d", i, call.Width, call.Height)
		}
		if call.Prompt != "a stone bridge" {
			t.Errorf("Call %d: expected the prompt to pass through, got %q", i, call.Prompt)
		}
	}
	for i, seed := range res.Seeds {
		if seed != uint32(100+i) {
			t.Errorf("Result seed %d: expected %d, got %d", i, 100+i, seed)
		}
	}

	// The third tile sits flush against the right edge, so its init crop
	// starts at x=96.
	if r := calls[2].Init.NRGBAAt(0, 0).R; r != uint8(96*7%256) {
		t.Errorf("Expected the last column crop to start at x=96, got R=%d", r)
	}
}

func TestRunSparseAdvancesSkippedSeeds(t *testing.T) {
	var calls []synth.Request
	e := New(echoSynth(&calls), nil, nil)

	opts := baseOptions()
	opts.Tiles = []int{5, 9}

	res, err := e.Run(context.Background(), testPattern(160, 160), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(calls) != 2 {
		t.Fatalf("Expected 2 synthesis calls, got %d", len(calls))
	}
	if calls[0].Seed != 104 || calls[1].Seed != 108 {
		t.Errorf("Expected seeds 104 and 108 for tiles 5 and 9, got %d and %d",
			calls[0].Seed, calls[1].Seed)
	}
	if len(res.Seeds) != 2 || res.Seeds[0] != 104 || res.Seeds[1] != 108 {
		t.Errorf("Expected result seeds [104 108], got %v", res.Seeds)
	}
}

func TestSeedSequence(t *testing.T) {
	seeds := SeedSequence(7, 3)
	for i, want := range []uint32{7, 8, 9} {
		if seeds[i] != want {
			t.Errorf("Seed %d: expected %d, got %d", i, want, seeds[i])
		}
	}

	seeds = SeedSequence(math.MaxUint32-1, 4)
	for i, want := range []uint32{math.MaxUint32 - 1, 0, 1, 2} {
		if seeds[i] != want {
			t.Errorf("Seed %d after wrap: expected %d, got %d", i, want, seeds[i])
		}
	}
}

func TestRunEchoBackendReproducesSource(t *testing.T) {
	var calls []synth.Request
	e := New(echoSynth(&calls), nil, nil)

	src := testPattern(160, 160)
	res, err := e.Run(context.Background(), src, baseOptions())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Image.Bounds().Dx() != 160 || res.Image.Bounds().Dy() != 160 {
		t.Fatalf("Expected 160x160 output, got %dx%d",
			res.Image.Bounds().Dx(), res.Image.Bounds().Dy())
	}

	// A backend that returns every init tile unchanged must reassemble
	// the source, up to one count of blending rounding.
	for y := 0; y < 160; y++ {
		for x := 0; x < 160; x++ {
			want, got := src.NRGBAAt(x, y), res.Image.NRGBAAt(x, y)
			if absDiff(want.R, got.R) > 1 || absDiff(want.G, got.G) > 1 ||
				absDiff(want.B, got.B) > 1 || got.A != 255 {
				t.Fatalf("Pixel (%d,%d) drifted: %v -> %v", x, y, want, got)
			}
		}
	}
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRunNormalizesSettings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	var calls []synth.Request
	e := New(echoSynth(&calls), failingUpscaler(t), logger)

	opts := baseOptions()
	opts.Scale = -3
	opts.UpscaleStrength = 7
	opts.Overlap = -2
	opts.Strength = 0.6

	res, err := e.Run(context.Background(), testPattern(160, 160), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Scale falls back to 1.0 so the 160x160 source stays put, and the
	// overlap falls back to the quarter-tile ratio.
	if res.Grid.SuperWidth != 160 || res.Grid.SuperHeight != 160 {
		t.Errorf("Expected an unscaled 160x160 grid, got %dx%d",
			res.Grid.SuperWidth, res.Grid.SuperHeight)
	}
	if res.Grid.OverlapX != 16 || res.Grid.OverlapY != 16 {
		t.Errorf("Expected 16px overlap from the default ratio, got %dx%d",
			res.Grid.OverlapX, res.Grid.OverlapY)
	}

	logs := buf.String()
	for _, want := range []string{
		"fell back to the default of 1.0",
		"fell back to the default of 0.75",
		"fell back to the default of 0.25",
		"mirror motifs",
	} {
		if !strings.Contains(logs, want) {
			t.Errorf("Expected a warning containing %q, got logs:\n%s", want, logs)
		}
	}
}

func TestRunUpscalerFactor(t *testing.T) {
	testCases := []struct {
		name       string
		scale      float64
		wantFactor int
		wantSize   int
	}{
		{"double uses the 2x model", 2.0, 2, 128},
		{"above double uses the 4x model", 2.5, 4, 160},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls []synth.Request
			gotFactor := 0
			upscaler := synth.UpscalerFunc(func(ctx context.Context, img *image.NRGBA, factor int) (*image.NRGBA, error) {
				gotFactor = factor
				return imaging.Resize(img, img.Bounds().Dx()*factor, img.Bounds().Dy()*factor, imaging.NearestNeighbor), nil
			})
			e := New(echoSynth(&calls), upscaler, nil)

			opts := baseOptions()
			opts.Scale = tc.scale
			opts.UpscaleStrength = 0.75

			res, err := e.Run(context.Background(), testPattern(64, 64), opts)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if gotFactor != tc.wantFactor {
				t.Errorf("Expected upscaler factor %d, got %d", tc.wantFactor, gotFactor)
			}
			if res.Grid.SuperWidth != tc.wantSize || res.Grid.SuperHeight != tc.wantSize {
				t.Errorf("Expected a %dx%d super-image, got %dx%d",
					tc.wantSize, tc.wantSize, res.Grid.SuperWidth, res.Grid.SuperHeight)
			}
		})
	}
}

func TestRunSkipsUpscalerAtZeroStrength(t *testing.T) {
	var calls []synth.Request
	e := New(echoSynth(&calls), failingUpscaler(t), nil)

	opts := baseOptions()
	opts.Scale = 2.0
	opts.UpscaleStrength = 0

	res, err := e.Run(context.Background(), testPattern(64, 64), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Grid.SuperWidth != 128 || res.Grid.SuperHeight != 128 {
		t.Errorf("Expected the plain resize to reach 128x128, got %dx%d",
			res.Grid.SuperWidth, res.Grid.SuperHeight)
	}
}

func TestRunSynthesisFailure(t *testing.T) {
	backendErr := errors.New("CUDA out of memory")
	count := 0
	s := synth.SynthesizerFunc(func(ctx context.Context, req synth.Request) (*image.NRGBA, error) {
		count++
		if count == 4 {
			return nil, backendErr
		}
		return req.Init, nil
	})

	_, err := New(s, nil, nil).Run(context.Background(), testPattern(160, 160), baseOptions())
	if err == nil {
		t.Fatal("Expected an error, got nil")
	}

	var tileErr *TileError
	if !errors.As(err, &tileErr) {
		t.Fatalf("Expected TileError, got %T: %v", err, err)
	}
	if tileErr.Tile != 3 || tileErr.Seed != 103 || tileErr.Total != 9 {
		t.Errorf("Expected tile 3 seed 103 of 9, got tile %d seed %d of %d",
			tileErr.Tile, tileErr.Seed, tileErr.Total)
	}
	if !errors.Is(err, backendErr) {
		t.Error("Expected the backend error to stay in the chain")
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	count := 0
	s := synth.SynthesizerFunc(func(_ context.Context, req synth.Request) (*image.NRGBA, error) {
		count++
		cancel()
		return req.Init, nil
	})

	_, err := New(s, nil, nil).Run(ctx, testPattern(160, 160), baseOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if count != 1 {
		t.Errorf("Expected synthesis to stop after 1 call, got %d", count)
	}
}

func TestRunRejectsBadSelection(t *testing.T) {
	var calls []synth.Request
	opts := baseOptions()
	opts.Tiles = []int{50}

	_, err := New(echoSynth(&calls), nil, nil).Run(context.Background(), testPattern(160, 160), opts)
	var idxErr *tilegrid.TileIndexError
	if !errors.As(err, &idxErr) {
		t.Fatalf("Expected TileIndexError, got %T: %v", err, err)
	}
	if len(calls) != 0 {
		t.Errorf("Expected no synthesis calls, got %d", len(calls))
	}
}

func TestRunRejectsSingleTileSource(t *testing.T) {
	var calls []synth.Request
	_, err := New(echoSynth(&calls), nil, nil).Run(context.Background(), testPattern(64, 64), baseOptions())
	var cfgErr *tilegrid.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %T: %v", err, err)
	}
}

func TestPlanFor(t *testing.T) {
	e := New(nil, nil, nil)

	opts := Options{Scale: 2.0, TileWidth: 512, TileHeight: 512, Overlap: 0.25}
	grid, sel, err := e.PlanFor(512, 256, opts)
	if err != nil {
		t.Fatalf("PlanFor failed: %v", err)
	}

	if grid.SuperWidth != 1024 || grid.SuperHeight != 512 {
		t.Errorf("Expected a 1024x512 super-image, got %dx%d", grid.SuperWidth, grid.SuperHeight)
	}
	if grid.Cols != 3 || grid.Rows != 1 {
		t.Errorf("Expected a 3x1 grid, got %dx%d", grid.Cols, grid.Rows)
	}
	if grid.OverlapX != 128 || grid.OverlapY != 128 {
		t.Errorf("Expected 128px overlap, got %dx%d", grid.OverlapX, grid.OverlapY)
	}
	if sel.Sparse() {
		t.Error("Expected a full-grid selection")
	}

	opts.Tiles = []int{4}
	if _, _, err := e.PlanFor(512, 256, opts); err == nil {
		t.Error("Expected an error for a tile number beyond the grid, got nil")
	}
}

func TestTileErrorMessage(t *testing.T) {
	err := &TileError{Tile: 3, Seed: 103, Total: 9, Err: fmt.Errorf("boom")}
	want := "tile 4 of 9 (seed 103): boom"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}
