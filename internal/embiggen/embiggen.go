package embiggen

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"

	"github.com/kiesman99/embiggen/pkg/synth"
	"github.com/kiesman99/embiggen/pkg/tilegrid"
)

// Default fallbacks for out-of-range settings
const (
	DefaultScale           = 2.0
	DefaultUpscaleStrength = 0.75
	DefaultOverlap         = 0.25
)

// seedWrapLimit keeps per-tile seeds inside the backend's 32-bit range
const seedWrapLimit = math.MaxUint32 - 1

// Options contains all embiggen parameters
type Options struct {
	// Prompt and sampling settings passed through to every tile pass
	Prompt   string
	Steps    int
	CfgScale float64
	Strength float64
	Seed     uint32

	// Geometry: scaling factor for the super-image, the tile size each
	// img2img pass runs at, and the overlap between neighboring tiles
	// (a ratio below 1, an absolute pixel count from 1 up)
	Scale      float64
	TileWidth  int
	TileHeight int
	Overlap    float64

	// UpscaleStrength gates the dedicated upscaler pass before tiling;
	// zero leaves the plain resize to do all the work
	UpscaleStrength float64

	// Tiles selects a sparse rerun by 1-based tile numbers; empty
	// regenerates the full grid
	Tiles []int
}

// Result contains the embiggened image and how it was produced
type Result struct {
	Image *image.NRGBA
	Grid  *tilegrid.Grid
	Seeds []uint32 // seed used per rendered tile, in tile order
}

// TileError reports a failed synthesis for one tile
type TileError struct {
	Tile  int
	Seed  uint32
	Total int
	Err   error
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile %d of %d (seed %d): %v", e.Tile+1, e.Total, e.Seed, e.Err)
}

func (e *TileError) Unwrap() error { return e.Err }

// Embiggener runs the tile pipeline over a synthesis backend
type Embiggener struct {
	synth    synth.Synthesizer
	upscaler synth.Upscaler
	logger   *slog.Logger
}

// New creates an embiggener. The upscaler may be nil when no dedicated
// upscaling backend is available; the logger may be nil for silence.
func New(s synth.Synthesizer, u synth.Upscaler, logger *slog.Logger) *Embiggener {
	if logger == nil {
		logger = slog.New(nopHandler{})
	}
	return &Embiggener{synth: s, upscaler: u, logger: logger}
}

// Run embiggens the source image: scale it up to the target size, cut the
// tile grid, regenerate every selected tile through img2img and blend the
// results back together.
func (e *Embiggener) Run(ctx context.Context, src image.Image, opts Options) (*Result, error) {
	if src == nil {
		return nil, fmt.Errorf("no source image")
	}
	opts = e.normalize(opts)

	// Work on an opaque copy; the tile masks control all transparency
	// from here on.
	super := flatten(src)

	if opts.Scale != 1.0 {
		var err error
		super, err = e.upscale(ctx, super, opts)
		if err != nil {
			return nil, err
		}
	}

	ox, oy := tilegrid.OverlapPixels(opts.Overlap, opts.TileWidth, opts.TileHeight)
	grid, err := tilegrid.Plan(super.Bounds().Dx(), super.Bounds().Dy(),
		opts.TileWidth, opts.TileHeight, ox, oy)
	if err != nil {
		return nil, err
	}

	sel := tilegrid.NewSelection(opts.Tiles)
	if err := sel.Validate(grid); err != nil {
		return nil, err
	}

	if sel.Sparse() {
		e.logger.Info("making tiles", "count", sel.Count(grid))
	} else {
		e.logger.Info("making tiles", "count", grid.Count(), "cols", grid.Cols, "rows", grid.Rows)
	}

	rendered := make([]tilegrid.RenderedTile, 0, sel.Count(grid))
	seeds := make([]uint32, 0, sel.Count(grid))
	seed := opts.Seed

	for _, spec := range grid.Tiles() {
		// The seed advances for every grid position, including skipped
		// ones, so a sparse rerun reproduces the tiles it replaces.
		if spec.Index != 0 {
			seed = nextSeed(seed)
		}
		if !sel.Contains(spec.Index) {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		e.logger.Debug("synthesizing tile", "tile", spec.Index+1, "total", grid.Count(), "seed", seed)

		img, err := e.synth.Synthesize(ctx, synth.Request{
			Prompt:   opts.Prompt,
			Init:     imaging.Crop(super, spec.Crop),
			Width:    opts.TileWidth,
			Height:   opts.TileHeight,
			Strength: opts.Strength,
			Seed:     seed,
			Steps:    opts.Steps,
			CfgScale: opts.CfgScale,
		})
		if err != nil {
			return nil, &TileError{Tile: spec.Index, Seed: seed, Total: grid.Count(), Err: err}
		}

		rendered = append(rendered, tilegrid.RenderedTile{
			TileSpec: spec,
			Image:    img,
			Mask:     tilegrid.SelectMask(grid, spec, sel),
			Seed:     seed,
		})
		seeds = append(seeds, seed)
	}

	masks := tilegrid.BuildMasks(opts.TileWidth, opts.TileHeight, ox, oy)
	out, err := tilegrid.NewCompositor(grid, masks).Composite(super, sel, rendered)
	if err != nil {
		return nil, err
	}

	return &Result{Image: out, Grid: grid, Seeds: seeds}, nil
}

// PlanFor computes the tile grid and selection a run with these options
// would use for a source of the given size, without synthesizing anything
func (e *Embiggener) PlanFor(srcW, srcH int, opts Options) (*tilegrid.Grid, tilegrid.Selection, error) {
	opts = e.normalize(opts)

	superW, superH := srcW, srcH
	if opts.Scale != 1.0 {
		superW = int(math.Round(float64(srcW) * opts.Scale))
		superH = int(math.Round(float64(srcH) * opts.Scale))
	}

	ox, oy := tilegrid.OverlapPixels(opts.Overlap, opts.TileWidth, opts.TileHeight)
	grid, err := tilegrid.Plan(superW, superH, opts.TileWidth, opts.TileHeight, ox, oy)
	if err != nil {
		return nil, tilegrid.Selection{}, err
	}

	sel := tilegrid.NewSelection(opts.Tiles)
	if err := sel.Validate(grid); err != nil {
		return nil, tilegrid.Selection{}, err
	}

	return grid, sel, nil
}

// normalize applies the documented fallbacks for out-of-range settings
func (e *Embiggener) normalize(opts Options) Options {
	if opts.Scale < 0 {
		opts.Scale = 1.0
		e.logger.Warn("scaling factor cannot be negative, fell back to the default of 1.0")
	}
	if opts.UpscaleStrength < 0 || opts.UpscaleStrength > 1 {
		opts.UpscaleStrength = DefaultUpscaleStrength
		e.logger.Warn("upscaling strength must be between 0 and 1, fell back to the default of 0.75")
	}
	if opts.Overlap < 0 {
		opts.Overlap = DefaultOverlap
		e.logger.Warn("overlap must be a ratio between 0 and 1 or a pixel count, fell back to the default of 0.25")
	}
	if opts.Strength >= 0.5 {
		e.logger.Warn("high strength may produce mirror motifs between tiles, try values between 0.35-0.45",
			"strength", opts.Strength)
	}
	return opts
}

// upscale grows the image to the scaled target size, through the
// dedicated upscaler first when its strength allows
func (e *Embiggener) upscale(ctx context.Context, img *image.NRGBA, opts Options) (*image.NRGBA, error) {
	targetW := int(math.Round(float64(img.Bounds().Dx()) * opts.Scale))
	targetH := int(math.Round(float64(img.Bounds().Dy()) * opts.Scale))

	if opts.UpscaleStrength > 0 && e.upscaler != nil {
		factor := 2
		if opts.Scale > 2 {
			factor = 4
		}
		e.logger.Info("upscaling init image before cutting tiles",
			"factor", factor, "strength", opts.UpscaleStrength)
		up, err := e.upscaler.Upscale(ctx, img, factor)
		if err != nil {
			return nil, fmt.Errorf("upscaling init image: %w", err)
		}
		img = up
	}

	// Resize to the exact target size regardless of the upscaler factor
	return imaging.Resize(img, targetW, targetH, imaging.Lanczos), nil
}

// nextSeed advances the per-tile seed, wrapping back to zero at the
// 32-bit limit
func nextSeed(seed uint32) uint32 {
	if seed < seedWrapLimit {
		return seed + 1
	}
	return 0
}

// SeedSequence returns the per-position seeds a run would thread through
// a grid of count tiles starting from base
func SeedSequence(base uint32, count int) []uint32 {
	seeds := make([]uint32, count)
	seed := base
	for i := 0; i < count; i++ {
		if i != 0 {
			seed = nextSeed(seed)
		}
		seeds[i] = seed
	}
	return seeds
}

// flatten copies the source into an opaque canvas, dropping any alpha it
// carried
func flatten(src image.Image) *image.NRGBA {
	out := imaging.Clone(src)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
	return out
}
