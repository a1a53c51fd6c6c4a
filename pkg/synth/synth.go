package synth

import (
	"context"
	"image"
)

// Request describes one img2img pass over an init tile
type Request struct {
	Prompt   string
	Init     *image.NRGBA
	Width    int
	Height   int
	Strength float64
	Seed     uint32
	Steps    int
	CfgScale float64
}

// Synthesizer regenerates a tile from its init image
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*image.NRGBA, error)
}

// Upscaler enlarges an image by an integer factor
type Upscaler interface {
	Upscale(ctx context.Context, img *image.NRGBA, factor int) (*image.NRGBA, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface
type SynthesizerFunc func(ctx context.Context, req Request) (*image.NRGBA, error)

// Synthesize calls f
func (f SynthesizerFunc) Synthesize(ctx context.Context, req Request) (*image.NRGBA, error) {
	return f(ctx, req)
}

// UpscalerFunc adapts a function to the Upscaler interface
type UpscalerFunc func(ctx context.Context, img *image.NRGBA, factor int) (*image.NRGBA, error)

// Upscale calls f
func (f UpscalerFunc) Upscale(ctx context.Context, img *image.NRGBA, factor int) (*image.NRGBA, error) {
	return f(ctx, img, factor)
}
