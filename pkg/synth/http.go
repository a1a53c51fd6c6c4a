package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

const defaultUpscaler = "R-ESRGAN 4x+"

// Client talks to a Stable Diffusion web API for tile synthesis and
// upscaling. It implements Synthesizer and Upscaler.
type Client struct {
	baseURL  string
	upscaler string
	client   *http.Client
}

// NewClient creates a new synthesis client for the given API base URL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		upscaler: defaultUpscaler,
		client:   &http.Client{Timeout: timeout},
	}
}

type img2imgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	DenoisingStrength float64  `json:"denoising_strength"`
	Seed              int64    `json:"seed"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Steps             int      `json:"steps"`
	CfgScale          float64  `json:"cfg_scale"`
}

type img2imgResponse struct {
	Images []string `json:"images"`
}

type upscaleRequest struct {
	Image           string  `json:"image"`
	UpscalingResize float64 `json:"upscaling_resize"`
	Upscaler1       string  `json:"upscaler_1"`
}

type upscaleResponse struct {
	Image string `json:"image"`
}

// Synthesize runs one img2img pass over the init tile
func (c *Client) Synthesize(ctx context.Context, req Request) (*image.NRGBA, error) {
	init, err := encodeImage(req.Init)
	if err != nil {
		return nil, err
	}

	body := img2imgRequest{
		InitImages:        []string{init},
		Prompt:            req.Prompt,
		DenoisingStrength: req.Strength,
		Seed:              int64(req.Seed),
		Width:             req.Width,
		Height:            req.Height,
		Steps:             req.Steps,
		CfgScale:          req.CfgScale,
	}

	var resp img2imgResponse
	if err := c.post(ctx, "/sdapi/v1/img2img", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Images) == 0 {
		return nil, fmt.Errorf("backend returned no images")
	}

	img, err := decodeImage(resp.Images[0])
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() != req.Width || img.Bounds().Dy() != req.Height {
		return nil, fmt.Errorf("backend returned %dx%d, want %dx%d",
			img.Bounds().Dx(), img.Bounds().Dy(), req.Width, req.Height)
	}

	return img, nil
}

// Upscale enlarges the image through the backend's upscaling endpoint
func (c *Client) Upscale(ctx context.Context, img *image.NRGBA, factor int) (*image.NRGBA, error) {
	encoded, err := encodeImage(img)
	if err != nil {
		return nil, err
	}

	body := upscaleRequest{
		Image:           encoded,
		UpscalingResize: float64(factor),
		Upscaler1:       c.upscaler,
	}

	var resp upscaleResponse
	if err := c.post(ctx, "/sdapi/v1/extra-single-image", body, &resp); err != nil {
		return nil, err
	}
	if resp.Image == "" {
		return nil, fmt.Errorf("backend returned no image")
	}

	out, err := decodeImage(resp.Image)
	if err != nil {
		return nil, err
	}
	wantW := img.Bounds().Dx() * factor
	wantH := img.Bounds().Dy() * factor
	if out.Bounds().Dx() != wantW || out.Bounds().Dy() != wantH {
		return nil, fmt.Errorf("backend returned %dx%d, want %dx%d",
			out.Bounds().Dx(), out.Bounds().Dy(), wantW, wantH)
	}

	return out, nil
}

// post sends a JSON request and decodes a JSON response
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// encodeImage serializes an image to base64 PNG as the web API expects
func encodeImage(img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("no init image")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// decodeImage reads a base64 PNG, tolerating a data URI prefix
func decodeImage(encoded string) (*image.NRGBA, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return imaging.Clone(img), nil
}
