package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"

	"github.com/kiesman99/embiggen/internal/api"
	"github.com/kiesman99/embiggen/internal/embiggen"
	"github.com/kiesman99/embiggen/pkg/tilegrid"
)

// Defaults applied when a request leaves an option unset
const (
	defaultTileSize = 512
	defaultStrength = 0.3
	defaultSteps    = 30
	defaultCfgScale = 7.5
)

// Server implements the ServerInterface from the generated API
type Server struct {
	engine    *embiggen.Embiggener
	startTime time.Time
	version   string
}

// NewServer creates a new server instance around an embiggen engine
func NewServer(engine *embiggen.Embiggener, version string) *Server {
	return &Server{
		engine:    engine,
		startTime: time.Now(),
		version:   version,
	}
}

// GetHealth implements the health check endpoint
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	uptime := int(time.Since(s.startTime).Seconds())

	response := api.HealthResponse{
		Status:    api.Healthy,
		Timestamp: time.Now(),
		Uptime:    &uptime,
		Version:   &s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// CreatePlan implements the tile plan endpoint
func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	// Generate request ID for tracking
	requestID := generateRequestID()

	// Parse request body
	var req api.PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	// Validate request
	if err := s.validatePlanRequest(&req); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), &requestID)
		return
	}

	// Convert API request to engine options
	opts := s.convertToEngineOptions(req.Geometry, nil, req.Tiles)
	if req.Seed != nil {
		opts.Seed = uint32(*req.Seed)
	}

	grid, sel, err := s.engine.PlanFor(req.Width, req.Height, opts)
	if err != nil {
		s.handleEmbiggenError(w, err, &requestID)
		return
	}

	response := buildPlanResponse(grid, sel, opts.Seed)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding plan response: %v", err)
	}
}

// CreateEmbiggenedImage implements the main embiggen endpoint
func (s *Server) CreateEmbiggenedImage(w http.ResponseWriter, r *http.Request) {
	// Generate request ID for tracking
	requestID := generateRequestID()

	// Parse request body
	var req api.EmbiggenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", &requestID, nil)
		return
	}

	// Validate request
	if err := s.validateEmbiggenRequest(&req); err != nil {
		s.writeValidationErrorResponse(w, err.Error(), &requestID)
		return
	}

	src, err := imaging.Decode(bytes.NewReader(req.Image))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_IMAGE",
			fmt.Sprintf("Cannot decode init image: %v", err), &requestID, nil)
		return
	}

	// Convert API request to engine options
	opts := s.convertToEngineOptions(req.Geometry, req.Generation, req.Tiles)
	opts.Prompt = req.Prompt

	// Run the tile pipeline
	result, err := s.engine.Run(r.Context(), src, opts)
	if err != nil {
		s.handleEmbiggenError(w, err, &requestID)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, result.Image, imaging.PNG); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "ENCODING_ERROR",
			"Failed to encode result image", &requestID, nil)
		return
	}

	// Set additional headers
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))

	// Write image data
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// GetMask implements the mask rendering endpoint
func (s *Server) GetMask(w http.ResponseWriter, r *http.Request, kind string, params api.GetMaskParams) {
	requestID := generateRequestID()

	maskKind, err := tilegrid.ParseMaskKind(kind)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "UNKNOWN_MASK",
			err.Error(), &requestID, nil)
		return
	}

	if params.Width <= 0 || params.Height <= 0 {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_GEOMETRY",
			"width and height must be positive", &requestID, nil)
		return
	}

	ox, oy := tilegrid.OverlapPixels(embiggen.DefaultOverlap, params.Width, params.Height)
	if params.OverlapX != nil {
		ox = *params.OverlapX
	}
	if params.OverlapY != nil {
		oy = *params.OverlapY
	}
	if ox < 0 || oy < 0 || ox >= params.Width || oy >= params.Height {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_GEOMETRY",
			"overlap must be non-negative and smaller than the tile size", &requestID, nil)
		return
	}

	mask := tilegrid.BuildMasks(params.Width, params.Height, ox, oy).Mask(maskKind)
	if mask == nil {
		// Opaque masks carry no gradient layer; render them solid white.
		mask = image.NewGray(image.Rect(0, 0, params.Width, params.Height))
		for i := range mask.Pix {
			mask.Pix[i] = 255
		}
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, mask, imaging.PNG); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, "ENCODING_ERROR",
			"Failed to encode mask image", &requestID, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("Error writing response: %v", err)
	}
}

// validatePlanRequest validates the incoming plan request
func (s *Server) validatePlanRequest(req *api.PlanRequest) error {
	if req.Width <= 0 || req.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	if err := validateGeometry(req.Geometry); err != nil {
		return err
	}
	return validateTiles(req.Tiles)
}

// validateEmbiggenRequest validates the incoming embiggen request
func (s *Server) validateEmbiggenRequest(req *api.EmbiggenRequest) error {
	if len(req.Image) == 0 {
		return fmt.Errorf("image is required")
	}
	if req.Prompt == "" {
		return fmt.Errorf("prompt is required")
	}
	if err := validateGeometry(req.Geometry); err != nil {
		return err
	}
	if req.Generation != nil && req.Generation.Strength != nil {
		if *req.Generation.Strength < 0 || *req.Generation.Strength > 1 {
			return fmt.Errorf("strength must be between 0 and 1")
		}
	}
	return validateTiles(req.Tiles)
}

func validateGeometry(geo *api.GeometryOptions) error {
	if geo == nil {
		return nil
	}
	if geo.TileWidth != nil && *geo.TileWidth <= 0 {
		return fmt.Errorf("tile_width must be positive")
	}
	if geo.TileHeight != nil && *geo.TileHeight <= 0 {
		return fmt.Errorf("tile_height must be positive")
	}
	return nil
}

func validateTiles(tiles *[]int) error {
	if tiles == nil {
		return nil
	}
	for _, n := range *tiles {
		if n < 1 {
			return fmt.Errorf("tile numbers are 1-based, got %d", n)
		}
	}
	return nil
}

// convertToEngineOptions converts API options to engine options, filling
// in the documented defaults for everything left unset
func (s *Server) convertToEngineOptions(geo *api.GeometryOptions, gen *api.GenerationOptions, tiles *[]int) embiggen.Options {
	opts := embiggen.Options{
		Scale:           embiggen.DefaultScale,
		TileWidth:       defaultTileSize,
		TileHeight:      defaultTileSize,
		Overlap:         embiggen.DefaultOverlap,
		UpscaleStrength: embiggen.DefaultUpscaleStrength,
		Strength:        defaultStrength,
		Steps:           defaultSteps,
		CfgScale:        defaultCfgScale,
	}

	if geo != nil {
		if geo.Scale != nil {
			opts.Scale = float64(*geo.Scale)
		}
		if geo.TileWidth != nil {
			opts.TileWidth = *geo.TileWidth
		}
		if geo.TileHeight != nil {
			opts.TileHeight = *geo.TileHeight
		}
		if geo.Overlap != nil {
			opts.Overlap = float64(*geo.Overlap)
		}
		if geo.UpscaleStrength != nil {
			opts.UpscaleStrength = float64(*geo.UpscaleStrength)
		}
	}

	if gen != nil {
		if gen.Strength != nil {
			opts.Strength = float64(*gen.Strength)
		}
		if gen.Seed != nil {
			opts.Seed = uint32(*gen.Seed)
		}
		if gen.Steps != nil {
			opts.Steps = *gen.Steps
		}
		if gen.CfgScale != nil {
			opts.CfgScale = float64(*gen.CfgScale)
		}
	}

	if tiles != nil {
		opts.Tiles = *tiles
	}

	return opts
}

// buildPlanResponse converts a planned grid into the API response shape
func buildPlanResponse(grid *tilegrid.Grid, sel tilegrid.Selection, baseSeed uint32) api.PlanResponse {
	seeds := embiggen.SeedSequence(baseSeed, grid.Count())

	tiles := make([]api.TilePlan, 0, sel.Count(grid))
	for _, spec := range grid.Tiles() {
		if !sel.Contains(spec.Index) {
			continue
		}

		tiles = append(tiles, api.TilePlan{
			Tile: spec.Index + 1,
			Row:  spec.Row,
			Col:  spec.Col,
			Crop: struct {
				Height int `json:"height"`
				Width  int `json:"width"`
				X      int `json:"x"`
				Y      int `json:"y"`
			}{
				Height: spec.Crop.Dy(),
				Width:  spec.Crop.Dx(),
				X:      spec.Crop.Min.X,
				Y:      spec.Crop.Min.Y,
			},
			Mask: tilegrid.SelectMask(grid, spec, sel).String(),
			Seed: int64(seeds[spec.Index]),
		})
	}

	return api.PlanResponse{
		SuperWidth:  grid.SuperWidth,
		SuperHeight: grid.SuperHeight,
		TileWidth:   grid.TileWidth,
		TileHeight:  grid.TileHeight,
		OverlapX:    grid.OverlapX,
		OverlapY:    grid.OverlapY,
		Cols:        grid.Cols,
		Rows:        grid.Rows,
		TotalTiles:  grid.Count(),
		Sparse:      sel.Sparse(),
		Tiles:       tiles,
	}
}

// handleEmbiggenError maps errors from the engine onto API responses
func (s *Server) handleEmbiggenError(w http.ResponseWriter, err error, requestID *string) {
	// Check if the synthesis budget elapsed
	if errors.Is(err, context.DeadlineExceeded) {
		s.writeErrorResponse(w, http.StatusGatewayTimeout, "SYNTHESIS_TIMEOUT",
			"Synthesis backend requests timed out", requestID, nil)
		return
	}

	// Check if one tile failed to synthesize
	var tileErr *embiggen.TileError
	if errors.As(err, &tileErr) {
		tile := tileErr.Tile + 1
		seed := int64(tileErr.Seed)

		response := api.TileErrorResponse{
			Error:      "SYNTHESIS_ERROR",
			Message:    tileErr.Error(),
			Tile:       &tile,
			Seed:       &seed,
			TotalTiles: tileErr.Total,
			RequestId:  requestID,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Check if the compositor received the wrong tile count
	var incErr *tilegrid.IncompleteResultError
	if errors.As(err, &incErr) {
		response := api.TileErrorResponse{
			Error:         "INCOMPLETE_RESULT",
			Message:       incErr.Error(),
			ExpectedTiles: &incErr.Expected,
			RenderedTiles: &incErr.Rendered,
			TotalTiles:    incErr.Expected,
			RequestId:     requestID,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Configuration problems are the caller's fault
	var cfgErr *tilegrid.ConfigError
	var idxErr *tilegrid.TileIndexError
	if errors.As(err, &cfgErr) || errors.As(err, &idxErr) {
		s.writeErrorResponse(w, http.StatusBadRequest, "INVALID_CONFIGURATION",
			err.Error(), requestID, nil)
		return
	}

	// Generic internal server error
	s.writeErrorResponse(w, http.StatusInternalServerError, "INTERNAL_ERROR",
		"Internal server error", requestID, nil)
}

// writeErrorResponse writes a standard error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string, requestID *string, details map[string]interface{}) {
	response := api.ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestId: requestID,
	}

	if details != nil {
		response.Details = &details
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

// writeValidationErrorResponse writes a validation error response
func (s *Server) writeValidationErrorResponse(w http.ResponseWriter, message string, requestID *string) {
	response := api.ValidationErrorResponse{
		Error:     api.VALIDATIONERROR,
		Message:   message,
		RequestId: requestID,
		ValidationErrors: []struct {
			Code    *string `json:"code,omitempty"`
			Field   string  `json:"field"`
			Message string  `json:"message"`
		}{
			{
				Field:   "request",
				Message: message,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(response)
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return fmt.Sprintf("req_%d", time.Now().UnixNano())
}
