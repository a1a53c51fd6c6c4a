package tilegrid

import "fmt"

// ConfigError represents invalid or contradictory sizing configuration.
// It is always raised before any synthesis work starts.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "tilegrid: " + e.Reason
}

// TileIndexError represents a sparse tile index outside the planned grid
type TileIndexError struct {
	Index int
	Count int
}

func (e *TileIndexError) Error() string {
	return fmt.Sprintf("tilegrid: tile index %d outside grid of %d tiles", e.Index, e.Count)
}

// IncompleteResultError represents a mismatch between the number of tiles
// the compositor expected and the number it received
type IncompleteResultError struct {
	Expected int
	Rendered int
}

func (e *IncompleteResultError) Error() string {
	return fmt.Sprintf("tilegrid: expected %d rendered tiles, got %d", e.Expected, e.Rendered)
}
