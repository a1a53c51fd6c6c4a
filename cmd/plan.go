package cmd

import (
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/embiggen/internal/embiggen"
	"github.com/kiesman99/embiggen/pkg/tilegrid"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the tile grid a run would use without synthesizing",
	Long: `Compute the tile grid, blend masks and seed sequence for a run and
print them without calling the synthesis backend.

Useful for checking how many tiles a run will cost before paying for it,
and for finding the tile numbers to pass to --tiles on a rerun.

Examples:
  # Plan a 2x upscale of a 1024x768 source
  embiggen plan --width 1024 --height 768

  # Plan from the init image itself
  embiggen plan --init photo.png --scale 4

  # See which seeds a sparse rerun of tiles 2 and 5 would use
  embiggen plan --width 1024 --height 768 --seed 42 --tiles 2,5`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)

	// Source dimensions
	planCmd.Flags().StringP("init", "i", "", "init image to read dimensions from")
	planCmd.Flags().Int("width", 0, "source width in pixels")
	planCmd.Flags().Int("height", 0, "source height in pixels")

	// Geometry options
	planCmd.Flags().Float64P("scale", "s", 2.0, "scaling factor for the output size")
	planCmd.Flags().Int("tile-width", 512, "tile width in pixels")
	planCmd.Flags().Int("tile-height", 512, "tile height in pixels")
	planCmd.Flags().Float64("overlap", 0.25, "tile overlap, a ratio below 1 or absolute pixels from 1 up")
	planCmd.Flags().IntSlice("tiles", []int{}, "1-based tile numbers for a sparse rerun")
	planCmd.Flags().Int64("seed", 0, "base seed for the first tile")

	// Bind flags to viper
	viper.BindPFlag("plan.init", planCmd.Flags().Lookup("init"))
	viper.BindPFlag("plan.width", planCmd.Flags().Lookup("width"))
	viper.BindPFlag("plan.height", planCmd.Flags().Lookup("height"))
	viper.BindPFlag("plan.scale", planCmd.Flags().Lookup("scale"))
	viper.BindPFlag("plan.tile-width", planCmd.Flags().Lookup("tile-width"))
	viper.BindPFlag("plan.tile-height", planCmd.Flags().Lookup("tile-height"))
	viper.BindPFlag("plan.overlap", planCmd.Flags().Lookup("overlap"))
	viper.BindPFlag("plan.tiles", planCmd.Flags().Lookup("tiles"))
	viper.BindPFlag("plan.seed", planCmd.Flags().Lookup("seed"))
}

func runPlan(cmd *cobra.Command, args []string) error {
	width := viper.GetInt("plan.width")
	height := viper.GetInt("plan.height")

	if initPath := viper.GetString("plan.init"); initPath != "" {
		src, err := imaging.Open(initPath)
		if err != nil {
			return fmt.Errorf("opening init image: %w", err)
		}
		bounds := src.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
	}

	if width <= 0 || height <= 0 {
		return fmt.Errorf("source dimensions are required (use --width and --height, or --init)")
	}

	opts := embiggen.Options{
		Scale:      viper.GetFloat64("plan.scale"),
		TileWidth:  viper.GetInt("plan.tile-width"),
		TileHeight: viper.GetInt("plan.tile-height"),
		Overlap:    viper.GetFloat64("plan.overlap"),
		Tiles:      viper.GetIntSlice("plan.tiles"),
		Seed:       uint32(viper.GetInt64("plan.seed")),
	}

	engine := embiggen.New(nil, nil, nil)
	grid, sel, err := engine.PlanFor(width, height, opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Source: %dx%d\n", width, height)
	fmt.Fprintf(out, "Super-Image: %dx%d\n", grid.SuperWidth, grid.SuperHeight)
	fmt.Fprintf(out, "Tile: %dx%d, overlap x:%d y:%d\n", grid.TileWidth, grid.TileHeight, grid.OverlapX, grid.OverlapY)
	if sel.Sparse() {
		fmt.Fprintf(out, "Grid: %dx%d (%d of %d tiles selected)\n", grid.Cols, grid.Rows, sel.Count(grid), grid.Count())
	} else {
		fmt.Fprintf(out, "Grid: %dx%d (%d tiles)\n", grid.Cols, grid.Rows, grid.Count())
	}
	fmt.Fprintln(out)

	seeds := embiggen.SeedSequence(opts.Seed, grid.Count())

	fmt.Fprintf(out, "%4s  %3s  %3s  %-24s  %-18s  %s\n", "TILE", "ROW", "COL", "CROP", "MASK", "SEED")
	for _, spec := range grid.Tiles() {
		if !sel.Contains(spec.Index) {
			continue
		}
		mask := tilegrid.SelectMask(grid, spec, sel)
		fmt.Fprintf(out, "%4d  %3d  %3d  %-24s  %-18s  %d\n",
			spec.Index+1, spec.Row, spec.Col, spec.Crop.String(), mask.String(), seeds[spec.Index])
	}

	return nil
}
