package cmd

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/embiggen/internal/embiggen"
	"github.com/kiesman99/embiggen/pkg/synth"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "embiggen",
	Short: "Upscale an image by regenerating it tile by tile",
	Long: `embiggen scales an image up beyond its native resolution by cutting it
into overlapping tiles, regenerating every tile through an img2img
synthesis backend, and blending the results back together with gradient
masks so the seams disappear.

The synthesis backend is any server speaking the AUTOMATIC1111 sdapi
protocol, reachable under --synth-url.

Examples:
  # Double the size of photo.png
  embiggen --init photo.png --prompt "a detailed oil painting" -o big.png

  # Four times the size with 512px tiles and a quarter overlap
  embiggen -i photo.png -p "a detailed oil painting" --scale 4 --overlap 0.25 -o big.png

  # Regenerate only tiles 2 and 5 of an earlier run with the same seed
  embiggen -i photo.png -p "a detailed oil painting" --seed 42 --tiles 2,5 -o big.png

  # Show the tile grid without synthesizing anything
  embiggen plan --width 1024 --height 768

  # Start the HTTP API
  embiggen serve --port 8080`,
	// If no init image is specified, show help
	RunE: func(cmd *cobra.Command, args []string) error {
		if viper.GetString("init") == "" {
			return cmd.Help()
		}
		return runEmbiggen(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.embiggen.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log every tile pass")

	// Input and output
	rootCmd.Flags().StringP("init", "i", "", "init image to embiggen (required)")
	rootCmd.Flags().StringP("output", "o", "embiggened.png", "output file")

	// Generation options
	rootCmd.Flags().StringP("prompt", "p", "", "prompt for every tile pass (required)")
	rootCmd.Flags().Float64P("strength", "f", 0.3, "denoising strength per tile pass")
	rootCmd.Flags().Int64("seed", -1, "base seed for the first tile (-1 picks a random seed)")
	rootCmd.Flags().Int("steps", 30, "sampling steps per tile")
	rootCmd.Flags().Float64("cfg-scale", 7.5, "classifier-free guidance scale")
	rootCmd.Flags().IntP("iterations", "n", 1, "number of runs, each after the first with a fresh seed")

	// Geometry options
	rootCmd.Flags().Float64P("scale", "s", 2.0, "scaling factor for the output size")
	rootCmd.Flags().Int("tile-width", 512, "tile width in pixels")
	rootCmd.Flags().Int("tile-height", 512, "tile height in pixels")
	rootCmd.Flags().Float64("overlap", 0.25, "tile overlap, a ratio below 1 or absolute pixels from 1 up")
	rootCmd.Flags().Float64("upscale-strength", 0.75, "strength of the upscaler pass before tiling, 0 skips it")
	rootCmd.Flags().IntSlice("tiles", []int{}, "1-based tile numbers for a sparse rerun")

	// Backend options
	rootCmd.Flags().String("synth-url", "http://127.0.0.1:7860", "base URL of the synthesis backend")
	rootCmd.Flags().Duration("timeout", 0, "per-request timeout for backend calls (0 means none)")

	// Bind flags to viper for root command
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("init", rootCmd.Flags().Lookup("init"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("prompt", rootCmd.Flags().Lookup("prompt"))
	viper.BindPFlag("strength", rootCmd.Flags().Lookup("strength"))
	viper.BindPFlag("seed", rootCmd.Flags().Lookup("seed"))
	viper.BindPFlag("steps", rootCmd.Flags().Lookup("steps"))
	viper.BindPFlag("cfg-scale", rootCmd.Flags().Lookup("cfg-scale"))
	viper.BindPFlag("iterations", rootCmd.Flags().Lookup("iterations"))
	viper.BindPFlag("scale", rootCmd.Flags().Lookup("scale"))
	viper.BindPFlag("tile-width", rootCmd.Flags().Lookup("tile-width"))
	viper.BindPFlag("tile-height", rootCmd.Flags().Lookup("tile-height"))
	viper.BindPFlag("overlap", rootCmd.Flags().Lookup("overlap"))
	viper.BindPFlag("upscale-strength", rootCmd.Flags().Lookup("upscale-strength"))
	viper.BindPFlag("tiles", rootCmd.Flags().Lookup("tiles"))
	viper.BindPFlag("synth-url", rootCmd.Flags().Lookup("synth-url"))
	viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".embiggen" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".embiggen")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runEmbiggen(cmd *cobra.Command, args []string) error {
	// Validate required parameters
	initPath := viper.GetString("init")
	prompt := viper.GetString("prompt")

	if prompt == "" {
		return fmt.Errorf("a prompt is required (use --prompt)")
	}

	src, err := imaging.Open(initPath)
	if err != nil {
		return fmt.Errorf("opening init image: %w", err)
	}

	client := synth.NewClient(viper.GetString("synth-url"), viper.GetDuration("timeout"))
	engine := embiggen.New(client, client, newLogger(viper.GetBool("verbose")))

	opts := embiggen.Options{
		Prompt:          prompt,
		Strength:        viper.GetFloat64("strength"),
		Steps:           viper.GetInt("steps"),
		CfgScale:        viper.GetFloat64("cfg-scale"),
		Scale:           viper.GetFloat64("scale"),
		TileWidth:       viper.GetInt("tile-width"),
		TileHeight:      viper.GetInt("tile-height"),
		Overlap:         viper.GetFloat64("overlap"),
		UpscaleStrength: viper.GetFloat64("upscale-strength"),
		Tiles:           viper.GetIntSlice("tiles"),
	}

	seed := viper.GetInt64("seed")
	if seed < 0 {
		opts.Seed = rand.Uint32()
	} else {
		opts.Seed = uint32(seed)
	}

	iterations := viper.GetInt("iterations")
	if iterations < 1 {
		iterations = 1
	}
	output := viper.GetString("output")

	for i := 0; i < iterations; i++ {
		if i > 0 {
			opts.Seed = rand.Uint32()
		}

		result, err := engine.Run(cmd.Context(), src, opts)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "==Super-Image Size: %dx%d\n", result.Grid.SuperWidth, result.Grid.SuperHeight)
		fmt.Fprintf(os.Stderr, "==Tile Grid: %dx%d (%d tiles, %d regenerated)\n",
			result.Grid.Cols, result.Grid.Rows, result.Grid.Count(), len(result.Seeds))
		fmt.Fprintf(os.Stderr, "==Overlap: x:%d y:%d\n", result.Grid.OverlapX, result.Grid.OverlapY)
		fmt.Fprintf(os.Stderr, "==Base Seed: %d\n", opts.Seed)

		path := iterationPath(output, i)
		if err := imaging.Save(result.Image, path); err != nil {
			return fmt.Errorf("saving result: %w", err)
		}

		fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	}

	return nil
}

// newLogger builds the CLI logger the engine reports through
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// iterationPath numbers outputs after the first run: out.png, out.1.png, ...
func iterationPath(output string, iteration int) string {
	if iteration == 0 {
		return output
	}
	ext := filepath.Ext(output)
	return fmt.Sprintf("%s.%d%s", strings.TrimSuffix(output, ext), iteration, ext)
}
