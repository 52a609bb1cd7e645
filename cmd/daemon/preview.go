package main

import (
	"context"
	"fmt"
	"time"

	"github.com/genricoloni/nowpaper/internal/config"
	"github.com/genricoloni/nowpaper/internal/display"
	"github.com/genricoloni/nowpaper/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scenario is one scripted display state; a nil snapshot is the idle view
type scenario struct {
	name string
	snap *domain.TrackSnapshot
}

func previewScenarios() []scenario {
	queen := domain.TrackSnapshot{
		Title:        "Bohemian Rhapsody",
		Artist:       "Queen",
		Album:        "A Night at the Opera",
		Status:       domain.StatusPlaying,
		LengthMicros: uint64(354 * time.Second / time.Microsecond),
	}

	middle := queen
	middle.PositionMicros = uint64(2 * time.Minute / time.Microsecond)

	paused := queen
	paused.Status = domain.StatusPaused
	paused.PositionMicros = uint64(3 * time.Minute / time.Microsecond)

	stopped := queen
	stopped.Status = domain.StatusStopped

	long := domain.TrackSnapshot{
		Title:          "Supercalifragilisticexpialidocious - A Very Long Song Title That Should Wrap",
		Artist:         "The Beatles, John Lennon, Paul McCartney, George Harrison, Ringo Starr",
		Album:          "Abbey Road (Deluxe Anniversary Edition)",
		Status:         domain.StatusPlaying,
		PositionMicros: uint64(45 * time.Second / time.Microsecond),
		LengthMicros:   uint64(210 * time.Second / time.Microsecond),
	}

	return []scenario{
		{name: "idle"},
		{name: "start", snap: &queen},
		{name: "middle", snap: &middle},
		{name: "paused", snap: &paused},
		{name: "long", snap: &long},
		{name: "stopped", snap: &stopped},
	}
}

func newPreviewCmd(cfgFile *string) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render sample screens to PNG files",
		Long: `Renders the idle screen and a set of sample tracks with the configured
geometry and fonts, writing one PNG per screen to the output directory.
No media player or display hardware is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *cfgFile)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.OutputDir = outDir
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			paths, err := renderPreviews(cmd.Context(), logger, cfg)
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "directory for the PNG files (default: output_dir)")
	return cmd
}

// renderPreviews writes every scenario through the virtual driver and
// returns the files written
func renderPreviews(ctx context.Context, logger *zap.Logger, cfg config.Config) ([]string, error) {
	renderer := newRenderer(logger, cfg)
	geom := cfg.Display().Geometry()

	var paths []string
	for _, sc := range previewScenarios() {
		drv := display.NewVirtualDriver(logger, geom, cfg.OutputDir, "preview_"+sc.name+".png")
		if err := drv.Init(ctx); err != nil {
			return paths, err
		}
		if err := drv.Present(ctx, renderer.Render(sc.snap)); err != nil {
			return paths, fmt.Errorf("scenario %s: %w", sc.name, err)
		}
		paths = append(paths, drv.Path())
	}
	return paths, nil
}
