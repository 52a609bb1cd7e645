package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/nowpaper/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the display daemon",
		Long:  `Polls the MPRIS media player and keeps the display up to date until interrupted.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd, cfgFile)
		},
	}

	rootCmd := &cobra.Command{
		Use:   "nowpaper",
		Short: "Show the currently playing track on an e-paper or framebuffer display",
		Long: `nowpaper reads the current track from an MPRIS media player over D-Bus and
draws title, artist, album and progress on a small display.

Without a subcommand it behaves like "nowpaper run".`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runCmd.RunE,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/nowpaper/config.json)")
	config.RegisterFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(runCmd, newInitConfigCmd(), newPreviewCmd(&cfgFile))
	return rootCmd
}

func newInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write an example configuration file",
		Long: `Writes the default configuration to path, or to ~/.config/nowpaper/config.json.
The format follows the file extension (.json, .toml or .yaml).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("cannot determine home directory: %w", err)
				}
				path = config.UserConfigPath(home)
			}

			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Example configuration written to %s\n", path)
			return nil
		},
	}
}

// loadConfig reads and validates the configuration for cmd
func loadConfig(cmd *cobra.Command, cfgFile string) (config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runDaemon starts the app and blocks until SIGINT or SIGTERM
func runDaemon(cmd *cobra.Command, cfgFile string) error {
	cfg, err := loadConfig(cmd, cfgFile)
	if err != nil {
		return err
	}

	app := fx.New(
		fx.Supply(cfg),
		AppOptions,
	)
	if err := app.Err(); err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startCtx, cancelStart := context.WithTimeout(ctx, app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}

	// Wait for interrupt signal
	<-ctx.Done()

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	return app.Stop(stopCtx)
}
