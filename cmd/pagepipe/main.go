package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/v0xg/pagepipe/internal/config"
	"github.com/v0xg/pagepipe/internal/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "✗", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pagepipe",
		Short: "Run composable browser automation pipelines",
		Long: `pagepipe runs declarative browser pipelines: navigate, interact and extract
structured data with selector fallbacks, retries, timeouts and parallel branches.

Example:
  pagepipe inspect https://shop.example.com
  pagepipe draft https://shop.example.com "search for lamps and list the results" -o lamps.yaml
  pagepipe run lamps.yaml --out report.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			logger, err = logging.New(cfg.LogLevel, cfg.Verbose)
			return err
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "Config file (default: ./pagepipe.yaml or $HOME/.pagepipe/pagepipe.yaml)")
	flags.String("driver", config.DriverRod, "Browser driver: rod, playwright, html")
	flags.Bool("headless", true, "Run the browser without a window")
	flags.Int("width", 1280, "Viewport width")
	flags.Int("height", 720, "Viewport height")
	flags.String("profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	flags.Duration("timeout", 0, "Default bound for each driver call (default 30s)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.BoolP("verbose", "v", false, "Show detailed progress")
	flags.Bool("install", false, "Install the Playwright driver and browsers before starting")

	rootCmd.AddCommand(newRunCmd(), newInspectCmd(), newDraftCmd())
	return rootCmd
}
