package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/v0xg/pagepipe/internal/flow"
	"github.com/v0xg/pagepipe/internal/metrics"
	"github.com/v0xg/pagepipe/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var out, metricsFile string

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a pipeline script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := pipeline.Load(args[0])
			if err != nil {
				return err
			}
			// Fail on a bad script before a browser is started.
			if _, err := pipeline.Compile(script); err != nil {
				return fmt.Errorf("invalid script: %w", err)
			}

			ctx := cmd.Context()
			fmt.Printf("→ Starting %s driver... ", cfg.Driver)
			page, closeDriver, err := openDriver(ctx, cfg)
			if err != nil {
				fmt.Println("failed")
				return fmt.Errorf("driver start failed: %w", err)
			}
			defer closeDriver()
			fmt.Println("done")

			recorder := metrics.NewRecorder()
			ctx = flow.WithLogger(ctx, logger)
			ctx = flow.WithObserver(ctx, recorder)

			fmt.Printf("→ Running %s (%d steps)\n", args[0], len(script.Steps))
			report := pipeline.Run(ctx, page, script, pipeline.Options{Verbose: cfg.Verbose})

			if out != "" {
				if err := report.Save(out); err != nil {
					return err
				}
				fmt.Printf("→ Report saved to %s\n", out)
			}
			if metricsFile != "" {
				if err := recorder.WriteTextfile(metricsFile); err != nil {
					return err
				}
			}

			if !report.OK() {
				return fmt.Errorf("run %s failed after %d/%d steps: %w", report.RunID, report.Steps, report.Total, report.Err)
			}
			fmt.Printf("✓ %d steps in %s (%d outputs)\n", report.Steps, report.Duration.Round(time.Millisecond), len(report.Outputs))
			if out == "" && len(report.Outputs) > 0 {
				return report.WriteYAML(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the run report with outputs to this YAML file")
	cmd.Flags().StringVar(&metricsFile, "metrics", "", "Write Prometheus metrics to this textfile")
	return cmd
}
