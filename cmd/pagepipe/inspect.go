package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newInspectCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect <url>",
		Short: "List the interactive elements of a page with candidate selectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}

			ctx := cmd.Context()
			page, closeDriver, err := openDriver(ctx, cfg)
			if err != nil {
				return fmt.Errorf("driver start failed: %w", err)
			}
			defer closeDriver()

			inv, err := inspect(ctx, page, args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(inv)
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(inv); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml, json")
	return cmd
}
