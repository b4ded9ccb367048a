package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/pagepipe/internal/ai"
	"github.com/v0xg/pagepipe/internal/pipeline"
)

func newDraftCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "draft <url> <prompt>",
		Short: "Draft a pipeline script from a natural language prompt using AI",
		Long: `draft inspects the page, asks an AI provider for pipeline steps that fulfil
the prompt and writes them as a script. Review the script before running it.

Example:
  pagepipe draft "https://myapp.com" "log in with test@example.com and read the account name"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, prompt := args[0], args[1]
			ctx := cmd.Context()

			provider, err := ai.NewProvider(cfg.Provider, cfg.Model)
			if err != nil {
				return fmt.Errorf("AI provider init failed: %w", err)
			}

			fmt.Fprintf(os.Stderr, "→ Inspecting %s... ", url)
			page, closeDriver, err := openDriver(ctx, cfg)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed")
				return fmt.Errorf("driver start failed: %w", err)
			}
			defer closeDriver()

			inv, err := inspect(ctx, page, url)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed")
				return err
			}
			fmt.Fprintf(os.Stderr, "done (found %d interactive elements)\n", len(inv.Elements))

			fmt.Fprintf(os.Stderr, "→ Drafting steps via %s... ", cfg.Provider)
			steps, err := provider.DraftSteps(ctx, inv, prompt)
			if err != nil {
				fmt.Fprintln(os.Stderr, "failed")
				return fmt.Errorf("draft failed: %w", err)
			}
			fmt.Fprintf(os.Stderr, "done (%d steps)\n", len(steps))

			script := pipeline.Script{
				Name:  prompt,
				Steps: append([]pipeline.Step{{Action: "navigate", URL: url}}, steps...),
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(script); err != nil {
				return fmt.Errorf("failed to write script: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(os.Stderr, "✓ Saved to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().String("provider", "claude", "AI provider: claude, openai")
	cmd.Flags().String("model", "", "Specific model override")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the script to this file instead of stdout")
	return cmd
}
