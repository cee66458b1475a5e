package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/scribe/internal/presentation/tui"
	"github.com/aretw0/scribe/internal/sanitize"
	"github.com/aretw0/scribe/pkg/segment"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Preview how a message would be split into tasks",
	Long: `Runs the segmenter on the given text (or stdin) without storing anything.
On a terminal the checklist is rendered as markdown; otherwise JSON is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			text = strings.TrimRight(string(data), "\n")
		}

		clean, err := sanitize.InputLimit(text, cfg.MaxInputSize)
		if err != nil {
			return err
		}

		seg := segment.New(cfg.SegmentOptions()...)
		result := seg.Parse(clean)

		asJSON, _ := cmd.Flags().GetBool("json")
		out := cmd.OutOrStdout()
		if !asJSON && out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd())) {
			render, err := tui.NewRenderer()
			if err != nil {
				return err
			}
			rendered, err := render(tui.ChecklistMarkdown(result))
			if err != nil {
				return err
			}
			fmt.Fprint(out, rendered)
			return nil
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().Bool("json", false, "Always print JSON")
}
