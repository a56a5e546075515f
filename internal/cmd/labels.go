package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/markup"
)

func labelsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "labels [FILE]",
		Short: "List the text labels of a diagram.",
		Long: `List the text labels of a diagram, one per line.

SVG input is read as is. Diagram source is rendered first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) > 0 {
				name = args[0]
			}

			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}

			svg := string(data)
			if !strings.EqualFold(filepath.Ext(name), ".svg") && !strings.HasPrefix(strings.TrimSpace(svg), "<") {
				cfg, logger, err := setup(name)
				if err != nil {
					return err
				}
				defer log.Flush()

				r, err := newRenderer(cfg, logger)
				if err != nil {
					return err
				}
				if svg, err = renderSource(cmd.Context(), r, cfg, svg, defaultTheme(cfg)); err != nil {
					return err
				}
			}

			for _, label := range markup.Labels(svg) {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	}
	return &cmd
}
