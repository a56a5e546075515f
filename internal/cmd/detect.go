package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/parser"
)

func detectCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "detect [FILE]",
		Short: "Print the diagram kind of the source.",
		Long: `Print the diagram kind of the source read from FILE or stdin.

For markdown files every mermaid block is listed with its line, kind and title.`,
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

			out := cmd.OutOrStdout()

			switch strings.ToLower(filepath.Ext(name)) {
			case ".md", ".markdown":
				for _, block := range parser.New(data).Blocks() {
					_, _ = fmt.Fprintf(out, "%d\t%s\t%s\n", block.Line, block.Kind(), block.Title)
				}
			default:
				_, _ = fmt.Fprintln(out, diagram.Detect(string(data)))
			}
			return nil
		},
	}
	return &cmd
}
