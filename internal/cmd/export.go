package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/project"
)

func exportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := cobra.Command{
		Use:   "export",
		Short: "Export the local session.",
		Long: `Export the local session as raw source (mmd), a project file (mmdproj)
or a standalone SVG (svg).

The diagram is rendered first. Nothing is written while it has errors.
The file name is derived from the project title unless --output is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := project.ParseFormat(format)
			if err != nil {
				return err
			}

			cfg, logger, err := setup("")
			if err != nil {
				return err
			}
			defer log.Flush()

			e, closeEditor, err := openLocalEditor(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeEditor()

			artifact, err := e.Export(f)
			if err != nil {
				return err
			}

			name := output
			if name == "" {
				name = artifact.Filename
			}
			if err := writeOutput(cmd, name, artifact.Data); err != nil {
				return err
			}
			if name != "-" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(project.FormatProject), "Export format: mmd, mmdproj or svg.")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file. Use - for stdout.")

	return &cmd
}
