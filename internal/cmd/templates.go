package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stateful/diagrammer/internal/diagram"
)

func templatesCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "templates [KIND]",
		Short: "List diagram kinds or print the starter template of one.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, k := range diagram.Kinds {
					_, _ = fmt.Fprintln(out, k)
				}
				return nil
			}

			kind, err := diagram.ParseKind(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(out, diagram.Template(kind))
			return nil
		},
	}
	return &cmd
}
