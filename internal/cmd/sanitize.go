package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stateful/diagrammer/internal/markup"
)

func sanitizeCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "sanitize [FILE]",
		Short: "Strip scripts and unsafe attributes from SVG markup.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) > 0 {
				name = args[0]
			}

			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), markup.Sanitize(string(data)))
			return errors.WithStack(err)
		},
	}
	return &cmd
}
