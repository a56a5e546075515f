package cmd

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stateful/diagrammer/internal/rename"
)

func renameCmd() *cobra.Command {
	var write bool

	cmd := cobra.Command{
		Use:   "rename FILE OLD NEW",
		Short: "Rename a label in the diagram source.",
		Long: `Rename a label in the diagram source.

Only the first occurrence matched by the highest priority rule is replaced.
The patched source is printed unless --write is set.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, oldText, newText := args[0], args[1], args[2]

			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}

			result := rename.Default().Patch(string(data), oldText, newText)
			if !result.Changed {
				return errors.Errorf("label %q not found", oldText)
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "renamed using rule %q\n", result.Rule)

			if write && name != "-" {
				info, err := os.Stat(name)
				if err != nil {
					return errors.WithStack(err)
				}
				return errors.WithStack(os.WriteFile(name, []byte(result.Source), info.Mode()))
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), result.Source)
			return errors.WithStack(err)
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to FILE.")

	return &cmd
}
