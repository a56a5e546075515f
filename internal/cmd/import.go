package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/config"
	"github.com/stateful/diagrammer/internal/editor"
	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/project"
)

// openLocalEditor opens the session stored in the working directory.
// The returned function closes both the editor and its store.
func openLocalEditor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*editor.Editor, func(), error) {
	r, err := newRenderer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	e := editor.New(ctx, r, editorOptions(cfg, st, logger)...)
	return e, func() {
		e.Close()
		if err := st.Close(); err != nil {
			logger.Warn("failed to close store", zap.Error(err))
		}
	}, nil
}

func importCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "import FILE",
		Short: "Replace the local session with a diagram or project file.",
		Long: `Replace the local session with a diagram or project file.

Supported files are raw diagram source (.mmd, .txt) and project files
(.mmdproj, .json). Settings missing from a project file are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			cfg, logger, err := setup("")
			if err != nil {
				return err
			}
			defer log.Flush()

			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}

			imp, err := project.Import(filepath.Base(name), data)
			if err != nil {
				return errors.Wrapf(err, "failed to import %s", name)
			}

			e, closeEditor, err := openLocalEditor(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeEditor()

			e.Import(imp)
			if err := e.Save(cmd.Context()); err != nil {
				return errors.Wrap(err, "failed to save session")
			}

			st := e.State()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %s as %s diagram\n", name, st.DiagramKind)
			return nil
		},
	}
	return &cmd
}
