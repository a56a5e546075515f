package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/config"
	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/parser"
	"github.com/stateful/diagrammer/internal/project"
)

type renderTarget struct {
	// label identifies the diagram in messages, for example README.md:12.
	label  string
	source string
	theme  diagram.Theme
	output string
	cfg    *config.Config
}

func renderCmd() *cobra.Command {
	var (
		output string
		theme  string
	)

	cmd := cobra.Command{
		Use:   "render FILE...",
		Short: "Render diagrams to SVG.",
		Long: `Render diagrams to SVG.

Diagram files are written next to the input with the .svg extension.
Every mermaid block of a markdown file is written to <name>-<index>.svg.
Blocks can be skipped with FILTER_TYPE_BLOCK filters.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := setup("")
			if err != nil {
				return err
			}
			defer log.Flush()

			var forcedTheme diagram.Theme
			if theme != "" {
				if forcedTheme, err = diagram.ParseTheme(theme); err != nil {
					return err
				}
			}

			var targets []renderTarget
			for _, name := range args {
				cfg, err := loadConfig(name)
				if err != nil {
					return err
				}
				found, err := collectTargets(cmd, cfg, name)
				if err != nil {
					return err
				}
				targets = append(targets, found...)
			}

			if output != "" {
				if len(targets) != 1 {
					return errors.Errorf("--output requires exactly one diagram, found %d", len(targets))
				}
				targets[0].output = output
			}

			var result error
			for _, t := range targets {
				if forcedTheme != "" {
					t.theme = forcedTheme
				}

				r, err := newRenderer(t.cfg, logger)
				if err != nil {
					return err
				}

				out, err := renderSource(cmd.Context(), r, t.cfg, t.source, t.theme)
				if err != nil {
					logger.Debug("render failed", zap.String("diagram", t.label), zap.Error(err))
					result = multierr.Append(result, errors.Wrap(err, t.label))
					continue
				}

				if err := writeOutput(cmd, t.output, project.SVG(out, t.theme)); err != nil {
					return err
				}
				if t.output != "-" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.output)
				}
			}
			return result
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file when rendering a single diagram. Use - for stdout.")
	cmd.Flags().StringVar(&theme, "theme", "", "Theme overriding renderer.theme and project files.")

	return &cmd
}

func collectTargets(cmd *cobra.Command, cfg *config.Config, name string) ([]renderTarget, error) {
	data, err := readInput(cmd, name)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return markdownTargets(cfg, name, data)
	case ".mmdproj", ".json":
		imp, err := project.Import(name, data)
		if err != nil {
			return nil, errors.Wrap(err, name)
		}
		t := renderTarget{
			label:  name,
			source: imp.SourceText,
			theme:  defaultTheme(cfg),
			output: replaceExt(name, ".svg"),
			cfg:    cfg,
		}
		if imp.Theme != nil {
			t.theme = *imp.Theme
		}
		return []renderTarget{t}, nil
	default:
		output := replaceExt(name, ".svg")
		if name == "-" {
			output = "-"
		}
		return []renderTarget{{
			label:  name,
			source: string(data),
			theme:  defaultTheme(cfg),
			output: output,
			cfg:    cfg,
		}}, nil
	}
}

func markdownTargets(cfg *config.Config, name string, data []byte) ([]renderTarget, error) {
	var result []renderTarget

	for _, block := range parser.New(data).Blocks() {
		ok, err := config.Match(cfg.Filters, config.FilterTypeBlock, config.FilterBlockEnv{
			Index: block.Index,
			Title: block.Title,
			Kind:  string(block.Kind()),
			Lines: block.Lines(),
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		result = append(result, renderTarget{
			label:  fmt.Sprintf("%s:%d", name, block.Line),
			source: block.Source,
			theme:  defaultTheme(cfg),
			output: replaceExt(name, fmt.Sprintf("-%d.svg", block.Index)),
			cfg:    cfg,
		})
	}

	return result, nil
}
