package cmd

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/config"
	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/editor"
	"github.com/stateful/diagrammer/internal/history"
	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/markup"
	"github.com/stateful/diagrammer/internal/renderer"
	"github.com/stateful/diagrammer/internal/store"
	"github.com/stateful/diagrammer/internal/ulid"
)

const (
	configName = "diagrammer"
	configType = "yaml"
)

// setup resolves the configuration which applies to target and installs
// the logger it describes.
func setup(target string) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(target)
	if err != nil {
		return nil, nil, err
	}

	logger, err := log.Configure(log.Options{
		Enabled: cfg.LogEnabled,
		Path:    cfg.LogPath,
		Verbose: cfg.LogVerbose,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func loadConfig(target string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)

	if fConfigFile != "" {
		cfg, err = loadConfigFile(fConfigFile)
	} else {
		loader := config.NewLoader(configName, configType, os.DirFS("."), config.WithLogger(log.Get()))
		cfg, err = loader.Load(configPath(target))
	}
	if err != nil {
		return nil, err
	}

	if fLog {
		cfg.LogEnabled = true
	}
	if fLogFile != "" {
		cfg.LogEnabled = true
		cfg.LogPath = fLogFile
	}
	if fVerbose {
		cfg.LogEnabled = true
		cfg.LogVerbose = true
	}
	return cfg, nil
}

func loadConfigFile(name string) (*config.Config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg, err := config.ParseYAML(data)
	if err != nil {
		return nil, err
	}

	dotenv, err := config.LoadDotEnv(os.DirFS("."))
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, config.Lookup(os.LookupEnv, config.MapLookup(dotenv))); err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath converts target into a path relative to the working
// directory. Targets outside of it resolve to the working directory.
func configPath(target string) string {
	if target == "" || target == "-" {
		return "."
	}

	rel := target
	if filepath.IsAbs(target) {
		wd, err := os.Getwd()
		if err != nil {
			return "."
		}
		if rel, err = filepath.Rel(wd, target); err != nil {
			return "."
		}
	}

	rel = filepath.ToSlash(filepath.Clean(rel))
	if !fs.ValidPath(rel) {
		return "."
	}
	if _, err := os.Stat(rel); err != nil {
		return "."
	}
	return rel
}

func defaultTheme(cfg *config.Config) diagram.Theme {
	if cfg.RendererTheme == "" {
		return diagram.ThemeDefault
	}
	return diagram.Theme(cfg.RendererTheme)
}

func rendererConfig(cfg *config.Config) renderer.Config {
	rc := renderer.DefaultConfig()
	rc.Theme = defaultTheme(cfg)
	rc.SecurityLevel = renderer.SecurityLevel(cfg.RendererSecurityLevel)
	rc.FontFamily = cfg.RendererFontFamily
	rc.MaxTextSize = cfg.RendererMaxTextSize
	rc.HTMLLabels = cfg.RendererHTMLLabels
	return rc
}

func newRenderer(cfg *config.Config, logger *zap.Logger) (*renderer.MermaidCLI, error) {
	return renderer.NewMermaidCLI(cfg.RendererCommand, renderer.WithCLILogger(logger))
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	return store.Open(ctx, cfg.StoreDriver, cfg.StorePath)
}

func editorOptions(cfg *config.Config, st store.Store, logger *zap.Logger, extra ...renderer.Option) []editor.Option {
	schedulerOpts := []renderer.Option{
		renderer.WithDelay(cfg.RendererDebounce),
		renderer.WithTimeout(cfg.RendererTimeout),
		renderer.WithConfig(rendererConfig(cfg)),
	}
	return []editor.Option{
		editor.WithStore(st),
		editor.WithLogger(logger),
		editor.WithHistoryOptions(
			history.WithMaxLength(cfg.EditorHistoryLimit),
			history.WithBatchThreshold(cfg.EditorBatchWindow),
		),
		editor.WithSchedulerOptions(append(schedulerOpts, extra...)...),
	}
}

// renderSource renders a single diagram outside of an editor session.
// The result is sanitized.
func renderSource(ctx context.Context, r renderer.Renderer, cfg *config.Config, source string, theme diagram.Theme) (string, error) {
	rc := rendererConfig(cfg)
	rc.Theme = theme

	ctx, cancel := context.WithTimeout(ctx, cfg.RendererTimeout)
	defer cancel()

	out, err := r.Render(ctx, renderer.Request{ID: ulid.GenerateID(), Source: source, Config: rc})
	if err != nil {
		return "", err
	}

	out = markup.Sanitize(out)
	if strings.TrimSpace(out) == "" {
		return "", errors.New("renderer produced no markup")
	}
	return out, nil
}

// readInput reads a file, or stdin when name is "-" or empty.
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return data, errors.Wrap(err, "failed to read stdin")
	}
	data, err := os.ReadFile(name)
	return data, errors.WithStack(err)
}

// writeOutput writes data to a file, or stdout when name is "-".
func writeOutput(cmd *cobra.Command, name string, data []byte) error {
	if name == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return errors.WithStack(err)
	}
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(os.WriteFile(name, data, 0o644))
}

// replaceExt swaps the extension of name for ext.
func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ext
}
