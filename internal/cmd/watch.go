package cmd

import (
	"context"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/stateful/diagrammer/internal/config"
	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/editor"
	"github.com/stateful/diagrammer/internal/log"
	"github.com/stateful/diagrammer/internal/project"
	"github.com/stateful/diagrammer/internal/renderer"
	"github.com/stateful/diagrammer/internal/session"
	"github.com/stateful/diagrammer/internal/store"
)

func watchCmd() *cobra.Command {
	var (
		outputDir string
		once      bool
	)

	cmd := cobra.Command{
		Use:   "watch",
		Short: "Render diagram files to SVG whenever they change.",
		Long: `Render diagram files to SVG whenever they change.

Files below the working directory matching watch.patterns are rendered
to an .svg file next to them, or below --output-dir. Files can be skipped
with FILTER_TYPE_FILE filters. Every file gets its own editor, so bursts
of writes are debounced and only the last one is rendered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup("")
			if err != nil {
				return err
			}
			defer log.Flush()

			r, err := newRenderer(cfg, logger)
			if err != nil {
				return err
			}

			w, err := newWatcher(cfg, r, outputDir, cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
			if err != nil {
				return err
			}
			defer w.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if once {
				return w.RenderAll(ctx)
			}
			return w.Watch(ctx)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Directory for rendered files. Defaults to the directory of each file.")
	cmd.Flags().BoolVar(&once, "once", false, "Render every matching file once and exit.")

	return &cmd
}

type watcher struct {
	cfg       *config.Config
	renderer  renderer.Renderer
	patterns  []glob.Glob
	outputDir string
	store     store.Store
	logger    *zap.Logger

	outMu  sync.Mutex
	out    io.Writer
	errOut io.Writer

	mu    sync.Mutex
	files map[string]*watchedFile
}

func newWatcher(
	cfg *config.Config,
	r renderer.Renderer,
	outputDir string,
	out, errOut io.Writer,
	logger *zap.Logger,
) (*watcher, error) {
	w := &watcher{
		cfg:       cfg,
		renderer:  r,
		outputDir: outputDir,
		store:     store.NewMemoryStore(),
		logger:    logger,
		out:       out,
		errOut:    errOut,
		files:     make(map[string]*watchedFile),
	}

	for _, p := range cfg.WatchPatterns {
		patterns := []string{p}
		// "**/" also matches files in the root directory.
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			patterns = append(patterns, rest)
		}
		for _, p := range patterns {
			g, err := glob.Compile(p, '/')
			if err != nil {
				return nil, errors.Wrapf(err, "invalid watch pattern %q", p)
			}
			w.patterns = append(w.patterns, g)
		}
	}

	return w, nil
}

func (w *watcher) matches(path string) bool {
	for _, g := range w.patterns {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// RenderAll renders every matching file and waits for the results.
func (w *watcher) RenderAll(ctx context.Context) error {
	if err := w.walk(ctx, "."); err != nil {
		return err
	}

	w.mu.Lock()
	files := make([]*watchedFile, 0, len(w.files))
	for _, f := range w.files {
		files = append(files, f)
	}
	w.mu.Unlock()

	failed := 0
	for _, f := range files {
		f.update(f.editor.Flush())
		if f.hasFailed() {
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d diagrams failed to render", failed, len(files))
	}
	return nil
}

// Watch renders every matching file and then keeps rendering the ones
// which change until ctx is done.
func (w *watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() { _ = fsw.Close() }()

	if err := w.addDirs(fsw, "."); err != nil {
		return err
	}
	if err := w.walk(ctx, "."); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-fsw.Events:
				if !ok {
					return nil
				}
				if err := w.handleEvent(ctx, fsw, event); err != nil {
					return err
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return nil
				}
				w.logger.Warn("watcher error", zap.Error(err))
			}
		}
	})
	return g.Wait()
}

func (w *watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) error {
	path := filepath.Clean(event.Name)
	w.logger.Debug("file event", zap.String("path", path), zap.Stringer("op", event.Op))

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.remove(path)
		return nil
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if err := w.addDirs(fsw, path); err != nil {
				return err
			}
			return w.walk(ctx, path)
		}
		return w.handle(ctx, path)
	case event.Has(fsnotify.Write):
		return w.handle(ctx, path)
	}
	return nil
}

func (w *watcher) addDirs(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if skipDir(path, d) {
			return filepath.SkipDir
		}
		return errors.Wrapf(fsw.Add(path), "failed to watch %s", path)
	})
}

func (w *watcher) walk(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		return w.handle(ctx, path)
	})
}

func skipDir(path string, d fs.DirEntry) bool {
	name := d.Name()
	return path != "." && (strings.HasPrefix(name, ".") || name == "node_modules")
}

// handle feeds the content of path into its editor. Files which do not
// match a pattern or a filter are ignored.
func (w *watcher) handle(ctx context.Context, path string) error {
	rel := filepath.ToSlash(filepath.Clean(path))
	if !w.matches(rel) {
		return nil
	}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		w.remove(path)
		return nil
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if info.IsDir() {
		return nil
	}

	ok, err := config.Match(w.cfg.Filters, config.FilterTypeFile, config.FilterFileEnv{
		Path: rel,
		Name: filepath.Base(path),
		Ext:  filepath.Ext(path),
		Size: info.Size(),
	})
	if err != nil {
		return err
	}
	if !ok {
		w.logger.Debug("file skipped by filter", zap.String("path", rel))
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}

	imp, err := project.Import(filepath.Base(path), data)
	if err != nil {
		w.printErr("%s: %v\n", rel, err)
		return nil
	}

	w.mu.Lock()
	f, ok := w.files[rel]
	w.mu.Unlock()

	if ok {
		f.editor.Import(imp)
		f.setTheme(f.editor.State().Theme)
		return nil
	}

	return w.open(ctx, rel, path, imp)
}

// open creates the editor of a file, seeding its session with the
// imported content so that nothing else is ever rendered.
func (w *watcher) open(ctx context.Context, rel, path string, imp project.Imported) error {
	kind := diagram.Detect(imp.SourceText)
	if imp.DiagramKind != nil {
		kind = *imp.DiagramKind
	}
	st := session.DefaultFor(kind)
	st.SourceText = imp.SourceText
	if imp.Theme != nil {
		st.Theme = *imp.Theme
	}
	if imp.Title != nil {
		st.ProjectTitle = *imp.Title
	}
	if err := session.Save(ctx, w.store, session.KeyFor(rel), st); err != nil {
		return err
	}

	f := &watchedFile{
		path:    rel,
		output:  w.outputPath(path),
		watcher: w,
		theme:   st.Theme,
	}

	opts := append(
		editorOptions(w.cfg, w.store, w.logger.With(zap.String("path", rel)), renderer.WithOnUpdate(f.update)),
		editor.WithID(rel),
	)
	f.editor = editor.New(ctx, w.renderer, opts...)

	w.mu.Lock()
	w.files[rel] = f
	w.mu.Unlock()
	return nil
}

func (w *watcher) outputPath(path string) string {
	name := replaceExt(path, ".svg")
	if w.outputDir == "" {
		return name
	}
	return filepath.Join(w.outputDir, name)
}

func (w *watcher) remove(path string) {
	rel := filepath.ToSlash(filepath.Clean(path))

	w.mu.Lock()
	f, ok := w.files[rel]
	delete(w.files, rel)
	w.mu.Unlock()

	if ok {
		w.logger.Debug("file removed", zap.String("path", rel))
		f.editor.Close()
	}
}

func (w *watcher) Close() {
	w.mu.Lock()
	files := w.files
	w.files = make(map[string]*watchedFile)
	w.mu.Unlock()

	for _, f := range files {
		f.editor.Close()
	}
}

var (
	okColor   = color.New(color.FgGreen)
	failColor = color.New(color.FgRed)
)

// printOut and printErr color their output only on terminals.
func (w *watcher) printOut(format string, args ...any) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	_, _ = okColor.Fprintf(w.out, format, args...)
}

func (w *watcher) printErr(format string, args ...any) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	_, _ = failColor.Fprintf(w.errOut, format, args...)
}

type watchedFile struct {
	path    string
	output  string
	watcher *watcher
	editor  *editor.Editor

	mu      sync.Mutex
	theme   diagram.Theme
	handled string
	failed  bool
}

func (f *watchedFile) setTheme(theme diagram.Theme) {
	f.mu.Lock()
	f.theme = theme
	f.mu.Unlock()
}

func (f *watchedFile) hasFailed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failed
}

// update writes the outcome of every accepted render once.
func (f *watchedFile) update(s renderer.State) {
	if s.Rendering || s.RenderID == "" {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if s.RenderID == f.handled {
		return
	}
	f.handled = s.RenderID

	w := f.watcher
	if !s.Valid {
		f.failed = true
		w.printErr("%s: %s\n", f.path, s.Error)
		return
	}
	f.failed = false

	if err := os.MkdirAll(filepath.Dir(f.output), 0o755); err != nil {
		w.logger.Error("failed to create output directory", zap.String("path", f.output), zap.Error(err))
		return
	}
	if err := os.WriteFile(f.output, project.SVG(s.Output, f.theme), 0o644); err != nil {
		w.logger.Error("failed to write output", zap.String("path", f.output), zap.Error(err))
		return
	}
	w.printOut("%s\n", f.output)
}
