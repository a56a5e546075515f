// Package editor composes history, rendering, renaming and persistence
// behind a single stateful facade.
package editor

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/history"
	"github.com/stateful/diagrammer/internal/project"
	"github.com/stateful/diagrammer/internal/rename"
	"github.com/stateful/diagrammer/internal/renderer"
	"github.com/stateful/diagrammer/internal/session"
	"github.com/stateful/diagrammer/internal/store"
	"github.com/stateful/diagrammer/internal/ulid"
)

const persistTimeout = 5 * time.Second

var ErrInvalidDiagram = errors.New("diagram is not valid")

// Editor is safe for concurrent use. The source text is tracked by the
// undo history; kind, theme and title are plain settings.
type Editor struct {
	id        string
	key       string
	createdAt time.Time

	mu          sync.Mutex
	history     *history.History[string]
	kind        diagram.Kind
	theme       diagram.Theme
	title       string
	description string

	scheduler *renderer.Scheduler
	patcher   rename.Patcher
	store     store.Store
	logger    *zap.Logger
	now       func() time.Time

	historyOpts   []history.Option
	schedulerOpts []renderer.Option
}

type Option func(*Editor)

// WithID makes the editor persist under a per-session key.
func WithID(id string) Option {
	return func(e *Editor) {
		e.id = id
	}
}

func WithStore(s store.Store) Option {
	return func(e *Editor) {
		e.store = s
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

func WithPatcher(p rename.Patcher) Option {
	return func(e *Editor) {
		e.patcher = p
	}
}

func WithHistoryOptions(opts ...history.Option) Option {
	return func(e *Editor) {
		e.historyOpts = append(e.historyOpts, opts...)
	}
}

func WithSchedulerOptions(opts ...renderer.Option) Option {
	return func(e *Editor) {
		e.schedulerOpts = append(e.schedulerOpts, opts...)
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Editor) {
		e.now = now
	}
}

// New restores the session from the store, falling back to the default
// session, and schedules its first render.
func New(ctx context.Context, r renderer.Renderer, opts ...Option) *Editor {
	e := &Editor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.store == nil {
		e.store = store.NewMemoryStore()
	}
	if e.patcher == nil {
		e.patcher = rename.Default()
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.id == "" {
		e.id = ulid.GenerateID()
		e.key = session.Key
	} else {
		e.key = session.KeyFor(e.id)
	}
	e.createdAt = e.now()

	st := session.Load(ctx, e.store, e.key, e.logger)
	e.history = history.New(st.SourceText, e.historyOpts...)
	e.kind = st.DiagramKind
	e.theme = st.Theme
	e.title = st.ProjectTitle

	schedulerOpts := append([]renderer.Option{renderer.WithLogger(e.logger)}, e.schedulerOpts...)
	e.scheduler = renderer.NewScheduler(r, schedulerOpts...)
	e.scheduler.Schedule(st.SourceText, st.Theme)

	e.logger.Debug("editor created", zap.String("id", e.id), zap.String("kind", string(e.kind)))
	return e
}

func (e *Editor) ID() string {
	return e.id
}

// Identifier allows storing editors in an lru.Cache.
func (e *Editor) Identifier() string {
	return e.id
}

// Close stops rendering. The persisted session is kept.
func (e *Editor) Close() {
	e.scheduler.Close()
}

func (e *Editor) SetSourceText(text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.history.Set(text) {
		return false
	}
	e.changedLocked(true)
	return true
}

// SetDiagramKind replaces the source with the template of kind and clears
// the undo history. Selecting the current kind is a no-op.
func (e *Editor) SetDiagramKind(kind diagram.Kind) error {
	if !kind.Valid() {
		return errors.Errorf("unknown diagram kind %q", kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if kind == e.kind {
		return nil
	}
	e.kind = kind
	e.history.Reset(diagram.Template(kind))
	e.changedLocked(true)
	return nil
}

func (e *Editor) SetTheme(theme diagram.Theme) error {
	if !theme.Valid() {
		return errors.Errorf("unknown theme %q", theme)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if theme == e.theme {
		return nil
	}
	e.theme = theme
	e.changedLocked(true)
	return nil
}

func (e *Editor) SetProjectTitle(title string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if title == e.title {
		return
	}
	e.title = title
	e.changedLocked(false)
}

// ResetToTemplate re-applies the template of the current kind as a new
// undo step.
func (e *Editor) ResetToTemplate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.history.Push(diagram.Template(e.kind)) {
		return false
	}
	e.changedLocked(true)
	return true
}

// Import merges an imported file into the session. The imported source
// becomes a new undo step; absent optional fields keep current settings.
func (e *Editor) Import(imp project.Imported) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history.Push(imp.SourceText)
	if imp.DiagramKind != nil {
		e.kind = *imp.DiagramKind
	}
	if imp.Theme != nil {
		e.theme = *imp.Theme
	}
	if imp.Title != nil {
		e.title = *imp.Title
	}
	if imp.Description != nil {
		e.description = *imp.Description
	}
	e.changedLocked(true)
}

func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.history.Undo() {
		return false
	}
	e.changedLocked(true)
	return true
}

func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.history.Redo() {
		return false
	}
	e.changedLocked(true)
	return true
}

// Rename maps an edit of rendered text back onto the source. A rename
// that matches nothing leaves the session untouched.
func (e *Editor) Rename(oldText, newText string) rename.Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := e.patcher.Patch(e.history.Present(), oldText, newText)
	if !res.Changed || !e.history.Push(res.Source) {
		return res
	}
	e.logger.Debug("renamed", zap.String("rule", res.Rule), zap.String("old", oldText), zap.String("new", newText))
	e.changedLocked(true)
	return res
}

// State returns the persisted part of the session.
func (e *Editor) State() session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Editor) stateLocked() session.State {
	return session.State{
		SourceText:   e.history.Present(),
		DiagramKind:  e.kind,
		Theme:        e.theme,
		ProjectTitle: e.title,
	}
}

// Flush renders any pending change immediately.
func (e *Editor) Flush() renderer.State {
	return e.scheduler.Flush()
}

// Save persists the session and reports failures, which the mutating
// operations only log.
func (e *Editor) Save(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return session.Save(ctx, e.store, e.key, e.stateLocked())
}

func (e *Editor) changedLocked(render bool) {
	st := e.stateLocked()

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := session.Save(ctx, e.store, e.key, st); err != nil {
		e.logger.Warn("failed to persist session", zap.String("key", e.key), zap.Error(err))
	}

	if render {
		e.scheduler.Schedule(st.SourceText, st.Theme)
	}
}
