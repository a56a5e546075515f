package editor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/history"
	"github.com/stateful/diagrammer/internal/project"
	"github.com/stateful/diagrammer/internal/renderer"
	"github.com/stateful/diagrammer/internal/session"
	"github.com/stateful/diagrammer/internal/store"
)

type fakeRenderer struct {
	mu       sync.Mutex
	requests []renderer.Request
}

func (f *fakeRenderer) Render(_ context.Context, req renderer.Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if strings.Contains(req.Source, "INVALID") {
		return "", &renderer.SyntaxError{Message: "Parse error on line 1"}
	}
	return `<svg id="` + req.ID + `"><g>ok</g></svg>`, nil
}

func (f *fakeRenderer) Last() renderer.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeRenderer) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestEditor(t *testing.T, r renderer.Renderer, opts ...Option) *Editor {
	t.Helper()
	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		// Renders happen only on Flush.
		WithSchedulerOptions(renderer.WithDelay(time.Hour)),
		WithHistoryOptions(history.WithBatchThreshold(0)),
	}, opts...)
	e := New(context.Background(), r, opts...)
	t.Cleanup(e.Close)
	return e
}

func TestEditor_Defaults(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{})

	snap := e.Snapshot()
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, diagram.KindFlowchart, snap.DiagramKind)
	assert.Equal(t, diagram.ThemeDefault, snap.Theme)
	assert.Equal(t, diagram.Template(diagram.KindFlowchart), snap.SourceText)
	assert.False(t, snap.CanUndo)
	assert.False(t, snap.CanRedo)

	rs := e.Flush()
	assert.True(t, rs.Valid)
	assert.NotEmpty(t, rs.Output)
}

func TestEditor_KindSwitchClearsHistory(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{})

	require.True(t, e.SetSourceText("graph TD\n  a"))
	require.True(t, e.SetSourceText("graph TD\n  b"))
	require.True(t, e.Snapshot().CanUndo)

	require.NoError(t, e.SetDiagramKind(diagram.KindSequence))

	snap := e.Snapshot()
	assert.False(t, snap.CanUndo)
	assert.False(t, snap.CanRedo)
	assert.Equal(t, diagram.KindSequence, snap.DiagramKind)
	assert.Equal(t, diagram.Template(diagram.KindSequence), snap.SourceText)

	assert.Error(t, e.SetDiagramKind("venn"))
}

func TestEditor_EqualSourceIsNoop(t *testing.T) {
	r := &fakeRenderer{}
	e := newTestEditor(t, r)

	e.Flush()
	require.Equal(t, 1, r.Count())

	assert.False(t, e.SetSourceText(e.State().SourceText))
	e.Flush()
	assert.Equal(t, 1, r.Count())
	assert.False(t, e.Snapshot().CanUndo)
}

func TestEditor_SettingsAreNotInHistory(t *testing.T) {
	r := &fakeRenderer{}
	e := newTestEditor(t, r)

	require.True(t, e.SetSourceText("graph LR\n  x"))
	require.NoError(t, e.SetTheme(diagram.ThemeDark))
	e.SetProjectTitle("Flow")

	require.True(t, e.Undo())
	st := e.State()
	assert.Equal(t, diagram.Template(diagram.KindFlowchart), st.SourceText)
	assert.Equal(t, diagram.ThemeDark, st.Theme)
	assert.Equal(t, "Flow", st.ProjectTitle)

	require.True(t, e.Redo())
	assert.Equal(t, "graph LR\n  x", e.State().SourceText)

	e.Flush()
	assert.Equal(t, diagram.ThemeDark, r.Last().Config.Theme)

	assert.Error(t, e.SetTheme("solarized"))
}

func TestEditor_TitleDoesNotRender(t *testing.T) {
	r := &fakeRenderer{}
	e := newTestEditor(t, r)
	e.Flush()

	e.SetProjectTitle("Only a title")
	e.Flush()
	assert.Equal(t, 1, r.Count())
}

func TestEditor_ResetToTemplateIsUndoable(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{})

	require.True(t, e.SetSourceText("graph TD\n  mine"))
	require.True(t, e.ResetToTemplate())
	assert.Equal(t, diagram.Template(diagram.KindFlowchart), e.State().SourceText)

	require.True(t, e.Undo())
	assert.Equal(t, "graph TD\n  mine", e.State().SourceText)

	require.True(t, e.ResetToTemplate())
	assert.False(t, e.ResetToTemplate())
}

func TestEditor_Rename(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{})

	require.True(t, e.SetSourceText("participant Alice\nAlice->>Bob: hi"))

	res := e.Rename("Alice", "Carol")
	assert.True(t, res.Changed)
	assert.Equal(t, "declaration", res.Rule)
	assert.Equal(t, "participant Carol\nAlice->>Bob: hi", e.State().SourceText)

	require.True(t, e.Undo())
	assert.Equal(t, "participant Alice\nAlice->>Bob: hi", e.State().SourceText)

	res = e.Rename("Nobody", "Dave")
	assert.False(t, res.Changed)
	assert.Equal(t, "participant Alice\nAlice->>Bob: hi", e.State().SourceText)
	assert.True(t, e.Snapshot().CanRedo, "a no-op rename keeps the redo stack")
}

func TestEditor_Import(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{})
	e.SetProjectTitle("Keep me")

	kind := diagram.KindPie
	theme := diagram.ThemeForest
	e.Import(project.Imported{
		SourceText:  "pie\n  \"A\" : 1",
		DiagramKind: &kind,
		Theme:       &theme,
	})

	st := e.State()
	assert.Equal(t, session.State{
		SourceText:   "pie\n  \"A\" : 1",
		DiagramKind:  diagram.KindPie,
		Theme:        diagram.ThemeForest,
		ProjectTitle: "Keep me",
	}, st)

	require.True(t, e.Undo())
	assert.Equal(t, diagram.Template(diagram.KindFlowchart), e.State().SourceText)
}

func TestEditor_PersistenceRoundTrip(t *testing.T) {
	st := store.NewMemoryStore()

	e := newTestEditor(t, &fakeRenderer{}, WithStore(st))
	require.NoError(t, e.SetDiagramKind(diagram.KindClass))
	require.True(t, e.SetSourceText("classDiagram\n  class Animal"))
	require.NoError(t, e.SetTheme(diagram.ThemeNeutral))
	e.SetProjectTitle("Zoo")
	want := e.State()

	restored := newTestEditor(t, &fakeRenderer{}, WithStore(st))
	assert.Equal(t, want, restored.State())
	assert.False(t, restored.Snapshot().CanUndo)
}

func TestEditor_PerSessionKey(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	e := newTestEditor(t, &fakeRenderer{}, WithStore(st), WithID("abc"))
	e.SetProjectTitle("Scoped")

	_, err := st.Get(ctx, session.Key)
	require.ErrorIs(t, err, store.ErrNotFound)

	got := session.Load(ctx, st, session.KeyFor("abc"), nil)
	assert.Equal(t, "Scoped", got.ProjectTitle)
	assert.Equal(t, "abc", e.Identifier())
}

func TestEditor_CorruptStoreFallsBack(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Put(context.Background(), session.Key, []byte(`{"sourceText":1}`)))

	e := newTestEditor(t, &fakeRenderer{}, WithStore(st))
	assert.Equal(t, session.Default(), e.State())
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestEditor_SaveReportsStoreErrors(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{}, WithStore(failingStore{store.NewMemoryStore()}))

	// Mutations keep working in memory.
	assert.True(t, e.SetSourceText("graph LR"))
	assert.Equal(t, "graph LR", e.State().SourceText)

	err := e.Save(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestEditor_Export(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := newTestEditor(t, &fakeRenderer{}, WithClock(func() time.Time { return clock }))

	require.True(t, e.SetSourceText("graph TD\n  A-->B\n"))
	e.SetProjectTitle("My Flow")
	require.NoError(t, e.SetTheme(diagram.ThemeDark))

	art, err := e.Export(project.FormatRaw)
	require.NoError(t, err)
	assert.Equal(t, "My-Flow.mmd", art.Filename)
	assert.Equal(t, "graph TD\n  A-->B\n", string(art.Data))

	art, err = e.Export(project.FormatProject)
	require.NoError(t, err)
	assert.Equal(t, "My-Flow.mmdproj", art.Filename)
	assert.Equal(t, "application/json", art.ContentType)
	imp, err := project.Import(art.Filename, art.Data)
	require.NoError(t, err)
	assert.Equal(t, "graph TD\n  A-->B\n", imp.SourceText)
	assert.Equal(t, "My Flow", *imp.Title)

	art, err = e.Export(project.FormatSVG)
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", art.ContentType)
	assert.Contains(t, string(art.Data), "background-color: #1e1e1e")

	_, err = e.Export("png")
	assert.Error(t, err)
}

func TestEditor_ExportInvalid(t *testing.T) {
	e := newTestEditor(t, &fakeRenderer{})
	require.True(t, e.Flush().Valid)

	require.True(t, e.SetSourceText("graph TD\n  INVALID"))

	_, err := e.Export(project.FormatRaw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDiagram))

	snap := e.Snapshot()
	assert.False(t, snap.Valid)
	assert.Empty(t, snap.Output)
	assert.NotEmpty(t, snap.LastValidOutput)
	assert.Equal(t, "Parse error on line 1", snap.Error)
}
