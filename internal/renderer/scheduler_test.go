package renderer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stateful/diagrammer/internal/diagram"
)

type fakeRenderer struct {
	mu       sync.Mutex
	requests []Request
	render   func(ctx context.Context, req Request) (string, error)
}

func (f *fakeRenderer) Render(ctx context.Context, req Request) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	render := f.render
	f.mu.Unlock()

	if render != nil {
		return render(ctx, req)
	}
	return `<svg><text>` + req.Source + `</text></svg>`, nil
}

func (f *fakeRenderer) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func newTestScheduler(t *testing.T, r Renderer, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{
		WithDelay(20 * time.Millisecond),
		WithLogger(zaptest.NewLogger(t)),
	}, opts...)
	s := NewScheduler(r, opts...)
	t.Cleanup(s.Close)
	return s
}

func TestScheduler_DebounceCoalescing(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestScheduler(t, r)

	s.Schedule("graph TD; c1", diagram.ThemeDefault)
	s.Schedule("graph TD; c2", diagram.ThemeDefault)
	s.Schedule("graph TD; c3", diagram.ThemeDark)

	require.Eventually(t, func() bool {
		return s.State().Output != ""
	}, time.Second, 5*time.Millisecond)

	// Give a stray timer the chance to fire.
	time.Sleep(60 * time.Millisecond)

	requests := r.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "graph TD; c3", requests[0].Source)
	assert.Equal(t, diagram.ThemeDark, requests[0].Config.Theme)
	assert.Equal(t, DefaultMaxTextSize, requests[0].Config.MaxTextSize)
	assert.Equal(t, SecurityStrict, requests[0].Config.SecurityLevel)
	assert.False(t, requests[0].Config.HTMLLabels)
	assert.NotEmpty(t, requests[0].ID)

	state := s.State()
	assert.True(t, state.Valid)
	assert.Equal(t, `<svg><text>graph TD; c3</text></svg>`, state.Output)
	assert.Equal(t, requests[0].ID, state.RenderID)
}

func TestScheduler_EmptySourceSkipsRenderer(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestScheduler(t, r)

	s.Schedule("graph TD; a", diagram.ThemeDefault)
	state := s.Flush()
	require.NotEmpty(t, state.Output)

	s.Schedule("  \n\t", diagram.ThemeDefault)
	state = s.Flush()

	assert.Len(t, r.Requests(), 1)
	assert.True(t, state.Valid)
	assert.Empty(t, state.Error)
	assert.Empty(t, state.Output)
	assert.Empty(t, state.LastValidOutput)
}

func TestScheduler_SyntaxError(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestScheduler(t, r)

	s.Schedule("graph TD; ok", diagram.ThemeDefault)
	good := s.Flush()
	require.True(t, good.Valid)

	r.render = func(context.Context, Request) (string, error) {
		return "", &SyntaxError{Message: "Parse error on line 1"}
	}
	s.Schedule("graph TD; -->", diagram.ThemeDefault)
	state := s.Flush()

	assert.False(t, state.Valid)
	assert.Equal(t, "Parse error on line 1", state.Error)
	assert.Empty(t, state.Output, "invalid diagrams have no output")
	assert.Equal(t, good.Output, state.LastValidOutput)
}

func TestScheduler_OutputIsSanitized(t *testing.T) {
	r := &fakeRenderer{
		render: func(context.Context, Request) (string, error) {
			return `<svg><script>alert(1)</script><g onclick="x()"><text>A</text></g></svg>`, nil
		},
	}
	s := newTestScheduler(t, r)

	s.Schedule("graph TD; A", diagram.ThemeDefault)
	state := s.Flush()

	assert.Equal(t, `<svg><g><text>A</text></g></svg>`, state.Output)
}

func TestScheduler_StaleResultIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	r := &fakeRenderer{
		render: func(ctx context.Context, req Request) (string, error) {
			if req.Source == "slow" {
				<-release
			}
			return `<svg><text>` + req.Source + `</text></svg>`, nil
		},
	}
	s := newTestScheduler(t, r, WithDelay(time.Millisecond))

	s.Schedule("slow", diagram.ThemeDefault)
	require.Eventually(t, func() bool {
		return len(r.Requests()) == 1 && s.State().Rendering
	}, time.Second, time.Millisecond)

	s.Schedule("fast", diagram.ThemeDefault)
	require.Eventually(t, func() bool {
		return s.State().Output == `<svg><text>fast</text></svg>`
	}, time.Second, time.Millisecond)
	assert.True(t, s.State().Rendering, "the slow render is still in flight")

	close(release)
	require.Eventually(t, func() bool {
		return !s.State().Rendering
	}, time.Second, time.Millisecond)

	assert.Equal(t, `<svg><text>fast</text></svg>`, s.State().Output)
}

func TestScheduler_OnUpdate(t *testing.T) {
	var (
		mu     sync.Mutex
		states []State
	)
	r := &fakeRenderer{}
	s := newTestScheduler(t, r, WithOnUpdate(func(st State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, st)
	}))

	s.Schedule("graph TD; A", diagram.ThemeDefault)
	s.Flush()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, states, 2)
	assert.True(t, states[0].Rendering)
	assert.False(t, states[1].Rendering)
	assert.NotEmpty(t, states[1].Output)
}

func TestScheduler_CloseCancelsInFlight(t *testing.T) {
	r := &fakeRenderer{
		render: func(ctx context.Context, req Request) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	s := NewScheduler(r, WithDelay(time.Millisecond))

	s.Schedule("graph TD; A", diagram.ThemeDefault)
	require.Eventually(t, func() bool {
		return len(r.Requests()) == 1
	}, time.Second, time.Millisecond)

	s.Close()
	assert.False(t, s.State().Rendering)

	s.Schedule("graph TD; B", diagram.ThemeDefault)
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, r.Requests(), 1)
}

func TestScheduler_FlushWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	r := &fakeRenderer{
		render: func(ctx context.Context, req Request) (string, error) {
			<-release
			return `<svg><text>` + req.Source + `</text></svg>`, nil
		},
	}
	s := newTestScheduler(t, r, WithDelay(time.Millisecond))

	s.Schedule("graph TD; A", diagram.ThemeDefault)
	require.Eventually(t, func() bool {
		return len(r.Requests()) == 1
	}, time.Second, time.Millisecond)

	done := make(chan State, 1)
	go func() { done <- s.Flush() }()

	select {
	case <-done:
		t.Fatal("flush returned while a render was in flight")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	state := <-done
	assert.False(t, state.Rendering)
	assert.Equal(t, `<svg><text>graph TD; A</text></svg>`, state.Output)
}
