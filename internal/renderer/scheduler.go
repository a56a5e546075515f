package renderer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/markup"
	"github.com/stateful/diagrammer/internal/ulid"
)

const (
	DefaultDelay   = 300 * time.Millisecond
	DefaultTimeout = 30 * time.Second
)

// State is the outcome of the most recent accepted render.
//
// Output is empty whenever Valid is false. LastValidOutput keeps the most
// recent successful render so that a client can keep showing a preview
// while the source contains a syntax error.
type State struct {
	Output          string
	LastValidOutput string
	Valid           bool
	Error           string
	Rendering       bool
	RenderID        string
}

type job struct {
	source string
	theme  diagram.Theme
}

// Scheduler coalesces bursts of changes into at most one render per quiet
// period of Delay. Only the value scheduled last is rendered.
type Scheduler struct {
	renderer Renderer
	config   Config
	delay    time.Duration
	timeout  time.Duration
	sanitize func(string) string
	onUpdate func(State)
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	idle       *sync.Cond
	timer      *time.Timer
	generation uint64
	pending    *job
	latest     string
	inFlight   int
	state      State
}

type Option func(*Scheduler)

func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.delay = d
	}
}

// WithTimeout bounds a single external render call.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// WithConfig sets the base renderer config. The theme is overridden by
// every [Scheduler.Schedule] call.
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		s.config = cfg
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithOnUpdate registers a callback invoked after every state change. It
// may be called from multiple goroutines.
func WithOnUpdate(fn func(State)) Option {
	return func(s *Scheduler) {
		s.onUpdate = fn
	}
}

// WithSanitizer replaces [markup.Sanitize]. It is meant for tests only;
// the sanitizer cannot be disabled.
func WithSanitizer(fn func(string) string) Option {
	return func(s *Scheduler) {
		if fn != nil {
			s.sanitize = fn
		}
	}
}

func NewScheduler(r Renderer, opts ...Option) *Scheduler {
	s := &Scheduler{
		renderer: r,
		config:   DefaultConfig(),
		delay:    DefaultDelay,
		timeout:  DefaultTimeout,
		sanitize: markup.Sanitize,
		state:    State{Valid: true},
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Schedule (re)starts the debounce timer for the given source and theme.
func (s *Scheduler) Schedule(source string, theme diagram.Theme) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	s.generation++
	gen := s.generation
	s.pending = &job{source: source, theme: theme}

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation || s.pending == nil {
		s.mu.Unlock()
		return
	}
	j := *s.pending
	s.pending = nil
	s.inFlight++
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.run(j)
}

// Flush renders the pending change, if any, without waiting for the timer,
// waits for renders already in flight and returns the resulting state.
func (s *Scheduler) Flush() State {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	j := s.pending
	s.pending = nil
	if j != nil {
		s.inFlight++
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if j != nil {
		s.run(*j)
		s.wg.Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inFlight > 0 {
		s.idle.Wait()
	}
	return s.state
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close stops the timer, cancels in-flight renders and waits for them.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.pending = nil
	s.generation++
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}

// run renders a job claimed by fire or Flush. The caller has already
// counted it in inFlight.
func (s *Scheduler) run(j job) {
	if strings.TrimSpace(j.source) == "" {
		s.mu.Lock()
		s.done()
		// Supersede any render still in flight.
		s.latest = ""
		s.state.Output = ""
		s.state.LastValidOutput = ""
		s.state.Valid = true
		s.state.Error = ""
		s.state.RenderID = ""
		state := s.state
		s.mu.Unlock()

		s.notify(state)
		return
	}

	id := ulid.GenerateID()

	s.mu.Lock()
	s.latest = id
	s.state.Rendering = true
	state := s.state
	s.mu.Unlock()
	s.notify(state)

	cfg := s.config
	cfg.Theme = j.theme

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	out, err := s.renderer.Render(ctx, Request{ID: id, Source: j.source, Config: cfg})
	cancel()

	if err == nil {
		out = s.sanitize(out)
	}

	s.mu.Lock()
	s.done()

	if id != s.latest {
		state := s.state
		s.mu.Unlock()
		s.logger.Debug("discarding stale render", zap.String("id", id))
		s.notify(state)
		return
	}

	if err != nil {
		s.state.Output = ""
		s.state.Valid = false
		s.state.Error = errorMessage(err)
		s.logger.Debug("render failed", zap.String("id", id), zap.Error(err))
	} else {
		s.state.Output = out
		s.state.LastValidOutput = out
		s.state.Valid = true
		s.state.Error = ""
	}
	s.state.RenderID = id
	state = s.state
	s.mu.Unlock()

	s.notify(state)
}

// done releases a claimed job. s.mu must be held.
func (s *Scheduler) done() {
	s.inFlight--
	s.state.Rendering = s.inFlight > 0
	if s.inFlight == 0 {
		s.idle.Broadcast()
	}
}

func (s *Scheduler) notify(state State) {
	if s.onUpdate != nil {
		s.onUpdate(state)
	}
}

func errorMessage(err error) string {
	var syntaxErr *SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Message
	}
	return err.Error()
}
