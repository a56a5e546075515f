package editor

import (
	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/renderer"
)

// Snapshot is a consistent view of the editor for presentation.
type Snapshot struct {
	ID              string        `json:"id"`
	SourceText      string        `json:"sourceText"`
	DiagramKind     diagram.Kind  `json:"diagramKind"`
	Theme           diagram.Theme `json:"theme"`
	ProjectTitle    string        `json:"projectTitle"`
	CanUndo         bool          `json:"canUndo"`
	CanRedo         bool          `json:"canRedo"`
	Output          string        `json:"renderedOutput"`
	LastValidOutput string        `json:"lastValidOutput"`
	Valid           bool          `json:"isValid"`
	Error           string        `json:"error,omitempty"`
	Rendering       bool          `json:"rendering"`
}

func (e *Editor) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		ID:           e.id,
		SourceText:   e.history.Present(),
		DiagramKind:  e.kind,
		Theme:        e.theme,
		ProjectTitle: e.title,
		CanUndo:      e.history.CanUndo(),
		CanRedo:      e.history.CanRedo(),
	}
	e.mu.Unlock()

	snap.applyRender(e.scheduler.State())
	return snap
}

func (s *Snapshot) applyRender(r renderer.State) {
	s.Output = r.Output
	s.LastValidOutput = r.LastValidOutput
	s.Valid = r.Valid
	s.Error = r.Error
	s.Rendering = r.Rendering
}
