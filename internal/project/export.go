package project

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/markup"
	"github.com/stateful/diagrammer/internal/session"
)

// Version is written to every project file.
const Version = "1.0"

type File struct {
	Version     string        `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
	DiagramKind diagram.Kind  `json:"diagramKind"`
	Theme       diagram.Theme `json:"theme"`
	SourceText  string        `json:"sourceText"`
	Title       string        `json:"title,omitempty"`
	Description string        `json:"description,omitempty"`
}

// NewFile snapshots a session into a project file.
func NewFile(s session.State, createdAt, now time.Time) File {
	if createdAt.IsZero() {
		createdAt = now
	}
	return File{
		Version:     Version,
		CreatedAt:   createdAt.UTC(),
		UpdatedAt:   now.UTC(),
		DiagramKind: s.DiagramKind,
		Theme:       s.Theme,
		SourceText:  s.SourceText,
		Title:       s.ProjectTitle,
	}
}

func (f File) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "  ")
	return data, errors.WithStack(err)
}

// Raw returns the exact bytes of the source text.
func Raw(s session.State) []byte {
	return []byte(s.SourceText)
}

// SVG returns the rendered markup with the theme background applied to
// its root element.
func SVG(output string, theme diagram.Theme) []byte {
	return []byte(markup.WithBackground(output, theme.Background()))
}
