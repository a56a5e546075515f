package editor

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/stateful/diagrammer/internal/project"
)

// Artifact is an exported file.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

var contentTypes = map[project.Format]string{
	project.FormatRaw:     "text/plain; charset=utf-8",
	project.FormatProject: "application/json",
	project.FormatSVG:     "image/svg+xml",
}

// Export renders any pending change and writes the session in format.
// It fails with ErrInvalidDiagram while the source does not render.
func (e *Editor) Export(format project.Format) (Artifact, error) {
	rs := e.scheduler.Flush()
	if !rs.Valid {
		return Artifact{}, errors.Wrap(ErrInvalidDiagram, rs.Error)
	}

	e.mu.Lock()
	st := e.stateLocked()
	description := e.description
	e.mu.Unlock()

	var data []byte
	switch format {
	case project.FormatRaw:
		data = project.Raw(st)
	case project.FormatProject:
		f := project.NewFile(st, e.createdAt, e.now())
		f.Description = description
		var err error
		if data, err = f.Encode(); err != nil {
			return Artifact{}, err
		}
	case project.FormatSVG:
		if strings.TrimSpace(rs.Output) == "" {
			return Artifact{}, errors.Wrap(ErrInvalidDiagram, "nothing rendered")
		}
		data = project.SVG(rs.Output, st.Theme)
	default:
		return Artifact{}, errors.Errorf("unknown export format %q", format)
	}

	return Artifact{
		Filename:    project.Filename(st.ProjectTitle, format),
		ContentType: contentTypes[format],
		Data:        data,
	}, nil
}
