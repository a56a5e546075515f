package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/editor"
	"github.com/stateful/diagrammer/internal/markup"
	"github.com/stateful/diagrammer/internal/project"
	"github.com/stateful/diagrammer/internal/session"
	"github.com/stateful/diagrammer/internal/store"
	"github.com/stateful/diagrammer/internal/ulid"
	"github.com/stateful/diagrammer/internal/version"
)

type errorResponse struct {
	Error string `json:"error"`
}

type renameRequest struct {
	OldText string `json:"oldText"`
	NewText string `json:"newText"`
}

type renameResponse struct {
	Changed  bool            `json:"changed"`
	Rule     string          `json:"rule,omitempty"`
	Snapshot editor.Snapshot `json:"snapshot"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "SERVING",
			"version": version.BaseVersion(),
		})
	})
	mux.HandleFunc("GET /api/templates", s.handleTemplates)
	mux.HandleFunc("POST /api/sessions", s.handleCreate)
	mux.HandleFunc("GET /api/sessions/{id}", s.withEditor(s.handleSnapshot))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleDelete)
	mux.HandleFunc("PUT /api/sessions/{id}/source", s.withEditor(s.handleSource))
	mux.HandleFunc("PUT /api/sessions/{id}/kind", s.withEditor(s.handleKind))
	mux.HandleFunc("PUT /api/sessions/{id}/theme", s.withEditor(s.handleTheme))
	mux.HandleFunc("PUT /api/sessions/{id}/title", s.withEditor(s.handleTitle))
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.withEditor(s.handleReset))
	mux.HandleFunc("POST /api/sessions/{id}/undo", s.withEditor(s.handleUndo))
	mux.HandleFunc("POST /api/sessions/{id}/redo", s.withEditor(s.handleRedo))
	mux.HandleFunc("POST /api/sessions/{id}/rename", s.withEditor(s.handleRename))
	mux.HandleFunc("POST /api/sessions/{id}/import", s.withEditor(s.handleImport))
	mux.HandleFunc("GET /api/sessions/{id}/export", s.withEditor(s.handleExport))
	mux.HandleFunc("GET /api/sessions/{id}/labels", s.withEditor(s.handleLabels))

	return mux
}

type editorHandler func(w http.ResponseWriter, r *http.Request, e *editor.Editor)

// withEditor resolves the session from the path, restoring a persisted
// session that is no longer held in memory.
func (s *Server) withEditor(h editorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		e, ok := s.sessions.GetByID(id)
		if !ok {
			if !ulid.ValidID(id) {
				writeError(w, http.StatusNotFound, errors.Errorf("session %q not found", id))
				return
			}
			if _, err := s.store.Get(r.Context(), session.KeyFor(id)); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					writeError(w, http.StatusNotFound, errors.Errorf("session %q not found", id))
				} else {
					writeError(w, http.StatusInternalServerError, err)
				}
				return
			}
			e = s.newEditor(r.Context(), id)
			s.sessions.Add(e)
			s.logger.Debug("restored session", zap.String("id", id))
		}

		h(w, r, e)
	}
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := make(map[diagram.Kind]string, len(diagram.Kinds))
	for _, k := range diagram.Kinds {
		templates[k] = diagram.Template(k)
	}
	writeJSON(w, http.StatusOK, templates)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	e, err := s.sessions.CreateAndAdd(func() (*editor.Editor, error) {
		return s.newEditor(r.Context(), ulid.GenerateID()), nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info("created session", zap.String("id", e.ID()))
	writeJSON(w, http.StatusCreated, e.Snapshot())
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if e, ok := s.sessions.DeleteByID(id); ok {
		e.Close()
	}
	if err := s.store.Delete(r.Context(), session.KeyFor(id)); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSnapshot returns the current view. With ?flush=true pending
// changes are rendered first.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	if flush, _ := strconv.ParseBool(r.URL.Query().Get("flush")); flush {
		e.Flush()
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleSource(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	var req struct {
		SourceText *string `json:"sourceText"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SourceText == nil {
		writeError(w, http.StatusBadRequest, errors.New("sourceText is required"))
		return
	}
	e.SetSourceText(*req.SourceText)
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleKind(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	var req struct {
		DiagramKind string `json:"diagramKind"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	kind, err := diagram.ParseKind(req.DiagramKind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := e.SetDiagramKind(kind); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	var req struct {
		Theme string `json:"theme"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	theme, err := diagram.ParseTheme(req.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := e.SetTheme(theme); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleTitle(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	var req struct {
		ProjectTitle string `json:"projectTitle"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	e.SetProjectTitle(req.ProjectTitle)
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request, e *editor.Editor) {
	e.ResetToTemplate()
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleUndo(w http.ResponseWriter, _ *http.Request, e *editor.Editor) {
	e.Undo()
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleRedo(w http.ResponseWriter, _ *http.Request, e *editor.Editor) {
	e.Redo()
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	var req renameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res := e.Rename(req.OldText, req.NewText)
	writeJSON(w, http.StatusOK, renameResponse{
		Changed:  res.Changed,
		Rule:     res.Rule,
		Snapshot: e.Snapshot(),
	})
}

// handleImport reads the raw file body. The file name, which selects the
// format, comes from the "filename" query parameter.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	name := r.URL.Query().Get("filename")

	data, err := io.ReadAll(io.LimitReader(r.Body, project.MaxImportSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "failed to read body"))
		return
	}

	imp, err := project.Import(name, data)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, project.ErrTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeError(w, status, err)
		return
	}

	e.Import(imp)
	writeJSON(w, http.StatusOK, e.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, e *editor.Editor) {
	format, err := project.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	art, err := e.Export(format)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, editor.ErrInvalidDiagram) {
			status = http.StatusConflict
		}
		writeError(w, status, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}

func (s *Server) handleLabels(w http.ResponseWriter, _ *http.Request, e *editor.Editor) {
	labels := markup.Labels(e.Flush().Output)
	if labels == nil {
		labels = []string{}
	}
	writeJSON(w, http.StatusOK, labels)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
