// Package session holds the persisted editing session: the source text
// together with the settings that live outside the undo history.
package session

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/store"
)

// Key is the well-known store key of the local session.
const Key = "diagrammer-state"

// KeyFor returns the store key of a server session.
func KeyFor(id string) string {
	if id == "" {
		return Key
	}
	return Key + "/" + id
}

// State is the unit persisted and round-tripped. Rendered output is
// recomputed on load and never stored.
type State struct {
	SourceText   string        `json:"sourceText"`
	DiagramKind  diagram.Kind  `json:"diagramKind"`
	Theme        diagram.Theme `json:"theme"`
	ProjectTitle string        `json:"projectTitle"`
}

func Default() State {
	return DefaultFor(diagram.DefaultKind)
}

// DefaultFor returns a fresh state holding the template of kind.
func DefaultFor(kind diagram.Kind) State {
	return State{
		SourceText:  diagram.Template(kind),
		DiagramKind: kind,
		Theme:       diagram.ThemeDefault,
	}
}

func (s State) Encode() ([]byte, error) {
	data, err := json.Marshal(s)
	return data, errors.WithStack(err)
}

var stateSchema = gojsonschema.NewGoLoader(map[string]any{
	"type":     "object",
	"required": []string{"sourceText", "diagramKind", "theme"},
	"properties": map[string]any{
		"sourceText":   map[string]any{"type": "string"},
		"diagramKind":  map[string]any{"type": "string", "enum": kindNames()},
		"theme":        map[string]any{"type": "string", "enum": themeNames()},
		"projectTitle": map[string]any{"type": "string"},
	},
})

func kindNames() []string {
	names := make([]string, 0, len(diagram.Kinds))
	for _, k := range diagram.Kinds {
		names = append(names, string(k))
	}
	return names
}

func themeNames() []string {
	names := make([]string, 0, len(diagram.Themes))
	for _, t := range diagram.Themes {
		names = append(names, string(t))
	}
	return names
}

// ValidationError lists every schema violation of a decoded document.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid session state: " + strings.Join(e.Errors, "; ")
}

// Decode checks the shape of data before unmarshalling it.
func Decode(data []byte) (State, error) {
	result, err := gojsonschema.Validate(stateSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return State{}, errors.Wrap(err, "failed to validate session state")
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return State{}, &ValidationError{Errors: msgs}
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, errors.WithStack(err)
	}
	return s, nil
}

// Load reads the state stored under key. A missing or malformed document
// yields Default without an error.
func Load(ctx context.Context, st store.Store, key string, logger *zap.Logger) State {
	if logger == nil {
		logger = zap.NewNop()
	}

	data, err := st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Info("failed to read session state, using defaults", zap.String("key", key), zap.Error(err))
		}
		return Default()
	}

	s, err := Decode(data)
	if err != nil {
		logger.Debug("discarding malformed session state", zap.String("key", key), zap.Error(err))
		return Default()
	}
	return s
}

// Save writes the complete state under key. The last write wins.
func Save(ctx context.Context, st store.Store, key string, s State) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	return errors.Wrapf(st.Put(ctx, key, data), "failed to save session state %q", key)
}
