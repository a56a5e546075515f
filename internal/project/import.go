package project

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/stateful/diagrammer/internal/diagram"
)

// Imported carries the fields found in an imported file. Nil fields were
// absent or invalid and leave the current settings untouched.
type Imported struct {
	SourceText  string
	DiagramKind *diagram.Kind
	Theme       *diagram.Theme
	Title       *string
	Description *string
}

// Import validates and parses a file. Any error leaves the caller's
// session untouched.
func Import(name string, data []byte) (Imported, error) {
	format, err := FormatOf(name)
	if err != nil {
		return Imported{}, err
	}
	if len(data) > MaxImportSize {
		return Imported{}, ErrTooLarge
	}
	if !isText(data) {
		return Imported{}, ErrUnsupportedContent
	}

	if format == FormatProject {
		return importProject(data)
	}

	source := string(data)
	kind := diagram.Detect(source)
	return Imported{SourceText: source, DiagramKind: &kind}, nil
}

var projectSchema = gojsonschema.NewStringLoader(`{
	"type": "object",
	"required": ["sourceText"],
	"properties": {
		"sourceText": {"type": "string"}
	}
}`)

func importProject(data []byte) (Imported, error) {
	result, err := gojsonschema.Validate(projectSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Imported{}, errors.Wrap(ErrInvalidProject, err.Error())
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Imported{}, errors.Wrap(ErrInvalidProject, strings.Join(msgs, "; "))
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Imported{}, errors.Wrap(ErrInvalidProject, err.Error())
	}

	imp := Imported{SourceText: doc["sourceText"].(string)}

	if s, ok := doc["diagramKind"].(string); ok {
		if k, err := diagram.ParseKind(s); err == nil {
			imp.DiagramKind = &k
		}
	}
	if s, ok := doc["theme"].(string); ok {
		if th, err := diagram.ParseTheme(s); err == nil {
			imp.Theme = &th
		}
	}
	if s, ok := doc["title"].(string); ok {
		imp.Title = &s
	}
	if s, ok := doc["description"].(string); ok {
		imp.Description = &s
	}

	return imp, nil
}
