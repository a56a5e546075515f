// Package renderer turns diagram source into SVG markup.
//
// Rendering itself is delegated to an external [Renderer]. The [Scheduler]
// debounces source changes, tags every invocation with a fresh ID and
// drops results which are superseded by a newer invocation.
package renderer

import (
	"context"

	"github.com/stateful/diagrammer/internal/diagram"
)

type SecurityLevel string

const (
	// SecurityStrict encodes HTML tags in labels and disables click
	// handlers. It is the default.
	SecurityStrict     SecurityLevel = "strict"
	SecurityAntiscript SecurityLevel = "antiscript"
	SecurityLoose      SecurityLevel = "loose"
	SecuritySandbox    SecurityLevel = "sandbox"
)

const (
	DefaultMaxTextSize = 50000
	DefaultFontFamily  = "trebuchet ms, verdana, arial, sans-serif"
)

// Config is passed to the external renderer on every invocation.
type Config struct {
	Theme         diagram.Theme
	SecurityLevel SecurityLevel
	MaxTextSize   int
	FontFamily    string
	HTMLLabels    bool
}

func DefaultConfig() Config {
	return Config{
		Theme:         diagram.ThemeDefault,
		SecurityLevel: SecurityStrict,
		MaxTextSize:   DefaultMaxTextSize,
		FontFamily:    DefaultFontFamily,
		HTMLLabels:    false,
	}
}

type Request struct {
	// ID is unique per invocation.
	ID     string
	Source string
	Config Config
}

// Renderer is implemented by external diagram renderers.
type Renderer interface {
	Render(ctx context.Context, req Request) (string, error)
}

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, req Request) (string, error)

func (f RendererFunc) Render(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// SyntaxError is returned when the renderer rejects the source.
type SyntaxError struct {
	Message string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Message
}
