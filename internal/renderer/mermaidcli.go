package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/stateful/diagrammer/internal/ansi"
)

const DefaultCommand = "mmdc"

// syntaxErrorMarkers are prefixes of mermaid parser failures in the
// output of mmdc.
var syntaxErrorMarkers = []string{
	"Parse error",
	"Lexical error",
	"Syntax error",
	"No diagram type detected",
	"UnknownDiagramError",
	"Maximum text size",
}

// MermaidCLI renders diagrams by running the mermaid-cli executable.
type MermaidCLI struct {
	command []string
	tempDir string
	logger  *zap.Logger
}

type MermaidCLIOption func(*MermaidCLI)

func WithTempDir(dir string) MermaidCLIOption {
	return func(m *MermaidCLI) {
		m.tempDir = dir
	}
}

func WithCLILogger(logger *zap.Logger) MermaidCLIOption {
	return func(m *MermaidCLI) {
		m.logger = logger
	}
}

// NewMermaidCLI creates a renderer for the given command line, for example
// "mmdc" or "npx -p @mermaid-js/mermaid-cli mmdc".
func NewMermaidCLI(command string, opts ...MermaidCLIOption) (*MermaidCLI, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}

	args, err := shlex.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse renderer command %q", command)
	}
	if len(args) == 0 {
		return nil, errors.Errorf("empty renderer command")
	}

	m := &MermaidCLI{command: args}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m, nil
}

type mermaidConfig struct {
	Theme         string          `json:"theme"`
	SecurityLevel string          `json:"securityLevel"`
	MaxTextSize   int             `json:"maxTextSize"`
	FontFamily    string          `json:"fontFamily"`
	HTMLLabels    bool            `json:"htmlLabels"`
	Flowchart     mermaidFlowchart `json:"flowchart"`
}

type mermaidFlowchart struct {
	HTMLLabels bool `json:"htmlLabels"`
}

func (m *MermaidCLI) Render(ctx context.Context, req Request) (string, error) {
	if req.Config.MaxTextSize > 0 && len(req.Source) > req.Config.MaxTextSize {
		return "", &SyntaxError{Message: "Maximum text size in diagram exceeded"}
	}

	dir, err := os.MkdirTemp(m.tempDir, "render-"+req.ID+"-")
	if err != nil {
		return "", errors.Wrap(err, "failed to create render directory")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var (
		inputPath  = filepath.Join(dir, "input.mmd")
		outputPath = filepath.Join(dir, "output.svg")
		configPath = filepath.Join(dir, "config.json")
	)

	if err := os.WriteFile(inputPath, []byte(req.Source), 0o600); err != nil {
		return "", errors.Wrap(err, "failed to write input file")
	}

	cfg, err := json.Marshal(mermaidConfig{
		Theme:         string(req.Config.Theme),
		SecurityLevel: string(req.Config.SecurityLevel),
		MaxTextSize:   req.Config.MaxTextSize,
		FontFamily:    req.Config.FontFamily,
		HTMLLabels:    req.Config.HTMLLabels,
		Flowchart:     mermaidFlowchart{HTMLLabels: req.Config.HTMLLabels},
	})
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err := os.WriteFile(configPath, cfg, 0o600); err != nil {
		return "", errors.Wrap(err, "failed to write config file")
	}

	args := append([]string{}, m.command[1:]...)
	args = append(args,
		"--quiet",
		"--input", inputPath,
		"--output", outputPath,
		"--configFile", configPath,
		"--backgroundColor", "transparent",
	)

	cmd := exec.CommandContext(ctx, m.command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	m.logger.Debug("running renderer", zap.String("id", req.ID), zap.Strings("args", cmd.Args))

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "render cancelled")
		}
		output := ansi.Strip(strings.TrimSpace(stderr.String() + "\n" + stdout.String()))
		if msg, ok := syntaxErrorMessage(output); ok {
			return "", &SyntaxError{Message: msg}
		}
		return "", errors.Wrapf(err, "renderer failed: %s", output)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read renderer output")
	}
	return string(data), nil
}

// syntaxErrorMessage extracts the parser message starting at the first
// line containing a known marker.
func syntaxErrorMessage(output string) (string, bool) {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		for _, marker := range syntaxErrorMarkers {
			idx := strings.Index(line, marker)
			if idx < 0 {
				continue
			}
			rest := append([]string{line[idx:]}, lines[i+1:]...)
			var msg []string
			for _, l := range rest {
				// Stop at the stack trace.
				if strings.HasPrefix(strings.TrimSpace(l), "at ") {
					break
				}
				msg = append(msg, strings.TrimRight(l, " \t\r"))
			}
			return strings.TrimSpace(strings.Join(msg, "\n")), true
		}
	}
	return "", false
}
