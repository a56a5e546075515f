package renderer

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stateful/diagrammer/internal/diagram"
)

const fakeMmdc = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --input) in="$2"; shift;;
    --output) out="$2"; shift;;
    --configFile) cfg="$2"; shift;;
  esac
  shift
done
if grep -q bad "$in"; then
  echo "Error: Parse error on line 1:" >&2
  echo "bad" >&2
  echo "    at Parser.parse (mermaid.js:1:1)" >&2
  exit 1
fi
if grep -q colored "$in"; then
  printf '\033[31mError: Lexical error on line 2.\033[39m\n' >&2
  exit 1
fi
if grep -q crash "$in"; then
  echo "Browser crashed" >&2
  exit 2
fi
printf '<svg><text>%s</text><desc>%s</desc></svg>' "$(cat "$in")" "$(cat "$cfg")" > "$out"
`

func writeFakeMmdc(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-mmdc.sh")
	require.NoError(t, os.WriteFile(path, []byte(fakeMmdc), 0o700))
	return path
}

func TestMermaidCLI_Render(t *testing.T) {
	script := writeFakeMmdc(t)
	m, err := NewMermaidCLI("sh "+script, WithTempDir(t.TempDir()), WithCLILogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Theme = diagram.ThemeForest

	out, err := m.Render(context.Background(), Request{ID: "01", Source: "graph TD", Config: cfg})
	require.NoError(t, err)
	assert.Contains(t, out, "<text>graph TD</text>")
	assert.Contains(t, out, `"theme":"forest"`)
	assert.Contains(t, out, `"securityLevel":"strict"`)
	assert.Contains(t, out, `"maxTextSize":50000`)
	assert.Contains(t, out, `"htmlLabels":false`)
}

func TestMermaidCLI_SyntaxError(t *testing.T) {
	script := writeFakeMmdc(t)
	m, err := NewMermaidCLI("sh " + script)
	require.NoError(t, err)

	_, err = m.Render(context.Background(), Request{ID: "01", Source: "bad", Config: DefaultConfig()})
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "Parse error on line 1:\nbad", syntaxErr.Message)
}

func TestMermaidCLI_ColoredSyntaxError(t *testing.T) {
	script := writeFakeMmdc(t)
	m, err := NewMermaidCLI("sh " + script)
	require.NoError(t, err)

	_, err = m.Render(context.Background(), Request{ID: "01", Source: "colored", Config: DefaultConfig()})
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	assert.Equal(t, "Lexical error on line 2.", syntaxErr.Message)
}

func TestMermaidCLI_Failure(t *testing.T) {
	script := writeFakeMmdc(t)
	m, err := NewMermaidCLI("sh " + script)
	require.NoError(t, err)

	_, err = m.Render(context.Background(), Request{ID: "01", Source: "crash", Config: DefaultConfig()})
	require.Error(t, err)
	var syntaxErr *SyntaxError
	assert.False(t, errors.As(err, &syntaxErr))
	assert.Contains(t, err.Error(), "Browser crashed")
}

func TestMermaidCLI_MaxTextSize(t *testing.T) {
	m, err := NewMermaidCLI("does-not-exist")
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.MaxTextSize = 4
	_, err = m.Render(context.Background(), Request{ID: "01", Source: "graph TD", Config: cfg})
	var syntaxErr *SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
}

func TestNewMermaidCLI(t *testing.T) {
	m, err := NewMermaidCLI("")
	require.NoError(t, err)
	assert.Equal(t, []string{"mmdc"}, m.command)

	m, err = NewMermaidCLI(`npx -p "@mermaid-js/mermaid-cli" mmdc`)
	require.NoError(t, err)
	assert.Equal(t, []string{"npx", "-p", "@mermaid-js/mermaid-cli", "mmdc"}, m.command)

	_, err = NewMermaidCLI(`mmdc "unterminated`)
	require.Error(t, err)
}

func Test_syntaxErrorMessage(t *testing.T) {
	msg, ok := syntaxErrorMessage("Generating single mermaid chart\nError: Lexical error on line 3. Unrecognized text.\n...B --> C\n    at lex (file.js:1:2)")
	require.True(t, ok)
	assert.Equal(t, "Lexical error on line 3. Unrecognized text.\n...B --> C", msg)

	_, ok = syntaxErrorMessage("ENOENT: no such file")
	assert.False(t, ok)
}
