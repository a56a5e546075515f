package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stateful/diagrammer/internal/config"
	"github.com/stateful/diagrammer/internal/diagram"
	"github.com/stateful/diagrammer/internal/renderer"
)

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "flow.svg", replaceExt("flow.mmd", ".svg"))
	assert.Equal(t, "docs/README-1.svg", replaceExt("docs/README.md", "-1.svg"))
	assert.Equal(t, "noext.svg", replaceExt("noext", ".svg"))
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, ".", configPath(""))
	assert.Equal(t, ".", configPath("-"))
	assert.Equal(t, ".", configPath("../outside.mmd"))
	assert.Equal(t, ".", configPath("does/not/exist.mmd"))
	assert.Equal(t, "common.go", configPath("common.go"))
	assert.Equal(t, "common.go", configPath("./common.go"))
}

func TestRendererConfig(t *testing.T) {
	cfg := config.Default()
	cfg.RendererSecurityLevel = "loose"
	cfg.RendererMaxTextSize = 10
	cfg.RendererHTMLLabels = true
	cfg.RendererTheme = "dark"

	rc := rendererConfig(cfg)
	assert.Equal(t, renderer.SecurityLoose, rc.SecurityLevel)
	assert.Equal(t, 10, rc.MaxTextSize)
	assert.True(t, rc.HTMLLabels)
	assert.Equal(t, diagram.ThemeDark, rc.Theme)

	cfg.RendererTheme = ""
	assert.Equal(t, diagram.ThemeDefault, rendererConfig(cfg).Theme)
}

func TestEditorOptions(t *testing.T) {
	cfg := config.Default()
	cfg.RendererDebounce = time.Millisecond

	opts := editorOptions(cfg, nil, zaptest.NewLogger(t))
	assert.Len(t, opts, 4)
}

func TestWatcher_Matches(t *testing.T) {
	cfg := config.Default()
	cfg.WatchPatterns = []string{"**/*.mmd", "docs/*.mmdproj"}

	var out bytes.Buffer
	w, err := newWatcher(cfg, nil, "", &out, &out, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.True(t, w.matches("flow.mmd"))
	assert.True(t, w.matches("a/b/flow.mmd"))
	assert.True(t, w.matches("docs/project.mmdproj"))
	assert.False(t, w.matches("project.mmdproj"))
	assert.False(t, w.matches("docs/nested/project.mmdproj"))
	assert.False(t, w.matches("flow.svg"))
}

func TestWatcher_InvalidPattern(t *testing.T) {
	cfg := config.Default()
	cfg.WatchPatterns = []string{"[unclosed"}

	_, err := newWatcher(cfg, nil, "", nil, nil, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid watch pattern")
}

func TestWatcher_OutputPath(t *testing.T) {
	cfg := config.Default()

	w, err := newWatcher(cfg, nil, "", nil, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "docs/flow.svg", w.outputPath("docs/flow.mmd"))

	w.outputDir = "out"
	assert.Equal(t, "out/docs/flow.svg", w.outputPath("docs/flow.mmd"))
}
