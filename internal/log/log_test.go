package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Disabled(t *testing.T) {
	l, err := New(Options{})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.ErrorLevel))
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagrammer.log")

	l, err := New(Options{Enabled: true, Path: path})
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.DebugLevel))

	l.Info("hello", zap.String("kind", "flowchart"))
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"kind":"flowchart"`)
}

func TestNew_Verbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagrammer.log")

	l, err := New(Options{Enabled: true, Path: path, Verbose: true})
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestConfigure(t *testing.T) {
	prev := Get()
	t.Cleanup(func() { Set(prev) })

	l, err := Configure(Options{Enabled: true, Path: filepath.Join(t.TempDir(), "x.log")})
	require.NoError(t, err)
	assert.Same(t, l, Get())
}
