package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	got := Default()

	expected := &Config{
		RendererCommand:       "mmdc",
		RendererSecurityLevel: "strict",
		RendererFontFamily:    "trebuchet ms, verdana, arial, sans-serif",
		RendererMaxTextSize:   50000,
		RendererTimeout:       30 * time.Second,
		RendererDebounce:      300 * time.Millisecond,

		EditorHistoryLimit: 50,
		EditorBatchWindow:  500 * time.Millisecond,

		StoreDriver: "file",
		StorePath:   ".diagrammer",

		ServerAddress:     "localhost:7863",
		ServerMaxSessions: 1024,

		WatchPatterns: []string{"**/*.mmd"},
	}

	opts := cmpopts.EquateEmpty()
	require.True(t, cmp.Equal(expected, got, opts), "%s", cmp.Diff(expected, got, opts))

	// Callers may modify the returned value.
	got.WatchPatterns[0] = "changed"
	assert.Equal(t, "**/*.mmd", Default().WatchPatterns[0])
}

func TestParseYAML(t *testing.T) {
	testCases := []struct {
		name           string
		rawConfig      string
		modify         func(*Config)
		errorSubstring string
	}{
		{
			name:      "only version",
			rawConfig: "version: v1alpha1\n",
			modify:    func(*Config) {},
		},
		{
			name: "renderer",
			rawConfig: `version: v1alpha1
renderer:
  command: "npx -y @mermaid-js/mermaid-cli"
  security_level: loose
  debounce: 1s
  html_labels: true
`,
			modify: func(c *Config) {
				c.RendererCommand = "npx -y @mermaid-js/mermaid-cli"
				c.RendererSecurityLevel = "loose"
				c.RendererDebounce = time.Second
				c.RendererHTMLLabels = true
			},
		},
		{
			name: "server and watch",
			rawConfig: `version: v1alpha1
server:
  allowed_origins: ["https://app.example.com"]
  tls:
    enabled: true
watch:
  patterns: ["docs/**/*.md"]
  filters:
    - type: FILTER_TYPE_FILE
      condition: "size < 1000"
`,
			modify: func(c *Config) {
				c.ServerAllowedOrigins = []string{"https://app.example.com"}
				c.ServerTLSEnabled = true
				c.WatchPatterns = []string{"docs/**/*.md"}
				c.Filters = []*Filter{{Type: FilterTypeFile, Condition: "size < 1000"}}
			},
		},
		{
			name:           "unknown version",
			rawConfig:      "version: v2\n",
			errorSubstring: "unknown version: v2",
		},
		{
			name: "unknown field",
			rawConfig: `version: v1alpha1
renderer:
  engine: chrome
`,
			errorSubstring: "failed to parse v1alpha1 config",
		},
		{
			name: "invalid values are all reported",
			rawConfig: `version: v1alpha1
renderer:
  security_level: none
editor:
  history_limit: 0
store:
  driver: redis
watch:
  filters:
    - type: FILTER_TYPE_DOCUMENT
      condition: "true"
`,
			errorSubstring: `renderer.security_level: invalid value "none"; editor.history_limit: must be positive; store.driver: invalid value "redis"; watch.filters[0].type: invalid value "FILTER_TYPE_DOCUMENT"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := ParseYAML([]byte(tc.rawConfig))

			if tc.errorSubstring != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errorSubstring)
				return
			}

			require.NoError(t, err)

			expected := Default()
			tc.modify(expected)

			opts := []cmp.Option{cmpopts.IgnoreUnexported(Filter{}), cmpopts.EquateEmpty()}
			require.True(
				t,
				cmp.Equal(expected, config, opts...),
				"%s", cmp.Diff(expected, config, opts...),
			)
		})
	}
}

func TestParseYAML_Multiple(t *testing.T) {
	cfg1 := []byte(`version: v1alpha1
store:
  driver: sqlite
  path: /tmp/a
`)
	cfg2 := []byte(`version: v1alpha1
store:
  path: /tmp/b
`)

	config, err := ParseYAML(cfg1, cfg2)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", config.StoreDriver)
	assert.Equal(t, "/tmp/b", config.StorePath)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()

	err := ApplyEnv(cfg, MapLookup(map[string]string{
		"DIAGRAMMER_RENDERER_DEBOUNCE":      "50ms",
		"DIAGRAMMER_SERVER_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com",
		"DIAGRAMMER_SERVER_TLS_ENABLED":     "true",
		"DIAGRAMMER_EDITOR_HISTORY_LIMIT":   "10",
		"UNRELATED":                         "x",
	}))
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.RendererDebounce)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.ServerAllowedOrigins)
	assert.True(t, cfg.ServerTLSEnabled)
	assert.Equal(t, 10, cfg.EditorHistoryLimit)

	err = ApplyEnv(Default(), MapLookup(map[string]string{"DIAGRAMMER_STORE_DRIVER": "redis"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver: invalid value "redis"`)
}
