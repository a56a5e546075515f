package config

import (
	"bytes"
	"io"
	"slices"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/stateful/diagrammer/internal/diagram"
)

// Config is a uniform configuration structure for diagrammer.
// It should unify all past, current, and future config file versions.
type Config struct {
	// Renderer related fields.
	RendererCommand       string
	RendererSecurityLevel string
	RendererFontFamily    string
	RendererMaxTextSize   int
	RendererHTMLLabels    bool
	RendererTimeout       time.Duration
	RendererDebounce      time.Duration
	RendererTheme         string

	// Editor related fields.
	EditorHistoryLimit int
	EditorBatchWindow  time.Duration

	// Store related fields.
	StoreDriver string
	StorePath   string

	// Server related fields.
	ServerAddress        string
	ServerAllowedOrigins []string
	ServerMaxSessions    int
	ServerDumpHTTP       bool
	ServerTLSEnabled     bool
	ServerTLSCertFile    string
	ServerTLSKeyFile     string

	// Watch related fields.
	WatchPatterns []string
	Filters       []*Filter

	// Log related fields.
	LogEnabled bool
	LogPath    string
	LogVerbose bool
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	return defaults.clone()
}

func (c *Config) clone() *Config {
	result := *c
	result.ServerAllowedOrigins = slices.Clone(c.ServerAllowedOrigins)
	result.WatchPatterns = slices.Clone(c.WatchPatterns)
	result.Filters = nil
	for _, f := range c.Filters {
		result.Filters = append(result.Filters, &Filter{Type: f.Type, Condition: f.Condition})
	}
	return &result
}

// ParseYAML applies the configuration files in order on top of the
// defaults. Later files override fields set by earlier ones.
func ParseYAML(data ...[]byte) (*Config, error) {
	return parseYAML(Default(), data...)
}

func parseYAML(base *Config, data ...[]byte) (*Config, error) {
	cfg := base
	for _, d := range data {
		version, err := parseVersionFromYAML(d)
		if err != nil {
			return nil, err
		}

		switch version {
		case "v1alpha1":
			cfg, err = parseYAMLv1alpha1(d, cfg)
			if err != nil {
				return nil, errors.Wrap(err, "failed to parse v1alpha1 config")
			}
		default:
			return nil, errors.Errorf("unknown version: %s", version)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}

type versionOnly struct {
	Version string `yaml:"version"`
}

func parseVersionFromYAML(data []byte) (string, error) {
	var result versionOnly

	if err := yaml.Unmarshal(data, &result); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal version")
	}

	return result.Version, nil
}

type configV1alpha1 struct {
	Version  string `yaml:"version"`
	Renderer struct {
		Command       string        `yaml:"command"`
		SecurityLevel string        `yaml:"security_level"`
		FontFamily    string        `yaml:"font_family"`
		MaxTextSize   int           `yaml:"max_text_size"`
		HTMLLabels    bool          `yaml:"html_labels"`
		Timeout       time.Duration `yaml:"timeout"`
		Debounce      time.Duration `yaml:"debounce"`
		Theme         string        `yaml:"theme"`
	} `yaml:"renderer"`
	Editor struct {
		HistoryLimit int           `yaml:"history_limit"`
		BatchWindow  time.Duration `yaml:"batch_window"`
	} `yaml:"editor"`
	Store struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"store"`
	Server struct {
		Address        string   `yaml:"address"`
		AllowedOrigins []string `yaml:"allowed_origins"`
		MaxSessions    int      `yaml:"max_sessions"`
		DumpHTTP       bool     `yaml:"dump_http"`
		TLS            struct {
			Enabled  bool   `yaml:"enabled"`
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Watch struct {
		Patterns []string `yaml:"patterns"`
		Filters  []struct {
			Type      string `yaml:"type"`
			Condition string `yaml:"condition"`
		} `yaml:"filters"`
	} `yaml:"watch"`
	Log struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"log"`
}

// parseYAMLv1alpha1 decodes data over base. Fields absent from data keep
// their value from base.
func parseYAMLv1alpha1(data []byte, base *Config) (*Config, error) {
	c := configToV1alpha1(base)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.WithStack(err)
	}

	return configV1alpha1ToConfig(c), nil
}

func configToV1alpha1(cfg *Config) *configV1alpha1 {
	var c configV1alpha1
	c.Version = "v1alpha1"

	c.Renderer.Command = cfg.RendererCommand
	c.Renderer.SecurityLevel = cfg.RendererSecurityLevel
	c.Renderer.FontFamily = cfg.RendererFontFamily
	c.Renderer.MaxTextSize = cfg.RendererMaxTextSize
	c.Renderer.HTMLLabels = cfg.RendererHTMLLabels
	c.Renderer.Timeout = cfg.RendererTimeout
	c.Renderer.Debounce = cfg.RendererDebounce
	c.Renderer.Theme = cfg.RendererTheme

	c.Editor.HistoryLimit = cfg.EditorHistoryLimit
	c.Editor.BatchWindow = cfg.EditorBatchWindow

	c.Store.Driver = cfg.StoreDriver
	c.Store.Path = cfg.StorePath

	c.Server.Address = cfg.ServerAddress
	c.Server.AllowedOrigins = slices.Clone(cfg.ServerAllowedOrigins)
	c.Server.MaxSessions = cfg.ServerMaxSessions
	c.Server.DumpHTTP = cfg.ServerDumpHTTP
	c.Server.TLS.Enabled = cfg.ServerTLSEnabled
	c.Server.TLS.CertFile = cfg.ServerTLSCertFile
	c.Server.TLS.KeyFile = cfg.ServerTLSKeyFile

	c.Watch.Patterns = slices.Clone(cfg.WatchPatterns)
	for _, f := range cfg.Filters {
		c.Watch.Filters = append(c.Watch.Filters, struct {
			Type      string `yaml:"type"`
			Condition string `yaml:"condition"`
		}{Type: f.Type, Condition: f.Condition})
	}

	c.Log.Enabled = cfg.LogEnabled
	c.Log.Path = cfg.LogPath
	c.Log.Verbose = cfg.LogVerbose

	return &c
}

func configV1alpha1ToConfig(c *configV1alpha1) *Config {
	var filters []*Filter
	for _, f := range c.Watch.Filters {
		filters = append(filters, &Filter{
			Type:      f.Type,
			Condition: f.Condition,
		})
	}

	return &Config{
		RendererCommand:       c.Renderer.Command,
		RendererSecurityLevel: c.Renderer.SecurityLevel,
		RendererFontFamily:    c.Renderer.FontFamily,
		RendererMaxTextSize:   c.Renderer.MaxTextSize,
		RendererHTMLLabels:    c.Renderer.HTMLLabels,
		RendererTimeout:       c.Renderer.Timeout,
		RendererDebounce:      c.Renderer.Debounce,
		RendererTheme:         c.Renderer.Theme,

		EditorHistoryLimit: c.Editor.HistoryLimit,
		EditorBatchWindow:  c.Editor.BatchWindow,

		StoreDriver: c.Store.Driver,
		StorePath:   c.Store.Path,

		ServerAddress:        c.Server.Address,
		ServerAllowedOrigins: c.Server.AllowedOrigins,
		ServerMaxSessions:    c.Server.MaxSessions,
		ServerDumpHTTP:       c.Server.DumpHTTP,
		ServerTLSEnabled:     c.Server.TLS.Enabled,
		ServerTLSCertFile:    c.Server.TLS.CertFile,
		ServerTLSKeyFile:     c.Server.TLS.KeyFile,

		WatchPatterns: c.Watch.Patterns,
		Filters:       filters,

		LogEnabled: c.Log.Enabled,
		LogPath:    c.Log.Path,
		LogVerbose: c.Log.Verbose,
	}
}

var (
	securityLevels = []string{"strict", "antiscript", "loose", "sandbox"}
	storeDrivers   = []string{"file", "sqlite", "memory"}
)

func validateConfig(cfg *Config) error {
	var err error

	if cfg.RendererCommand == "" {
		err = multierr.Append(err, errors.New("renderer.command: must not be empty"))
	}
	if !slices.Contains(securityLevels, cfg.RendererSecurityLevel) {
		err = multierr.Append(err, errors.Errorf("renderer.security_level: invalid value %q", cfg.RendererSecurityLevel))
	}
	if cfg.RendererMaxTextSize <= 0 {
		err = multierr.Append(err, errors.New("renderer.max_text_size: must be positive"))
	}
	if cfg.RendererTimeout <= 0 {
		err = multierr.Append(err, errors.New("renderer.timeout: must be positive"))
	}
	if cfg.RendererDebounce < 0 {
		err = multierr.Append(err, errors.New("renderer.debounce: must not be negative"))
	}
	if cfg.RendererTheme != "" && !diagram.Theme(cfg.RendererTheme).Valid() {
		err = multierr.Append(err, errors.Errorf("renderer.theme: invalid value %q", cfg.RendererTheme))
	}
	if cfg.EditorHistoryLimit <= 0 {
		err = multierr.Append(err, errors.New("editor.history_limit: must be positive"))
	}
	if cfg.EditorBatchWindow < 0 {
		err = multierr.Append(err, errors.New("editor.batch_window: must not be negative"))
	}
	if !slices.Contains(storeDrivers, cfg.StoreDriver) {
		err = multierr.Append(err, errors.Errorf("store.driver: invalid value %q", cfg.StoreDriver))
	}
	if cfg.StoreDriver != "memory" && cfg.StorePath == "" {
		err = multierr.Append(err, errors.New("store.path: must not be empty"))
	}
	if cfg.ServerMaxSessions < 0 {
		err = multierr.Append(err, errors.New("server.max_sessions: must not be negative"))
	}
	for i, f := range cfg.Filters {
		if f.Type != FilterTypeFile && f.Type != FilterTypeBlock {
			err = multierr.Append(err, errors.Errorf("watch.filters[%d].type: invalid value %q", i, f.Type))
		}
		if f.Condition == "" {
			err = multierr.Append(err, errors.Errorf("watch.filters[%d].condition: must not be empty", i))
		}
	}

	return err
}
