package config

import (
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/stateful/godotenv"
	"go.uber.org/multierr"
)

// EnvPrefix prefixes every environment variable that overrides a field.
const EnvPrefix = "DIAGRAMMER_"

// DotEnvFiles are read, in order, from the config root by LoadDotEnv.
var DotEnvFiles = []string{".env", ".env.local"}

// LoadDotEnv reads the dotenv files present in fsys. Values from later
// files override earlier ones.
func LoadDotEnv(fsys fs.FS) (map[string]string, error) {
	result := make(map[string]string)
	for _, name := range DotEnvFiles {
		data, err := fs.ReadFile(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errors.WithStack(err)
		}

		env, _, err := godotenv.UnmarshalBytesWithComments(data)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", name)
		}
		for k, v := range env {
			result[k] = v
		}
	}
	return result, nil
}

type envField struct {
	name  string
	apply func(cfg *Config, value string) error
}

func stringField(name string, set func(*Config, string)) envField {
	return envField{name, func(cfg *Config, v string) error {
		set(cfg, v)
		return nil
	}}
}

func intField(name string, set func(*Config, int)) envField {
	return envField{name, func(cfg *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
		set(cfg, i)
		return nil
	}}
}

func boolField(name string, set func(*Config, bool)) envField {
	return envField{name, func(cfg *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
		set(cfg, b)
		return nil
	}}
}

func durationField(name string, set func(*Config, time.Duration)) envField {
	return envField{name, func(cfg *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, name)
		}
		set(cfg, d)
		return nil
	}}
}

func listField(name string, set func(*Config, []string)) envField {
	return envField{name, func(cfg *Config, v string) error {
		var items []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		set(cfg, items)
		return nil
	}}
}

var envFields = []envField{
	stringField("RENDERER_COMMAND", func(c *Config, v string) { c.RendererCommand = v }),
	stringField("RENDERER_SECURITY_LEVEL", func(c *Config, v string) { c.RendererSecurityLevel = v }),
	stringField("RENDERER_FONT_FAMILY", func(c *Config, v string) { c.RendererFontFamily = v }),
	intField("RENDERER_MAX_TEXT_SIZE", func(c *Config, v int) { c.RendererMaxTextSize = v }),
	boolField("RENDERER_HTML_LABELS", func(c *Config, v bool) { c.RendererHTMLLabels = v }),
	durationField("RENDERER_TIMEOUT", func(c *Config, v time.Duration) { c.RendererTimeout = v }),
	durationField("RENDERER_DEBOUNCE", func(c *Config, v time.Duration) { c.RendererDebounce = v }),
	stringField("RENDERER_THEME", func(c *Config, v string) { c.RendererTheme = v }),
	intField("EDITOR_HISTORY_LIMIT", func(c *Config, v int) { c.EditorHistoryLimit = v }),
	durationField("EDITOR_BATCH_WINDOW", func(c *Config, v time.Duration) { c.EditorBatchWindow = v }),
	stringField("STORE_DRIVER", func(c *Config, v string) { c.StoreDriver = v }),
	stringField("STORE_PATH", func(c *Config, v string) { c.StorePath = v }),
	stringField("SERVER_ADDRESS", func(c *Config, v string) { c.ServerAddress = v }),
	listField("SERVER_ALLOWED_ORIGINS", func(c *Config, v []string) { c.ServerAllowedOrigins = v }),
	intField("SERVER_MAX_SESSIONS", func(c *Config, v int) { c.ServerMaxSessions = v }),
	boolField("SERVER_DUMP_HTTP", func(c *Config, v bool) { c.ServerDumpHTTP = v }),
	boolField("SERVER_TLS_ENABLED", func(c *Config, v bool) { c.ServerTLSEnabled = v }),
	stringField("SERVER_TLS_CERT_FILE", func(c *Config, v string) { c.ServerTLSCertFile = v }),
	stringField("SERVER_TLS_KEY_FILE", func(c *Config, v string) { c.ServerTLSKeyFile = v }),
	listField("WATCH_PATTERNS", func(c *Config, v []string) { c.WatchPatterns = v }),
	boolField("LOG_ENABLED", func(c *Config, v bool) { c.LogEnabled = v }),
	stringField("LOG_PATH", func(c *Config, v string) { c.LogPath = v }),
	boolField("LOG_VERBOSE", func(c *Config, v bool) { c.LogVerbose = v }),
}

// ApplyEnv overrides fields from DIAGRAMMER_* variables found by lookup
// and validates the result.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	var err error
	for _, f := range envFields {
		v, ok := lookup(EnvPrefix + f.name)
		if !ok {
			continue
		}
		err = multierr.Append(err, f.apply(cfg, v))
	}
	if err != nil {
		return err
	}
	return errors.Wrap(validateConfig(cfg), "failed to validate config")
}

// Lookup chains lookup functions. The first one that knows a key wins.
func Lookup(lookups ...func(string) (string, bool)) func(string) (string, bool) {
	return func(key string) (string, bool) {
		for _, l := range lookups {
			if v, ok := l(key); ok {
				return v, true
			}
		}
		return "", false
	}
}

// MapLookup adapts a map to a lookup function.
func MapLookup(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
