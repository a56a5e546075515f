package diagram

import (
	"strings"

	"github.com/pkg/errors"
)

// Theme is the renderer theme name.
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeDark    Theme = "dark"
	ThemeForest  Theme = "forest"
	ThemeNeutral Theme = "neutral"
)

var Themes = []Theme{ThemeDefault, ThemeDark, ThemeForest, ThemeNeutral}

// backgrounds are used by exporters, the renderer leaves the canvas transparent.
var backgrounds = map[Theme]string{
	ThemeDefault: "#ffffff",
	ThemeDark:    "#1e1e1e",
	ThemeForest:  "#ffffff",
	ThemeNeutral: "#f8f8f8",
}

func (t Theme) String() string { return string(t) }

func (t Theme) Valid() bool {
	_, ok := backgrounds[t]
	return ok
}

// Background returns the export background color of the theme. Unknown
// themes fall back to the default one.
func (t Theme) Background() string {
	if c, ok := backgrounds[t]; ok {
		return c
	}
	return backgrounds[ThemeDefault]
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.Errorf("unknown theme %q", s)
	}
	return t, nil
}
