// Package project reads and writes the interchange formats of a session:
// raw diagram source and the JSON project file.
package project

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

// MaxImportSize is the largest payload accepted by Import, in bytes.
const MaxImportSize = 1_000_000

var (
	ErrTooLarge             = errors.Errorf("file exceeds the %d byte limit", MaxImportSize)
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrUnsupportedContent   = errors.New("file content is not text")
	ErrInvalidProject       = errors.New("invalid project file")
)

type Format string

const (
	FormatRaw     Format = "mmd"
	FormatProject Format = "mmdproj"
	FormatSVG     Format = "svg"
)

var extensions = map[string]Format{
	".mmd":     FormatRaw,
	".txt":     FormatRaw,
	".mmdproj": FormatProject,
	".json":    FormatProject,
}

// FormatOf resolves the import format from the file name extension.
func FormatOf(name string) (Format, error) {
	f, ok := extensions[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", errors.Wrapf(ErrUnsupportedExtension, "%q", filepath.Ext(name))
	}
	return f, nil
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(s), ".")); f {
	case FormatRaw, FormatProject, FormatSVG:
		return f, nil
	default:
		return "", errors.Errorf("unknown export format %q", s)
	}
}

// Extension returns the file extension written by Export.
func (f Format) Extension() string {
	return "." + string(f)
}

func isText(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("text/plain") || m.Is("application/json") {
			return true
		}
	}
	return false
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// Filename builds an export file name from a project title.
func Filename(title string, f Format) string {
	name := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(title), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		name = "diagram"
	}
	return name + f.Extension()
}
