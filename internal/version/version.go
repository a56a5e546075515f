// Package version describes the running build. The variables are set at
// link time, for example:
//
//	-ldflags "-X github.com/stateful/diagrammer/internal/version.BuildVersion=1.2.0"
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

var (
	BuildDate    = "unknown"
	BuildVersion = "0.0.0"
	Commit       = "unknown"
)

// BaseVersion returns the major and minor version of the build, like "v1.7".
// Builds without a semantic version report "v0.0".
func BaseVersion() string {
	v, err := semver.NewVersion(BuildVersion)
	if err != nil {
		return "v0.0"
	}
	return fmt.Sprintf("v%d.%d", v.Major(), v.Minor())
}

func String() string {
	return fmt.Sprintf("diagrammer %s (%s) on %s", BuildVersion, Commit, BuildDate)
}
