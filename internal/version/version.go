// Package version reports the version of the nextversion binary.
package version

import (
	"runtime/debug"
	"strings"
)

// develVersion is what "go build" records for the main module in a work tree.
const develVersion = "(devel)"

var readBuildInfo = debug.ReadBuildInfo

// Resolve returns ldflags when it was set at build time. Otherwise it falls
// back to the module version "go install" records, and finally to "dev".
func Resolve(ldflags string) string {
	if ldflags != "" && ldflags != "dev" {
		return strings.TrimPrefix(ldflags, "v")
	}
	if info, ok := readBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != develVersion {
		return strings.TrimPrefix(info.Main.Version, "v")
	}
	return "dev"
}
