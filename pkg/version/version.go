// Package version provides build and version information for SpecFusion.
package version

import (
	"fmt"
	"runtime"
)

// Version is the current version. Set via ldflags at build time:
// -X github.com/specfusion/specfusion/pkg/version.Version=$(VERSION)
var Version = "dev"

// Build information set via ldflags at build time.
var (
	// Commit is the git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// String renders the full version line.
func String() string {
	return fmt.Sprintf("specfusion %s (commit %s, built %s, %s)", Version, Commit, Date, GoVersion)
}
