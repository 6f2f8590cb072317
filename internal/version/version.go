// Package version exposes build information injected through -ldflags.
package version

import "fmt"

//nolint:gochecknoglobals // Overridden at link time with -X.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0"
	// Commit is the VCS revision the binary was built from.
	Commit = "none"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Short returns the version only.
func Short() string {
	return Version
}

// Full returns version, commit and build time in one line.
func Full() string {
	return fmt.Sprintf("version: %s, commit: %s, built at: %s", Version, Commit, BuildTime)
}
