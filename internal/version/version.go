// Package version exposes build metadata.
package version

// Overridden at build time with
// -ldflags "-X .../internal/version.Version=... -X .../internal/version.Commit=...".
//
//nolint:revive
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
