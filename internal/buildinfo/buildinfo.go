// Package buildinfo carries version metadata stamped at link time.
package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/berrycheck/internal/buildinfo.Version=..."
var (
	Version    = "dev"
	CommitHash string // short git commit hash
	BuildTime  string // when the binary was compiled
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// String renders the version with its commit when known
func String() string {
	if CommitHash == "" {
		return Version
	}
	return Version + "+" + CommitHash
}
