// Package buildinfo exposes the version stamped into the binary at build time
package buildinfo

import "time"

// Set via -ldflags "-X github.com/xelth-com/garmentflow/internal/buildinfo.CommitHash=..." at build time
var (
	BuildTime  string
	CommitHash string
	Release    string
)

var started = time.Now().UTC()

// StartTime is the process start in RFC3339
var StartTime = started.Format(time.RFC3339)

// Started returns when the process started
func Started() time.Time {
	return started
}

// Version returns the release name, falling back to the commit hash
func Version() string {
	switch {
	case Release != "":
		return Release
	case CommitHash != "":
		return "dev-" + CommitHash
	default:
		return "dev"
	}
}
