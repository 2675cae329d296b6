package version

import "fmt"

// Build metadata of the smile-alarm binary, set with
// -ldflags "-X github.com/oshokin/smile-alarm/internal/version.Version=...".
var (
	Version   = "0.1.0"
	Commit    = "none"
	BuildTime = "unknown"
)

// Short returns the release version.
func Short() string {
	return Version
}

// Full returns the release version with its commit and build time.
func Full() string {
	return fmt.Sprintf("smile-alarm %s (commit %s, built %s)", Version, Commit, BuildTime)
}
