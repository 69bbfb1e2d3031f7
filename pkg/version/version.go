// Package version provides build metadata. The variables are set with
// -ldflags at release time.
package version

import (
	"fmt"
	"runtime"
)

var (
	// BuildVersion is the semantic version of the build
	BuildVersion = "0.1.0"

	// BuildCommit is the git commit hash of the build
	BuildCommit = "unknown"

	// BuildDate is the date and time of the build
	BuildDate = "unknown"
)

// String returns a formatted version string
func String() string {
	return fmt.Sprintf("ipredict version %s (%s) built on %s with %s",
		BuildVersion, BuildCommit, BuildDate, runtime.Version())
}

// UserAgent is the User-Agent sent to the valuation backend and the IP
// geolocation service.
func UserAgent() string {
	return "ipredict/" + BuildVersion
}

// Info returns the build metadata as log attributes.
func Info() []any {
	return []any{
		"version", BuildVersion,
		"commit", BuildCommit,
		"build_date", BuildDate,
		"go_version", runtime.Version(),
	}
}
