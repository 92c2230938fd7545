// FILE: logmonitor/src/internal/version/version.go
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is set at compile time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the full version line printed by the version command
func String() string {
	return fmt.Sprintf("logmonitor %s (commit: %s, built: %s, %s %s/%s)",
		Version, GitCommit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version tag
func Short() string {
	return Version
}
