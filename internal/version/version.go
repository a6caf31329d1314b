// Package version holds the storedex build stamp, set with -ldflags "-X".
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the stamp as "storedex <version> (<commit>, built <date>)".
func String() string {
	return fmt.Sprintf("storedex %s (%s, built %s)", Version, Commit, Date)
}
