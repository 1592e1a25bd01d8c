// Package version holds build-time metadata injected via -ldflags
// (-X hostwatch/internal/version.Commit=...). Unset fields fall back to
// development defaults.
package version

import "runtime"

var (
	// Version is a SemVer tag like v1.2.3 for releases. Empty for dev builds.
	Version = ""
	// Commit is the short git SHA for the build.
	Commit = ""
	// Date is the UTC build timestamp in RFC3339 format.
	Date = ""
	// Dirty is "dirty" when the working tree had uncommitted changes, otherwise "clean".
	Dirty = ""
)

// String returns a compact human-readable version for logs and the CLI.
// For releases, returns Version. For dev builds, returns e.g. "dev-<sha>*" when dirty
// or "dev-<sha>" when clean. If no metadata is available, returns "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		suffix := Commit
		if Dirty == "dirty" {
			suffix += "*"
		}
		return "dev-" + suffix
	}
	return "dev"
}

// Info is the build metadata reported by the /version endpoint and the CLI.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"date,omitempty"`
	Dirty   bool   `json:"dirty"`
	Go      string `json:"go"`
}

// Get collects the linked build metadata.
func Get() Info {
	return Info{
		Version: String(),
		Commit:  Commit,
		Date:    Date,
		Dirty:   Dirty == "dirty",
		Go:      runtime.Version(),
	}
}
