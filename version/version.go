// Package version carries the build identity stamped in at link time
// and derives the offline cache name from it.
package version

import "time"

// Set via -ldflags "-X github.com/plusopinion/go-client-core/version.Version=..."
// at build time.
var (
	Version = "dev"
	Build   = "local"
)

// BuildInfo describes one build of the client core.
type BuildInfo struct {
	Version   string    `json:"version"`
	Build     string    `json:"build"`
	Timestamp time.Time `json:"timestamp"`
}

// Info returns the running build's identity.
func Info() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Build:     Build,
		Timestamp: time.Now().UTC(),
	}
}

// CacheVersion is the version string used to stamp offline cache
// buckets. Development builds get a timestamp so every run starts from
// a fresh bucket, mirroring how release builds roll buckets per
// version.
func CacheVersion(now func() time.Time) string {
	if Version == "dev" {
		return now().UTC().Format("20060102150405")
	}
	return Version
}
