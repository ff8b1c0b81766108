// Package version holds the build version, set with -ldflags at release time.
package version

// Version is the build version string.
var Version = "v0.1.0-dev"

// BuildTime is the build timestamp.
var BuildTime = "unknown"
