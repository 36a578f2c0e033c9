package version

// Overridden at build time via -ldflags.
var (
	Version   = "unknown"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
