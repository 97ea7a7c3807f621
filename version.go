package nodemesh

// Version information
const (
	// Version is the current release
	Version = "development"

	// APIVersion is the HTTP API version served under /api/v1
	APIVersion = "v1"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
