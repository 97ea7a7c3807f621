package core

import "time"

// Environment Variables
const (
	EnvEnvFile  = "NODEMESH_ENV_FILE" // .env file loaded before the environment is read
	EnvRedisURL = "REDIS_URL"         // Redis connection URL for the mirror
	EnvPort     = "PORT"              // HTTP server port
)

// Registry defaults
const (
	// DefaultAnnouncementTTL is how long an announcement stays fresh without a re-announce.
	DefaultAnnouncementTTL = 300 * time.Second

	// DefaultPruneInterval is how often the sweeper calls PruneExpired.
	DefaultPruneInterval = 30 * time.Second

	// DefaultMirrorTTL bounds how long exported entries survive in Redis
	// after the daemon stops refreshing them.
	DefaultMirrorTTL = 90 * time.Second
)

// API paths
const (
	APIPrefix  = "/api/v1"
	HealthPath = "/health"
)
