// Package logger provides structured logging for nodemesh components.
//
// Every component accepts a Logger and defaults to NoOpLogger. Fields are
// passed the same way throughout the code base, as a single map:
//
//	log.Info("Node announced", map[string]interface{}{
//	    "node_id": "n1",
//	    "organ":   "taxis",
//	})
//
// Field values and alternating key/value pairs are accepted as well:
//
//	log.Warn("Mirror publish failed", logger.Field{Key: "error", Value: err})
//	log.Debug("Prune sweep", "expired", 3)
//
// # Simple Logger
//
// SimpleLogger writes one line per entry to an io.Writer, either as JSON
// (default) or as human-readable text:
//
//	log := logger.New(logger.Options{Level: "debug", Format: "text", Output: os.Stderr})
//
// Child loggers created with With, WithField or WithFields carry their fields
// on every line and share the parent's writer.
//
// # Configuration
//
// NewSimpleLogger reads the level from NODEMESH_LOG_LEVEL, falling back to LOG_LEVEL.
package logger
