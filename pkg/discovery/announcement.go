package discovery

import (
	"math"
	"time"

	"github.com/itsneelabh/nodemesh/core"
)

// DefaultTTLSeconds is the TTL NewAnnouncement assigns.
const DefaultTTLSeconds = int(core.DefaultAnnouncementTTL / time.Second)

// maxTTLSeconds is the largest TTL a time.Duration can hold. Longer TTLs are
// clamped to it (about 292 years).
const maxTTLSeconds = int64(math.MaxInt64 / int64(time.Second))

// Announcement is a node's declaration of presence.
type Announcement struct {
	NodeID       string    `json:"node_id"`
	Organ        string    `json:"organ"`
	Endpoint     string    `json:"endpoint"`
	Capabilities []string  `json:"capabilities"`
	Timestamp    time.Time `json:"timestamp"`
	TTLSeconds   int       `json:"ttl_seconds"`
}

// NewAnnouncement creates an announcement stamped with the current time and
// the default TTL.
func NewAnnouncement(nodeID, organ, endpoint string, capabilities []string) Announcement {
	return Announcement{
		NodeID:       nodeID,
		Organ:        organ,
		Endpoint:     endpoint,
		Capabilities: append([]string(nil), capabilities...),
		Timestamp:    time.Now(),
		TTLSeconds:   DefaultTTLSeconds,
	}
}

// TTL returns the time-to-live as a duration, clamped to the range a
// time.Duration can represent.
func (a Announcement) TTL() time.Duration {
	secs := int64(a.TTLSeconds)
	switch {
	case secs > maxTTLSeconds:
		return time.Duration(math.MaxInt64)
	case secs < -maxTTLSeconds:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(secs) * time.Second
}

// ExpiresAt is the last instant at which the announcement is still valid.
func (a Announcement) ExpiresAt() time.Time {
	return a.Timestamp.Add(a.TTL())
}

// ExpiredAt reports whether now is strictly after ExpiresAt.
func (a Announcement) ExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt())
}

// IsExpired reports whether the announcement has expired by the wall clock.
func (a Announcement) IsExpired() bool {
	return a.ExpiredAt(time.Now())
}
