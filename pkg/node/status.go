package node

import "fmt"

// Status is the operational state of a node.
//
// Only two transitions are driven by this package: Heartbeat moves Initializing
// to Online, and GoOffline moves any state to Offline. Degraded and
// Decommissioned are representable for management layers but never set here.
type Status uint8

const (
	StatusInitializing Status = iota
	StatusOnline
	StatusDegraded
	StatusOffline
	StatusDecommissioned
)

var statusNames = [...]string{
	StatusInitializing:   "initializing",
	StatusOnline:         "online",
	StatusDegraded:       "degraded",
	StatusOffline:        "offline",
	StatusDecommissioned: "decommissioned",
}

// AllStatuses lists every status in declaration order.
func AllStatuses() []Status {
	return []Status{StatusInitializing, StatusOnline, StatusDegraded, StatusOffline, StatusDecommissioned}
}

// String returns the lowercase tag used in registry entries and summaries.
func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// ParseStatus converts a lowercase tag back to a Status. Tags are matched
// exactly, so "ONLINE" is rejected.
func ParseStatus(tag string) (Status, error) {
	for i, name := range statusNames {
		if tag == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown node status %q", tag)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if int(s) >= len(statusNames) {
		return nil, fmt.Errorf("unknown node status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
