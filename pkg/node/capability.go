package node

// Capability defaults
const (
	DefaultProtocol          = "http"
	DefaultCapabilityVersion = "1.0"
)

// Capability is a named feature a node offers. Names are unique within a node
// and compared case-sensitively.
type Capability struct {
	Name     string                 `json:"name"`
	Version  string                 `json:"version"`
	Protocol string                 `json:"protocol"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewCapability returns a capability with the default protocol.
func NewCapability(name, version string) Capability {
	return Capability{
		Name:     name,
		Version:  version,
		Protocol: DefaultProtocol,
	}
}

// clone copies the metadata map so callers cannot mutate registered state.
func (c Capability) clone() Capability {
	if c.Metadata != nil {
		md := make(map[string]interface{}, len(c.Metadata))
		for k, v := range c.Metadata {
			md[k] = v
		}
		c.Metadata = md
	}
	return c
}
