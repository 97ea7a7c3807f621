package nodemesh

import (
	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/discovery"
	"github.com/itsneelabh/nodemesh/pkg/events"
	"github.com/itsneelabh/nodemesh/pkg/logger"
	"github.com/itsneelabh/nodemesh/pkg/network"
	"github.com/itsneelabh/nodemesh/pkg/node"
)

// Re-exported types
type (
	Node          = node.Node
	Capability    = node.Capability
	Status        = node.Status
	RegistryEntry = node.RegistryEntry

	Announcement    = discovery.Announcement
	PeerFilter      = discovery.PeerFilter
	Route           = network.Route
	TopologySummary = network.TopologySummary

	Event  = events.Event
	Logger = logger.Logger

	Config    = core.Config
	Option    = core.Option
	MeshError = core.MeshError
)

// Status values
const (
	StatusInitializing   = node.StatusInitializing
	StatusOnline         = node.StatusOnline
	StatusDegraded       = node.StatusDegraded
	StatusOffline        = node.StatusOffline
	StatusDecommissioned = node.StatusDecommissioned
)

// Sentinel errors
var (
	ErrDuplicateCapability = core.ErrDuplicateCapability
	ErrDuplicateNode       = core.ErrDuplicateNode
	ErrUnknownNode         = core.ErrUnknownNode
	ErrNilNode             = core.ErrNilNode
)

var (
	NewNode         = node.New
	NewCapability   = node.NewCapability
	NewAnnouncement = discovery.NewAnnouncement
	ByOrgan         = discovery.ByOrgan
	ByCapability    = discovery.ByCapability
	NewConfig       = core.NewConfig
	DefaultConfig   = core.DefaultConfig
)
