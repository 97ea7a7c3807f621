package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/itsneelabh/nodemesh/core"
	"github.com/itsneelabh/nodemesh/pkg/discovery"
	"github.com/itsneelabh/nodemesh/pkg/node"
	"github.com/itsneelabh/nodemesh/pkg/telemetry"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req AnnounceRequest
	if !s.decode(w, r, &req) {
		return
	}

	ttl := s.defaultTTLSeconds()
	if req.TTLSeconds != nil {
		ttl = *req.TTLSeconds
	}

	n := s.discovery.Announce(r.Context(), discovery.Announcement{
		NodeID:       req.NodeID,
		Organ:        req.Organ,
		Endpoint:     req.Endpoint,
		Capabilities: req.Capabilities,
		TTLSeconds:   ttl,
	})
	s.writeJSON(w, r, http.StatusOK, n.RegistryEntry())
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters []discovery.PeerFilter
	if q.Has("organ") {
		filters = append(filters, discovery.ByOrgan(q.Get("organ")))
	}
	if q.Has("capability") {
		filters = append(filters, discovery.ByCapability(q.Get("capability")))
	}

	s.writeJSON(w, r, http.StatusOK, entries(s.discovery.FindPeers(r.Context(), filters...)))
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.discovery.Entries())
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, PruneResponse{Pruned: s.discovery.PruneExpired(r.Context())})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.network.Entries())
}

func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	var req RegisterNodeRequest
	if !s.decode(w, r, &req) {
		return
	}

	n := node.New(req.NodeID, req.Organ, req.Endpoint, node.WithMetadata(req.Metadata))
	for _, c := range req.Capabilities {
		if err := n.RegisterCapability(c); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	if req.Online {
		n.Heartbeat()
	}

	if err := s.network.RegisterNode(r.Context(), n); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, n.RegistryEntry())
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.network.GetNode(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, n.RegistryEntry())
}

func (s *Server) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.network.Routes())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req ConnectRequest
	if !s.decode(w, r, &req) {
		return
	}

	route, err := s.network.Connect(r.Context(), req.SourceID, req.TargetID, req.LatencyMs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, route)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.network.TopologySummary(r.Context()))
}

func (s *Server) handleCapability(w http.ResponseWriter, r *http.Request) {
	nodes := s.network.FindNodesByCapability(r.Context(), r.PathValue("name"))
	s.writeJSON(w, r, http.StatusOK, entries(nodes))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:       "healthy",
		KnownNodes:   s.discovery.KnownCount(),
		ActiveNodes:  s.discovery.ActiveCount(),
		NetworkNodes: len(s.network.NodeIDs()),
	})
}

// decode reads a JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "empty request body"
		}
		s.writeJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("%s: %v", msg, err),
		})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case core.IsNotFound(err):
		status = http.StatusNotFound
	case core.IsConflict(err):
		status = http.StatusConflict
	case core.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}

	resp := ErrorResponse{Error: err.Error()}
	var meshErr *core.MeshError
	if errors.As(err, &meshErr) {
		resp.Kind = meshErr.Kind
	}
	s.writeJSON(w, r, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", telemetry.EnrichLogFields(r.Context(), map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		}))
	}
}
