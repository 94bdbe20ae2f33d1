package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/hexaflow/engine/pkg/api"
)

type (
	// GraphSource resolves the deployed graphs a trigger adapter should
	// consider. Graph authoring and persistence are owned by the platform;
	// the engine only reads.
	GraphSource interface {
		GraphsForTrigger(
			ctx context.Context, tenantID string, t api.BlockType,
		) ([]*api.Graph, error)
	}

	// MemorySource is an in-process GraphSource for embedding and tests
	MemorySource struct {
		mu     sync.RWMutex
		graphs map[string][]*api.Graph
	}
)

var ErrGraphNotFound = errors.New("graph not found")

var _ GraphSource = (*MemorySource)(nil)

// NewMemorySource creates an empty in-process graph source
func NewMemorySource() *MemorySource {
	return &MemorySource{
		graphs: map[string][]*api.Graph{},
	}
}

// Register validates and deploys a graph for its tenant, replacing any
// prior deployment with the same ID
func (s *MemorySource) Register(g *api.Graph) error {
	if err := g.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deployed := s.graphs[g.TenantID]
	for i, existing := range deployed {
		if existing.ID == g.ID {
			deployed[i] = g
			return nil
		}
	}
	s.graphs[g.TenantID] = append(deployed, g)
	return nil
}

// Remove undeploys the identified graph
func (s *MemorySource) Remove(tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	deployed := s.graphs[tenantID]
	for i, g := range deployed {
		if g.ID == id {
			s.graphs[tenantID] = append(deployed[:i], deployed[i+1:]...)
			return nil
		}
	}
	return ErrGraphNotFound
}

// GraphsForTrigger returns the tenant's graphs containing a trigger of the
// given block type
func (s *MemorySource) GraphsForTrigger(
	_ context.Context, tenantID string, t api.BlockType,
) ([]*api.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []*api.Graph
	for _, g := range s.graphs[tenantID] {
		if g.StartsWith(t) {
			res = append(res, g)
		}
	}
	return res, nil
}
