package api

import (
	"errors"
	"fmt"
)

type (
	// NodeID uniquely identifies a node within a graph
	NodeID string

	// Label names a node's exit connector
	Label string

	// BlockKind is the coarse classification of a node
	BlockKind string

	// BlockType is the concrete block discriminator within a kind
	BlockType string

	// Node is one step in a workflow graph. Nodes are immutable once a
	// run starts; Config holds the kind-specific settings and its string
	// values may embed {{context.path}} placeholders.
	Node struct {
		Config map[string]any `json:"config,omitempty"`
		ID     NodeID         `json:"id"`
		Kind   BlockKind      `json:"kind"`
		Type   BlockType      `json:"type"`
	}

	// Edge is a labeled connector between two nodes
	Edge struct {
		Source NodeID `json:"source"`
		Target NodeID `json:"target"`
		Label  Label  `json:"label,omitempty"`
	}

	// Graph is a pre-validated set of nodes and edges owned by a tenant.
	// The authoring subsystem constructs it once; the engine treats it as
	// read-only.
	Graph struct {
		ID       string  `json:"id"`
		TenantID string  `json:"tenant_id"`
		Name     string  `json:"name,omitempty"`
		Nodes    []*Node `json:"nodes"`
		Edges    []*Edge `json:"edges"`
	}
)

const (
	KindTrigger   BlockKind = "trigger"
	KindCondition BlockKind = "condition"
	KindAction    BlockKind = "action"
)

const (
	LabelNext    Label = "next"
	LabelYes     Label = "yes"
	LabelNo      Label = "no"
	LabelDefault Label = "default"
)

var (
	ErrGraphIDEmpty    = errors.New("graph ID empty")
	ErrGraphNoNodes    = errors.New("graph has no nodes")
	ErrNodeIDEmpty     = errors.New("node ID empty")
	ErrNodeIDDuplicate = errors.New("duplicate node ID")
	ErrInvalidKind     = errors.New("invalid block kind")
	ErrUnknownType     = errors.New("unknown block type")
	ErrEdgeDangling    = errors.New("edge references unknown node")
	ErrEdgeDuplicate   = errors.New("duplicate edge for source and label")
)

var validKinds = map[BlockKind]struct{}{
	KindTrigger:   {},
	KindCondition: {},
	KindAction:    {},
}

// Validate checks graph structure at load time: node identity, known block
// types, dangling edges, and duplicate (source, label) pairs. A graph that
// fails validation never starts a run.
func (g *Graph) Validate() error {
	if g.ID == "" {
		return ErrGraphIDEmpty
	}
	if len(g.Nodes) == 0 {
		return ErrGraphNoNodes
	}

	ids := make(map[NodeID]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return ErrNodeIDEmpty
		}
		if _, ok := ids[n.ID]; ok {
			return fmt.Errorf("%w: %s", ErrNodeIDDuplicate, n.ID)
		}
		ids[n.ID] = struct{}{}

		if _, ok := validKinds[n.Kind]; !ok {
			return fmt.Errorf("%w: %s for node %s", ErrInvalidKind,
				n.Kind, n.ID)
		}
		if err := ValidateNodeConfig(n); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		if _, ok := ids[e.Source]; !ok {
			return fmt.Errorf("%w: source %s", ErrEdgeDangling, e.Source)
		}
		if _, ok := ids[e.Target]; !ok {
			return fmt.Errorf("%w: target %s", ErrEdgeDangling, e.Target)
		}

		key := string(e.Source) + "\x00" + string(e.EffectiveLabel())
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: (%s, %s)", ErrEdgeDuplicate,
				e.Source, e.EffectiveLabel())
		}
		seen[key] = struct{}{}
	}
	return nil
}

// EffectiveLabel returns the connector label, defaulting to "next"
func (e *Edge) EffectiveLabel() Label {
	if e.Label == "" {
		return LabelNext
	}
	return e.Label
}

// Node returns the node with the given ID, or nil when absent
func (g *Graph) Node(id NodeID) *Node {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Triggers returns the graph's trigger nodes in declaration order
func (g *Graph) Triggers() []*Node {
	var res []*Node
	for _, n := range g.Nodes {
		if n.Kind == KindTrigger {
			res = append(res, n)
		}
	}
	return res
}

// StartsWith reports whether the graph declares any trigger of the given
// block type
func (g *Graph) StartsWith(t BlockType) bool {
	for _, n := range g.Nodes {
		if n.Kind == KindTrigger && n.Type == t {
			return true
		}
	}
	return false
}
