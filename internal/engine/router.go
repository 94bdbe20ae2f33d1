package engine

import (
	"fmt"

	"github.com/hexaflow/engine/pkg/api"
)

type (
	edgeKey struct {
		source api.NodeID
		label  api.Label
	}

	// EdgeIndex maps (source node, connector label) pairs to target nodes
	EdgeIndex map[edgeKey]api.NodeID
)

// NewEdgeIndex builds the routing index from a graph's edges. Duplicate
// (source, label) pairs are a load-time error.
func NewEdgeIndex(edges []*api.Edge) (EdgeIndex, error) {
	idx := make(EdgeIndex, len(edges))
	for _, e := range edges {
		key := edgeKey{source: e.Source, label: e.EffectiveLabel()}
		if _, ok := idx[key]; ok {
			return nil, fmt.Errorf("%w: (%s, %s)",
				api.ErrEdgeDuplicate, e.Source, e.EffectiveLabel())
		}
		idx[key] = e.Target
	}
	return idx, nil
}

// Next computes the target of the outgoing edge selected by the node's kind
// and the handler's routing hint. Absence of a matching edge ends the run
// gracefully at the node; it is not an error.
func (idx EdgeIndex) Next(node *api.Node, oc *api.Outcome) (api.NodeID, bool) {
	label := routeLabel(node, oc)

	target, ok := idx[edgeKey{source: node.ID, label: label}]
	if ok {
		return target, true
	}

	// A case with no dedicated edge falls back to the default connector
	if oc != nil && oc.Case != "" && label != api.LabelDefault {
		target, ok = idx[edgeKey{source: node.ID, label: api.LabelDefault}]
		return target, ok
	}
	return "", false
}

func routeLabel(node *api.Node, oc *api.Outcome) api.Label {
	if oc != nil {
		if node.Kind == api.KindCondition && oc.Branch != nil {
			if *oc.Branch {
				return api.LabelYes
			}
			return api.LabelNo
		}
		if oc.Case != "" {
			return oc.Case
		}
	}
	return api.LabelNext
}
