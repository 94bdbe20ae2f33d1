package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hexaflow/engine/pkg/api"
	"github.com/hexaflow/engine/pkg/log"
	"github.com/hexaflow/engine/pkg/util"
)

type (
	// Runner walks a graph from its start trigger, invoking block handlers
	// sequentially, merging context patches, and enforcing termination.
	// Runners are safe for concurrent use; independent runs share no
	// mutable state beyond the external systems actions touch.
	Runner struct {
		registry      *Registry
		maxIterations int
	}

	// RunnerOption configures a Runner
	RunnerOption func(*Runner)
)

// DefaultMaxIterations is the hard cap on nodes executed in a single run
const DefaultMaxIterations = 100

// WithMaxIterations overrides the per-run iteration budget
func WithMaxIterations(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// NewRunner creates a Runner dispatching through the given registry
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry:      registry,
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one bounded, single-pass run of the graph. The graph is
// treated as read-only; a fresh context is derived from initial and
// discarded with the result. Handler faults surface as failed outcomes in
// the trace, never as errors; the returned error covers only load-time
// graph problems.
func (r *Runner) Run(
	ctx context.Context, g *api.Graph, initial api.Context,
	tenantID, actorID string,
) (*api.RunResult, error) {
	edges, err := NewEdgeIndex(g.Edges)
	if err != nil {
		return nil, err
	}

	current, err := r.selectStart(g, initial)
	if err != nil {
		return nil, err
	}

	res := &api.RunResult{
		RunID:   uuid.NewString(),
		GraphID: g.ID,
		Status:  api.RunRunning,
		Context: initial.Merge(nil),
	}
	if res.Context == nil {
		res.Context = api.Context{}
	}

	visited := util.Set[api.NodeID]{}
	for i := 0; current != nil; i++ {
		if err := ctx.Err(); err != nil {
			res.Status = api.RunAborted
			res.Halt = api.HaltCancelled
			break
		}
		if i >= r.maxIterations {
			res.Status = api.RunAborted
			res.Halt = api.HaltIterationCap
			break
		}
		if visited.Contains(current.ID) {
			res.Status = api.RunAborted
			res.Halt = api.HaltCycle
			break
		}
		visited.Add(current.ID)

		oc, fault := r.invoke(ctx, current, res.Context, tenantID, actorID)
		entry := &api.TraceEntry{
			NodeID:   current.ID,
			NodeType: current.Type,
			Outcome:  oc,
		}
		if fault != nil {
			entry.Error = fault.Error()
		}
		res.Trace = append(res.Trace, entry)

		if fault != nil {
			slog.Error("Handler fault",
				log.RunID(res.RunID),
				log.NodeID(current.ID),
				log.Error(fault))
			res.Status = api.RunFailed
			break
		}

		res.Context = res.Context.Merge(oc.Patch)

		// A failed handler halts the run, even when the failing node is
		// the start trigger; retries must be modeled as explicit branches
		if !oc.Success && oc.Error != "" {
			res.Status = api.RunFailed
			break
		}

		// A non-triggered start node ends the run with no side effects
		if current.Kind == api.KindTrigger && !oc.Triggered {
			res.Status = api.RunCompleted
			break
		}

		next, ok := edges.Next(current, oc)
		if !ok {
			res.Status = api.RunCompleted
			break
		}
		current = g.Node(next)
	}

	if res.Status == api.RunRunning {
		res.Status = api.RunCompleted
	}

	slog.Info("Run finished",
		log.RunID(res.RunID),
		log.GraphID(res.GraphID),
		log.TenantID(tenantID),
		log.Status(res.Status),
		slog.Int("steps", res.Steps()))
	return res, nil
}

// invoke dispatches one node to its handler with panic containment. A
// recovered panic is the one fault class that halts the run outright.
func (r *Runner) invoke(
	ctx context.Context, node *api.Node, runCtx api.Context,
	tenantID, actorID string,
) (oc *api.Outcome, fault error) {
	handler, ok := r.registry.Handler(node.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, node.Type)
	}

	defer func() {
		if rec := recover(); rec != nil {
			oc = nil
			fault = fmt.Errorf("handler panic on node %s: %v", node.ID, rec)
		}
	}()

	req := &Request{
		Node:     node,
		Config:   ResolveConfig(node.Config, runCtx),
		Context:  runCtx,
		TenantID: tenantID,
		ActorID:  actorID,
		Env:      r.registry.env(),
	}
	return handler(ctx, req), nil
}

// selectStart picks the run's start node: the first trigger whose declared
// shape matches the inbound event, else the first declared trigger
func (r *Runner) selectStart(
	g *api.Graph, initial api.Context,
) (*api.Node, error) {
	triggers := g.Triggers()
	if len(triggers) == 0 {
		return nil, ErrNoTrigger
	}

	for _, t := range triggers {
		if triggerMatchesShape(t, initial) {
			return t, nil
		}
	}
	return triggers[0], nil
}
