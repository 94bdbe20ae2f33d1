package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/hexaflow/engine/internal/engine/scheduler"
	"github.com/hexaflow/engine/internal/record"
	"github.com/hexaflow/engine/pkg/api"
	"github.com/hexaflow/engine/pkg/log"
)

// systemActor identifies runs started by the engine itself rather than a
// user interaction
const systemActor = "system"

type (
	// TimerAdapter arms schedule triggers on the shared timer queue. Each
	// armed trigger is keyed by (tenant, graph, node) so re-deploying a
	// graph replaces its timers instead of stacking them.
	TimerAdapter struct {
		sched  *scheduler.Scheduler
		runner *Runner
		clock  func() time.Time
	}

	// RecordAdapter starts record-change runs from store write
	// notifications
	RecordAdapter struct {
		runner *Runner
		source GraphSource
	}
)

var _ record.ChangeListener = (*RecordAdapter)(nil)

// NewTimerAdapter creates a timer adapter over the given scheduler
func NewTimerAdapter(
	sched *scheduler.Scheduler, runner *Runner, clock func() time.Time,
) *TimerAdapter {
	if clock == nil {
		clock = time.Now
	}
	return &TimerAdapter{
		sched:  sched,
		runner: runner,
		clock:  clock,
	}
}

// ArmGraph registers a recurring timer for each enabled schedule trigger in
// the graph
func (a *TimerAdapter) ArmGraph(ctx context.Context, g *api.Graph) error {
	for _, t := range g.Triggers() {
		if t.Type != api.TriggerSchedule {
			continue
		}
		cfg := &api.ScheduleConfig{}
		if err := api.DecodeConfig(t.Config, cfg); err != nil {
			return err
		}
		if !enabled(cfg.Enabled) {
			continue
		}
		delay, err := ScheduleDelayMs(cfg)
		if err != nil {
			return err
		}
		a.arm(ctx, g, t, time.Duration(delay)*time.Millisecond)
	}
	return nil
}

// DisarmGraph cancels every timer the graph armed
func (a *TimerAdapter) DisarmGraph(
	ctx context.Context, tenantID, graphID string,
) {
	a.sched.CancelPrefix(ctx, []string{tenantID, graphID})
}

func (a *TimerAdapter) arm(
	ctx context.Context, g *api.Graph, node *api.Node, delay time.Duration,
) {
	path := []string{g.TenantID, g.ID, string(node.ID)}
	a.sched.Schedule(ctx, path, a.clock().Add(delay), func() error {
		initial := api.Context{
			"tick": map[string]any{
				"firedAt": a.clock().UTC().Format(time.RFC3339),
				"nodeId":  string(node.ID),
			},
		}
		res, err := a.runner.Run(ctx, g, initial, g.TenantID, systemActor)
		if err != nil {
			return err
		}
		slog.Debug("Scheduled run finished",
			log.RunID(res.RunID),
			log.GraphID(g.ID),
			log.Status(res.Status))

		// recurring: re-arm for the next tick
		a.arm(ctx, g, node, delay)
		return nil
	})
}

// NewRecordAdapter creates a listener that starts runs from record writes
func NewRecordAdapter(runner *Runner, source GraphSource) *RecordAdapter {
	return &RecordAdapter{
		runner: runner,
		source: source,
	}
}

func (a *RecordAdapter) RecordCreated(
	ctx context.Context, tenantID, table string, rec record.Record,
) {
	a.dispatch(ctx, tenantID, api.TriggerRecordCreated, api.Context{
		"table":  table,
		"record": map[string]any(rec),
		"change": "created",
	})
}

func (a *RecordAdapter) RecordUpdated(
	ctx context.Context, tenantID, table string, rec record.Record,
	changed []string,
) {
	a.dispatch(ctx, tenantID, api.TriggerRecordUpdated, api.Context{
		"table":   table,
		"record":  map[string]any(rec),
		"change":  "updated",
		"changed": changed,
	})
}

func (a *RecordAdapter) dispatch(
	ctx context.Context, tenantID string, t api.BlockType,
	initial api.Context,
) {
	graphs, err := a.source.GraphsForTrigger(ctx, tenantID, t)
	if err != nil {
		slog.Error("Failed to resolve record-change graphs",
			log.TenantID(tenantID),
			log.Error(err))
		return
	}

	for _, g := range graphs {
		res, err := a.runner.Run(ctx, g, initial, tenantID, systemActor)
		if err != nil {
			slog.Error("Record-change run failed to start",
				log.GraphID(g.ID),
				log.TenantID(tenantID),
				log.Error(err))
			continue
		}
		slog.Debug("Record-change run finished",
			log.RunID(res.RunID),
			log.GraphID(g.ID),
			log.Status(res.Status))
	}
}
