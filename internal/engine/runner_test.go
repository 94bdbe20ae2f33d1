package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/internal/engine"
	"github.com/hexaflow/engine/internal/record"
	"github.com/hexaflow/engine/pkg/api"
)

const testTenant = "acme"

func testRunner(
	opts ...engine.RunnerOption,
) (*engine.Runner, *record.MemoryStore) {
	store := record.NewMemoryStore()
	registry := engine.NewRegistry(&engine.Env{
		Records: store,
		Clock: func() time.Time {
			return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
		},
	})
	return engine.NewRunner(registry, opts...), store
}

func formGraph() *api.Graph {
	return &api.Graph{
		ID:       "lead-intake",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:   "on-submit",
				Kind: api.KindTrigger,
				Type: api.TriggerFormSubmit,
			},
			{
				ID:   "has-email",
				Kind: api.KindCondition,
				Type: api.ConditionFieldFilled,
				Config: map[string]any{
					"field": "formData.email",
				},
			},
			{
				ID:   "save-lead",
				Kind: api.KindAction,
				Type: api.ActionRecordCreate,
				Config: map[string]any{
					"table": "leads",
					"values": map[string]any{
						"email": "{{context.formData.email}}",
					},
				},
			},
			{
				ID:   "warn",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "email is required",
					"level":   "warning",
				},
			},
		},
		Edges: []*api.Edge{
			{Source: "on-submit", Target: "has-email"},
			{Source: "has-email", Target: "save-lead", Label: api.LabelYes},
			{Source: "has-email", Target: "warn", Label: api.LabelNo},
		},
	}
}

func TestRunFormGraphYesBranch(t *testing.T) {
	runner, store := testRunner()

	res, err := runner.Run(
		context.Background(), formGraph(),
		api.Context{"formData": map[string]any{"email": "a@b.com"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunCompleted, res.Status)
	assert.Equal(t, 3, res.Steps())
	assert.Equal(t, api.NodeID("save-lead"), res.LastEntry().NodeID)

	created := res.Context.GetMap("record")
	assert.NotNil(t, created)
	assert.Equal(t, "a@b.com", created["email"])
	assert.NotEmpty(t, created["id"])

	recs, err := store.Find(
		context.Background(), testTenant, "leads", record.Query{},
	)
	assert.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestRunFormGraphNoBranch(t *testing.T) {
	runner, store := testRunner()

	res, err := runner.Run(
		context.Background(), formGraph(),
		api.Context{"formData": map[string]any{}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunCompleted, res.Status)
	assert.Equal(t, 3, res.Steps())
	assert.Equal(t, api.NodeID("warn"), res.LastEntry().NodeID)

	toast := res.Context.GetMap("toast")
	assert.Equal(t, "email is required", toast["message"])

	recs, err := store.Find(
		context.Background(), testTenant, "leads", record.Query{},
	)
	assert.NoError(t, err)
	assert.Empty(t, recs, "no record created on the no branch")
}

func TestRunUntriggeredEndsWithZeroSideEffects(t *testing.T) {
	runner, store := testRunner()

	// a page-load event never satisfies the form-submit trigger
	res, err := runner.Run(
		context.Background(), formGraph(),
		api.Context{"page": map[string]any{"id": "home"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunCompleted, res.Status)
	assert.Equal(t, 1, res.Steps())
	assert.False(t, res.Trace[0].Outcome.Triggered)

	recs, err := store.Find(
		context.Background(), testTenant, "leads", record.Query{},
	)
	assert.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRunTriggerFaultFailsRun(t *testing.T) {
	runner, store := testRunner()

	g := &api.Graph{
		ID:       "bad-schedule",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:   "tick",
				Kind: api.KindTrigger,
				Type: api.TriggerSchedule,
				Config: map[string]any{
					"mode":  "interval",
					"value": "{{context.n}}",
					"unit":  "lightyears",
				},
			},
			{
				ID:   "log-tick",
				Kind: api.KindAction,
				Type: api.ActionRecordCreate,
				Config: map[string]any{
					"table": "ticks",
				},
			},
		},
		Edges: []*api.Edge{{Source: "tick", Target: "log-tick"}},
	}

	res, err := runner.Run(
		context.Background(), g, api.Context{}, testTenant, "system",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunFailed, res.Status)
	assert.Equal(t, 1, res.Steps())
	assert.Contains(t, res.Trace[0].Outcome.Error, "lightyears")

	recs, err := store.Find(
		context.Background(), testTenant, "ticks", record.Query{},
	)
	assert.NoError(t, err)
	assert.Empty(t, recs, "a faulting trigger must not reach actions")
}

func TestRunCycleGuard(t *testing.T) {
	runner, _ := testRunner()

	g := &api.Graph{
		ID:       "loop",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:   "start",
				Kind: api.KindTrigger,
				Type: api.TriggerPageLoad,
			},
			{
				ID:   "a",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "ping",
				},
			},
			{
				ID:   "b",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "pong",
				},
			},
		},
		Edges: []*api.Edge{
			{Source: "start", Target: "a"},
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	}

	res, err := runner.Run(
		context.Background(), g,
		api.Context{"page": map[string]any{"id": "home"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunAborted, res.Status)
	assert.Equal(t, api.HaltCycle, res.Halt)
	assert.Equal(t, 3, res.Steps(), "each node executed at most once")
}

func TestRunIterationCap(t *testing.T) {
	runner, _ := testRunner(engine.WithMaxIterations(2))

	res, err := runner.Run(
		context.Background(), formGraph(),
		api.Context{"formData": map[string]any{"email": "a@b.com"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunAborted, res.Status)
	assert.Equal(t, api.HaltIterationCap, res.Halt)
	assert.Equal(t, 2, res.Steps())
}

func TestRunCancelledContext(t *testing.T) {
	runner, _ := testRunner()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := runner.Run(
		ctx, formGraph(),
		api.Context{"formData": map[string]any{"email": "a@b.com"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunAborted, res.Status)
	assert.Equal(t, api.HaltCancelled, res.Halt)
	assert.Zero(t, res.Steps())
}

func TestRunFailedActionHaltsRun(t *testing.T) {
	runner, _ := testRunner()

	g := &api.Graph{
		ID:       "fails",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:   "start",
				Kind: api.KindTrigger,
				Type: api.TriggerPageLoad,
			},
			{
				ID:   "send",
				Kind: api.KindAction,
				Type: api.ActionSendEmail,
				Config: map[string]any{
					"to":      "ops@example.com",
					"subject": "hi",
				},
			},
			{
				ID:   "after",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "never shown",
				},
			},
		},
		Edges: []*api.Edge{
			{Source: "start", Target: "send"},
			{Source: "send", Target: "after"},
		},
	}

	// no mail sender is wired, so the send action fails
	res, err := runner.Run(
		context.Background(), g,
		api.Context{"page": map[string]any{"id": "home"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunFailed, res.Status)
	assert.Equal(t, 2, res.Steps())
	assert.NotEmpty(t, res.LastEntry().Outcome.Error)
}

func TestRunNoTrigger(t *testing.T) {
	runner, _ := testRunner()

	g := &api.Graph{
		ID:       "headless",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:   "only",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "hi",
				},
			},
		},
	}

	_, err := runner.Run(
		context.Background(), g, api.Context{}, testTenant, "user-1",
	)
	assert.ErrorIs(t, err, engine.ErrNoTrigger)
}

func TestRunSelectsTriggerByShape(t *testing.T) {
	runner, _ := testRunner()

	g := &api.Graph{
		ID:       "multi",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:   "on-load",
				Kind: api.KindTrigger,
				Type: api.TriggerPageLoad,
			},
			{
				ID:   "on-submit",
				Kind: api.KindTrigger,
				Type: api.TriggerFormSubmit,
			},
			{
				ID:   "done",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "saved",
				},
			},
		},
		Edges: []*api.Edge{
			{Source: "on-submit", Target: "done"},
		},
	}

	res, err := runner.Run(
		context.Background(), g,
		api.Context{"formData": map[string]any{"email": "a@b.com"}},
		testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.NodeID("on-submit"), res.Trace[0].NodeID)
	assert.Equal(t, api.RunCompleted, res.Status)
	assert.Equal(t, 2, res.Steps())
}
