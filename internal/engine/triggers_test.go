package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/internal/engine"
	"github.com/hexaflow/engine/pkg/api"
)

// runTrigger executes a trigger plus toast graph and reports whether the
// trigger fired
func runTrigger(
	t *testing.T, trigType api.BlockType, cfg map[string]any,
	initial api.Context,
) (bool, *api.RunResult) {
	t.Helper()
	runner, _ := testRunner()

	g := &api.Graph{
		ID:       "trig-graph",
		TenantID: testTenant,
		Nodes: []*api.Node{
			{
				ID:     "start",
				Kind:   api.KindTrigger,
				Type:   trigType,
				Config: cfg,
			},
			{
				ID:   "fired",
				Kind: api.KindAction,
				Type: api.ActionShowToast,
				Config: map[string]any{
					"message": "fired",
				},
			},
		},
		Edges: []*api.Edge{{Source: "start", Target: "fired"}},
	}

	res, err := runner.Run(
		context.Background(), g, initial, testTenant, "user-1",
	)
	assert.NoError(t, err)
	assert.Equal(t, api.RunCompleted, res.Status)
	return res.Trace[0].Outcome.Triggered, res
}

func TestPageLoadTrigger(t *testing.T) {
	fired, _ := runTrigger(t, api.TriggerPageLoad, nil,
		api.Context{"page": map[string]any{"id": "home"}})
	assert.True(t, fired)

	fired, _ = runTrigger(t, api.TriggerPageLoad,
		map[string]any{"page_id": "reports"},
		api.Context{"page": map[string]any{"id": "home"}})
	assert.False(t, fired)

	fired, _ = runTrigger(t, api.TriggerPageLoad,
		map[string]any{"enabled": false},
		api.Context{"page": map[string]any{"id": "home"}})
	assert.False(t, fired)
}

func TestFileDropTrigger(t *testing.T) {
	fired, _ := runTrigger(t, api.TriggerFileDrop,
		map[string]any{"extensions": []any{"pdf", ".docx"}},
		api.Context{"file": map[string]any{"name": "report.PDF"}})
	assert.True(t, fired, "extension match is case-insensitive")

	fired, _ = runTrigger(t, api.TriggerFileDrop,
		map[string]any{"extensions": []any{"pdf"}},
		api.Context{"file": map[string]any{"name": "notes.txt"}})
	assert.False(t, fired)
}

func TestRecordUpdatedTrigger(t *testing.T) {
	cfg := map[string]any{
		"table":   "leads",
		"columns": []any{"status"},
	}
	event := api.Context{
		"table":   "leads",
		"record":  map[string]any{"id": "r1", "status": "won"},
		"change":  "updated",
		"changed": []any{"status", "updated_at"},
	}

	fired, _ := runTrigger(t, api.TriggerRecordUpdated, cfg, event)
	assert.True(t, fired)

	fired, _ = runTrigger(t, api.TriggerRecordUpdated, cfg,
		event.Merge(api.Context{"table": "invoices"}))
	assert.False(t, fired, "table mismatch never fires")

	fired, _ = runTrigger(t, api.TriggerRecordUpdated, cfg,
		event.Merge(api.Context{"changed": []any{"notes"}}))
	assert.False(t, fired, "unwatched column changes never fire")
}

func TestRecordCreatedTrigger(t *testing.T) {
	cfg := map[string]any{"table": "leads"}
	fired, _ := runTrigger(t, api.TriggerRecordCreated, cfg, api.Context{
		"table":  "leads",
		"record": map[string]any{"id": "r1"},
		"change": "created",
	})
	assert.True(t, fired)

	fired, _ = runTrigger(t, api.TriggerRecordCreated, cfg, api.Context{
		"table":  "leads",
		"record": map[string]any{"id": "r1"},
		"change": "updated",
	})
	assert.False(t, fired)
}

func TestWebhookTriggerEventFilter(t *testing.T) {
	cfg := map[string]any{"event": "invoice.paid"}

	fired, _ := runTrigger(t, api.TriggerWebhook, cfg, api.Context{
		"body": map[string]any{"event": "invoice.paid", "amount": 10},
	})
	assert.True(t, fired)

	fired, _ = runTrigger(t, api.TriggerWebhook, cfg, api.Context{
		"body": map[string]any{"event": "invoice.voided"},
	})
	assert.False(t, fired)
}

func TestScheduleTriggerPatch(t *testing.T) {
	fired, res := runTrigger(t, api.TriggerSchedule,
		map[string]any{"mode": "interval", "value": 5, "unit": "minutes"},
		api.Context{"tick": map[string]any{}})
	assert.True(t, fired)

	sched := res.Context.GetMap("schedule")
	assert.Equal(t, int64(300_000), sched["interval_ms"])
}

func TestScheduleDelayMs(t *testing.T) {
	delay, err := engine.ScheduleDelayMs(&api.ScheduleConfig{
		Mode: api.ScheduleModeInterval, Value: 1.5, Unit: "hours",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(5_400_000), delay)

	delay, err = engine.ScheduleDelayMs(&api.ScheduleConfig{
		Mode: api.ScheduleModeCron, Cron: "0 9 * * 1",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(60_000), delay, "cron uses the placeholder delay")

	_, err = engine.ScheduleDelayMs(&api.ScheduleConfig{
		Mode: api.ScheduleModeInterval, Value: 5, Unit: "fortnights",
	})
	assert.ErrorIs(t, err, api.ErrInvalidSchedule)

	_, err = engine.ScheduleDelayMs(&api.ScheduleConfig{Mode: "lunar"})
	assert.ErrorIs(t, err, api.ErrUnknownScheduleMode)
}

func TestUserLoginTrigger(t *testing.T) {
	fired, res := runTrigger(t, api.TriggerUserLogin, nil, api.Context{
		"authResponse": map[string]any{
			"success": true,
			"token":   "Bearer abc123",
			"user": map[string]any{
				"id":    "u1",
				"email": "ada@example.com",
			},
		},
	})
	assert.True(t, fired)

	session := res.Context.GetMap("session")
	assert.Equal(t, "abc123", session["token"], "bearer prefix stripped")
	assert.NotEmpty(t, session["loggedInAt"])

	user := res.Context.GetMap("user")
	assert.Equal(t, "ada@example.com", user["email"])
}

func TestUserLoginTriggerRejectsFailedLogin(t *testing.T) {
	fired, _ := runTrigger(t, api.TriggerUserLogin, nil, api.Context{
		"authResponse": map[string]any{
			"success": false,
			"user": map[string]any{
				"id":    "u1",
				"email": "ada@example.com",
			},
		},
	})
	assert.False(t, fired)
}

func TestUserLoginTriggerRequiresIDAndEmail(t *testing.T) {
	fired, _ := runTrigger(t, api.TriggerUserLogin, nil, api.Context{
		"user": map[string]any{"id": "u1"},
	})
	assert.False(t, fired)
}

func TestUserLoginTriggerResponseShapes(t *testing.T) {
	fired, res := runTrigger(t, api.TriggerUserLogin, nil, api.Context{
		"response": map[string]any{
			"status": 200,
			"body": map[string]any{
				"token": "Bearer xyz789",
				"user": map[string]any{
					"id":    "u3",
					"email": "lin@example.com",
				},
			},
		},
	})
	assert.True(t, fired, "profile under a captured http response fires")

	user := res.Context.GetMap("user")
	assert.Equal(t, "lin@example.com", user["email"])

	session := res.Context.GetMap("session")
	assert.Equal(t, "xyz789", session["token"])

	fired, _ = runTrigger(t, api.TriggerUserLogin, nil, api.Context{
		"response": map[string]any{
			"user": map[string]any{
				"id":    "u4",
				"email": "mei@example.com",
			},
		},
	})
	assert.True(t, fired)
}

func TestUserLoginSessionEnrichment(t *testing.T) {
	fired, res := runTrigger(t, api.TriggerUserLogin, nil, api.Context{
		"session": map[string]any{
			"device": "mobile",
			"user": map[string]any{
				"id":    "u2",
				"email": "grace@example.com",
			},
		},
	})
	assert.True(t, fired)

	session := res.Context.GetMap("session")
	assert.Equal(t, "mobile", session["device"],
		"prior session fields survive enrichment")
}
