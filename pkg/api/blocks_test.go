package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/pkg/api"
)

func TestDecodeConfigWeakTyping(t *testing.T) {
	cfg := &api.ScheduleConfig{}
	err := api.DecodeConfig(map[string]any{
		"mode":  "interval",
		"value": "5",
		"unit":  "minutes",
	}, cfg)

	assert.NoError(t, err)
	assert.Equal(t, api.ScheduleModeInterval, cfg.Mode)
	assert.Equal(t, 5.0, cfg.Value)
	assert.Equal(t, "minutes", cfg.Unit)
}

func TestValidateScheduleConfig(t *testing.T) {
	node := func(cfg map[string]any) *api.Node {
		return &api.Node{
			ID:     "sched",
			Kind:   api.KindTrigger,
			Type:   api.TriggerSchedule,
			Config: cfg,
		}
	}

	assert.NoError(t, api.ValidateNodeConfig(node(map[string]any{
		"mode": "interval", "value": 5, "unit": "minutes",
	})))
	assert.NoError(t, api.ValidateNodeConfig(node(map[string]any{
		"mode": "cron", "cron": "0 9 * * 1",
	})))
	assert.ErrorIs(t, api.ValidateNodeConfig(node(map[string]any{
		"mode": "interval",
	})), api.ErrInvalidSchedule)
	assert.ErrorIs(t, api.ValidateNodeConfig(node(map[string]any{
		"mode": "cron",
	})), api.ErrInvalidSchedule)
	assert.ErrorIs(t, api.ValidateNodeConfig(node(map[string]any{
		"mode": "lunar",
	})), api.ErrUnknownScheduleMode)
}

func TestValidateEmailConfig(t *testing.T) {
	n := &api.Node{
		ID:   "mail",
		Kind: api.KindAction,
		Type: api.ActionSendEmail,
		Config: map[string]any{
			"to": "ops@example.com",
		},
	}
	assert.ErrorIs(t, api.ValidateNodeConfig(n), api.ErrFieldRequired)

	n.Config["subject"] = "Weekly report"
	assert.NoError(t, api.ValidateNodeConfig(n))
}

func TestValidateHTTPRequestConfig(t *testing.T) {
	n := &api.Node{
		ID:   "call",
		Kind: api.KindAction,
		Type: api.ActionHTTPRequest,
		Config: map[string]any{
			"url":    "https://api.example.com",
			"method": "POST",
			"auth":   map[string]any{"type": "carrier-pigeon"},
		},
	}
	assert.ErrorIs(t, api.ValidateNodeConfig(n), api.ErrInvalidAuthType)

	n.Config["auth"] = map[string]any{"type": "bearer", "token": "tok"}
	assert.NoError(t, api.ValidateNodeConfig(n))
}

func TestValidateNavigateConfig(t *testing.T) {
	n := &api.Node{
		ID:     "nav",
		Kind:   api.KindAction,
		Type:   api.ActionNavigate,
		Config: map[string]any{},
	}
	assert.ErrorIs(t, api.ValidateNodeConfig(n), api.ErrNavigateNoTarget)

	n.Config["page_id"] = "dashboard"
	assert.NoError(t, api.ValidateNodeConfig(n))
}

func TestValidateRoleCheckAllowsEmptyConfig(t *testing.T) {
	n := &api.Node{
		ID:   "gate",
		Kind: api.KindCondition,
		Type: api.ConditionRoleCheck,
	}
	assert.NoError(t, api.ValidateNodeConfig(n))
}

func TestValidateDateValidRequiresInput(t *testing.T) {
	n := &api.Node{
		ID:     "dv",
		Kind:   api.KindCondition,
		Type:   api.ConditionDateValid,
		Config: map[string]any{},
	}
	assert.ErrorIs(t, api.ValidateNodeConfig(n), api.ErrDateValidNoInput)

	n.Config["values"] = []any{"2024-02-29"}
	assert.NoError(t, api.ValidateNodeConfig(n))
}
