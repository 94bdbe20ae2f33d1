package engine_test

import (
	"testing"

	"github.com/hexaflow/engine/pkg/api"
	"github.com/stretchr/testify/assert"
)

// the test clock pins "today" to 2026-03-15

func TestDateValidLeapDay(t *testing.T) {
	yes, _ := runCondition(t, api.ConditionDateValid,
		map[string]any{"values": []any{"2024-02-29"}}, nil)
	assert.True(t, yes, "leap day is valid under default rules")

	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":       []any{"2024-02-29"},
			"no_leap_year": true,
		}, nil)
	assert.False(t, yes)
}

func TestDateValidImpossibleDate(t *testing.T) {
	yes, _ := runCondition(t, api.ConditionDateValid,
		map[string]any{"values": []any{"02/30/2024"}}, nil)
	assert.False(t, yes, "February 30th never parses")
}

func TestDateValidFromContextField(t *testing.T) {
	yes, _ := runCondition(t, api.ConditionDateValid,
		map[string]any{"fields": []any{"formData.dueDate"}},
		api.Context{"formData": map[string]any{"dueDate": "2026-04-01"}})
	assert.True(t, yes)

	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"fields":   []any{"formData.dueDate"},
			"required": true,
		},
		api.Context{"formData": map[string]any{}})
	assert.False(t, yes, "required fails on a missing field")
}

func TestDateValidFutureAndPast(t *testing.T) {
	yes, _ := runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":      []any{"2026-04-01"},
			"future_only": true,
		}, nil)
	assert.True(t, yes)

	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":      []any{"2026-01-01"},
			"future_only": true,
		}, nil)
	assert.False(t, yes)

	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":    []any{"2026-01-01"},
			"past_only": true,
		}, nil)
	assert.True(t, yes)
}

func TestDateValidBounds(t *testing.T) {
	cfg := map[string]any{
		"values": []any{"2026-06-15"},
		"min":    "2026-06-01",
		"max":    "2026-06-30",
	}
	yes, _ := runCondition(t, api.ConditionDateValid, cfg, nil)
	assert.True(t, yes)

	cfg["values"] = []any{"2026-07-01"}
	yes, _ = runCondition(t, api.ConditionDateValid, cfg, nil)
	assert.False(t, yes)
}

func TestDateValidBusinessDaysAndWeekdays(t *testing.T) {
	// 2026-03-14 is a Saturday
	yes, _ := runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":        []any{"2026-03-14"},
			"business_days": true,
		}, nil)
	assert.False(t, yes)

	// 2026-03-16 is a Monday
	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":           []any{"2026-03-16"},
			"allowed_weekdays": []any{"mon", "tue"},
		}, nil)
	assert.True(t, yes)

	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":           []any{"2026-03-16"},
			"allowed_weekdays": []any{"friday"},
		}, nil)
	assert.False(t, yes)
}

func TestDateValidAge(t *testing.T) {
	yes, _ := runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":  []any{"2000-06-01"},
			"min_age": 18,
		}, nil)
	assert.True(t, yes, "25 years old passes an 18+ check")

	yes, _ = runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":  []any{"2010-06-01"},
			"min_age": 18,
		}, nil)
	assert.False(t, yes)
}

func TestDateValidAccumulatesViolations(t *testing.T) {
	yes, res := runCondition(t, api.ConditionDateValid,
		map[string]any{
			"values":        []any{"2026-03-14", "2026-03-16"},
			"business_days": true,
		}, nil)
	assert.False(t, yes, "one invalid date fails the set")

	detail := res.Context.GetMap("dateValidation")
	assert.NotNil(t, detail)
	assert.Equal(t, false, detail["allValid"])
	assert.Equal(t, true, detail["anyValid"])
}
