package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/internal/engine"
	"github.com/hexaflow/engine/pkg/api"
)

func TestResolveString(t *testing.T) {
	ctx := api.Context{
		"formData": map[string]any{"email": "a@b.com"},
		"count":    3,
	}

	res := engine.Resolve("to: {{context.formData.email}}", ctx)
	assert.Equal(t, "to: a@b.com", res)

	res = engine.Resolve("{{count}} items", ctx)
	assert.Equal(t, "3 items", res)
}

func TestResolveMissingPathIsEmpty(t *testing.T) {
	ctx := api.Context{"a": 1}
	res := engine.Resolve("x={{context.missing.path}}", ctx)
	assert.Equal(t, "x=", res)
}

func TestResolveIdempotent(t *testing.T) {
	ctx := api.Context{"user": map[string]any{"name": "Ada"}}
	once := engine.Resolve("hello {{context.user.name}}", ctx)
	twice := engine.Resolve(once, ctx)
	assert.Equal(t, once, twice)
}

func TestResolveArrayIndex(t *testing.T) {
	ctx := api.Context{
		"items": []any{
			map[string]any{"sku": "A-1"},
			map[string]any{"sku": "B-2"},
		},
	}
	res := engine.Resolve("first: {{context.items.0.sku}}", ctx)
	assert.Equal(t, "first: A-1", res)
}

func TestResolveRecursesStructurally(t *testing.T) {
	ctx := api.Context{"name": "lead"}
	cfg := map[string]any{
		"table": "{{context.name}}s",
		"values": map[string]any{
			"source": "{{context.name}}",
			"limit":  10,
		},
		"tags": []any{"{{context.name}}", "new"},
	}

	res := engine.ResolveConfig(cfg, ctx)
	assert.Equal(t, "leads", res["table"])
	values := res["values"].(map[string]any)
	assert.Equal(t, "lead", values["source"])
	assert.Equal(t, 10, values["limit"])
	tags := res["tags"].([]any)
	assert.Equal(t, "lead", tags[0])
}

func TestResolveWholeObjectMarker(t *testing.T) {
	ctx := api.Context{"form": map[string]any{"a": 1}}
	res := engine.Resolve("{{context.form}}", ctx)
	assert.Equal(t, `{"a":1}`, res)
}

func TestLookup(t *testing.T) {
	ctx := api.Context{"user": map[string]any{"age": 41}}

	val, ok := engine.Lookup(ctx, "user.age")
	assert.True(t, ok)
	assert.Equal(t, 41.0, val)

	val, ok = engine.Lookup(ctx, "context.user.age")
	assert.True(t, ok)
	assert.Equal(t, 41.0, val)

	_, ok = engine.Lookup(ctx, "user.height")
	assert.False(t, ok)
}
