package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/pkg/api"
)

func TestMergeShadowing(t *testing.T) {
	ctx := api.Context{"a": 1}
	merged := ctx.Merge(api.Context{"a": 2, "b": 3})

	assert.Equal(t, api.Context{"a": 2, "b": 3}, merged)
	assert.Equal(t, api.Context{"a": 1}, ctx, "source must not mutate")
}

func TestMergeAccumulatesAcrossPatches(t *testing.T) {
	ctx := api.Context{"a": 1}
	ctx = ctx.Merge(api.Context{"b": 2})
	ctx = ctx.Merge(api.Context{"c": 3})
	ctx = ctx.Merge(api.Context{"b": 20})

	assert.Equal(t, api.Context{"a": 1, "b": 20, "c": 3}, ctx)
}

func TestMergeNilPatch(t *testing.T) {
	ctx := api.Context{"a": 1}
	assert.Equal(t, ctx, ctx.Merge(nil))

	var empty api.Context
	merged := empty.Merge(api.Context{"x": true})
	assert.Equal(t, api.Context{"x": true}, merged)
}

func TestContextAccessors(t *testing.T) {
	ctx := api.Context{
		"name": "lead",
		"ok":   true,
		"form": map[string]any{"email": "a@b.com"},
	}

	assert.Equal(t, "lead", ctx.GetString("name", ""))
	assert.Equal(t, "dflt", ctx.GetString("missing", "dflt"))
	assert.Equal(t, "dflt", ctx.GetString("ok", "dflt"))
	assert.True(t, ctx.GetBool("ok", false))
	assert.False(t, ctx.GetBool("missing", false))
	assert.Equal(t,
		map[string]any{"email": "a@b.com"}, ctx.GetMap("form"))
	assert.Nil(t, ctx.GetMap("name"))
}

func TestOutcomeBuilders(t *testing.T) {
	oc := api.NewOutcome().
		WithPatch("k", "v").
		WithBranch(true).
		WithMessage("done")

	assert.True(t, oc.Success)
	assert.Equal(t, "v", oc.Patch["k"])
	assert.NotNil(t, oc.Branch)
	assert.True(t, *oc.Branch)
	assert.Equal(t, "done", oc.Message)

	un := api.Untriggered("nope")
	assert.False(t, un.Success)
	assert.False(t, un.Triggered)
	assert.Empty(t, un.Error)

	failed := api.Failed(assert.AnError)
	assert.False(t, failed.Success)
	assert.Equal(t, assert.AnError.Error(), failed.Error)
}
