package util_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexaflow/engine/pkg/util"
)

func TestPathTreeDetachWith(t *testing.T) {
	tree := util.NewPathTree[string]()
	tree.Insert([]string{"acme", "g1", "n1"}, "a")
	tree.Insert([]string{"acme", "g1", "n2"}, "b")
	tree.Insert([]string{"acme", "g2", "n1"}, "c")
	tree.Insert([]string{"globex", "g1", "n1"}, "d")

	var detached []string
	tree.DetachWith([]string{"acme", "g1"}, func(v string) {
		detached = append(detached, v)
	})
	sort.Strings(detached)
	assert.Equal(t, []string{"a", "b"}, detached)

	// remaining values survive
	detached = nil
	tree.DetachWith([]string{"acme"}, func(v string) {
		detached = append(detached, v)
	})
	assert.Equal(t, []string{"c"}, detached)
}

func TestPathTreeRemove(t *testing.T) {
	tree := util.NewPathTree[int]()
	tree.Insert([]string{"x", "y"}, 1)
	tree.Remove([]string{"x", "y"})

	var seen []int
	tree.DetachWith([]string{"x"}, func(v int) {
		seen = append(seen, v)
	})
	assert.Empty(t, seen)
}

func TestSetOperations(t *testing.T) {
	s := util.SetOf("a", "b")
	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("c"))

	s.Add("c")
	assert.True(t, s.Contains("c"))
	assert.Equal(t, 3, s.Len())

	s.Remove("a")
	assert.False(t, s.Contains("a"))
}

func TestLRUCacheEviction(t *testing.T) {
	cache := util.NewLRUCache[int](2)
	calls := 0
	get := func(key string, val int) int {
		res, err := cache.Get(key, func() (int, error) {
			calls++
			return val, nil
		})
		assert.NoError(t, err)
		return res
	}

	assert.Equal(t, 1, get("a", 1))
	assert.Equal(t, 2, get("b", 2))
	assert.Equal(t, 1, get("a", 99), "hit returns cached value")
	assert.Equal(t, 2, calls)

	get("c", 3)
	get("b", 42)
	assert.Equal(t, 4, calls, "b was evicted and rebuilt")
}

func TestLRUCacheConstructorError(t *testing.T) {
	cache := util.NewLRUCache[int](2)
	_, err := cache.Get("bad", func() (int, error) {
		return 0, assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	// a failed construction is not cached
	res, err := cache.Get("bad", func() (int, error) {
		return 7, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 7, res)
}
