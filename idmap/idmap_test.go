package idmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultwarden-hd/hdcore/idmap"
)

type item struct {
	ID    string
	Value int
}

func (i item) IdentityKey() string { return i.ID }

func TestInsertAppendsNewAndReplacesExisting(t *testing.T) {
	var m idmap.Map[string, item]
	_, existed := m.Insert(item{ID: "a", Value: 1})
	assert.False(t, existed)

	old, existed := m.Insert(item{ID: "a", Value: 2})
	assert.True(t, existed)
	assert.Equal(t, 1, old.Value)

	got, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got.Value)
}

func TestInsertAtAppendsAtLen(t *testing.T) {
	var m idmap.Map[string, item]
	m.Insert(item{ID: "a", Value: 1})
	m.InsertAt(item{ID: "b", Value: 2}, m.Len())
	assert.Equal(t, []string{"a", "b"}, ids(m.Items()))
}

func TestInsertAtMovesExistingAndKeepsOthersInOrder(t *testing.T) {
	var m idmap.Map[string, item]
	m.Insert(item{ID: "a", Value: 1})
	m.Insert(item{ID: "b", Value: 2})
	m.Insert(item{ID: "c", Value: 3})

	m.InsertAt(item{ID: "c", Value: 30}, 0)
	assert.Equal(t, []string{"c", "a", "b"}, ids(m.Items()))

	got, _ := m.Get("c")
	assert.Equal(t, 30, got.Value)
}

func TestTryInsertUniqueFailsOnDuplicate(t *testing.T) {
	var m idmap.Map[string, item]
	require.NoError(t, m.TryInsertUnique(item{ID: "a"}))
	assert.Error(t, m.TryInsertUnique(item{ID: "a"}))
}

func TestAppendIsIdempotent(t *testing.T) {
	var m idmap.Map[string, item]
	inserted, index := m.Append(item{ID: "a", Value: 1})
	assert.True(t, inserted)
	assert.Equal(t, 0, index)

	inserted, index = m.Append(item{ID: "a", Value: 2})
	assert.False(t, inserted)
	assert.Equal(t, 0, index)

	got, _ := m.Get("a")
	assert.Equal(t, 1, got.Value, "append must not overwrite an existing entry")
}

func TestUpdateWithMutatesInPlace(t *testing.T) {
	var m idmap.Map[string, item]
	m.Insert(item{ID: "a", Value: 1})

	existed := m.UpdateWith("a", func(v item) item {
		v.Value = 99
		return v
	})
	assert.True(t, existed)

	got, _ := m.Get("a")
	assert.Equal(t, 99, got.Value)

	assert.False(t, m.UpdateWith("missing", func(v item) item { return v }))
}

func TestTryUpdateWithErrorsOnAbsent(t *testing.T) {
	var m idmap.Map[string, item]
	assert.Error(t, m.TryUpdateWith("missing", func(v item) item { return v }))
}

func TestRemoveIDPreservesRemainingOrder(t *testing.T) {
	var m idmap.Map[string, item]
	m.Insert(item{ID: "a", Value: 1})
	m.Insert(item{ID: "b", Value: 2})
	m.Insert(item{ID: "c", Value: 3})

	_, existed := m.RemoveID("b")
	assert.True(t, existed)
	assert.Equal(t, []string{"a", "c"}, ids(m.Items()))

	_, existed = m.RemoveID("b")
	assert.False(t, existed)
}

func TestUpdateItemsRollsBackOnNetNewInsertion(t *testing.T) {
	var m idmap.Map[string, item]
	m.Insert(item{ID: "a", Value: 1})

	err := m.UpdateItems([]item{{ID: "a", Value: 2}, {ID: "new", Value: 3}})
	assert.Error(t, err)

	got, _ := m.Get("a")
	assert.Equal(t, 1, got.Value, "partial update must be rolled back")
	_, ok := m.Get("new")
	assert.False(t, ok)
}

func TestUpdateItemsAcceptsIdenticalContentUpdate(t *testing.T) {
	var m idmap.Map[string, item]
	m.Insert(item{ID: "a", Value: 1})

	err := m.UpdateItems([]item{{ID: "a", Value: 1}})
	assert.NoError(t, err)
}

func ids(items []item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}
