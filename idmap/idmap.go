// Package idmap implements the "ordered map keyed by id()" container
// used throughout the core: insertion order is preserved, keys are
// unique, and replace-by-id keeps position.
package idmap

import "github.com/vaultwarden-hd/hdcore/cerrors"

// Identifiable is anything that can be keyed by a stable, comparable
// identity for storage in a Map.
type Identifiable[K comparable] interface {
	IdentityKey() K
}

// Map is an order-preserving, id-keyed collection. The zero value is
// ready to use.
type Map[K comparable, V Identifiable[K]] struct {
	order []K
	items map[K]V
}

func (m *Map[K, V]) ensure() {
	if m.items == nil {
		m.items = make(map[K]V)
	}
}

// Len reports the number of elements.
func (m *Map[K, V]) Len() int { return len(m.order) }

// Get looks up the element with the given id.
func (m *Map[K, V]) Get(id K) (V, bool) {
	v, ok := m.items[id]
	return v, ok
}

// Items returns the elements in insertion order. The returned slice
// must not be mutated by the caller.
func (m *Map[K, V]) Items() []V {
	out := make([]V, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out
}

// Insert replaces the element at v's id if present (keeping its
// position) or appends it. It returns the old value and whether one
// existed.
func (m *Map[K, V]) Insert(v V) (old V, existed bool) {
	m.ensure()
	id := v.IdentityKey()
	old, existed = m.items[id]
	if !existed {
		m.order = append(m.order, id)
	}
	m.items[id] = v
	return old, existed
}

// InsertAt inserts v as new at position index, or, if v's id already
// exists, moves the existing entry to index and replaces its value.
// Position of every other element is otherwise unchanged.
func (m *Map[K, V]) InsertAt(v V, index int) {
	m.ensure()
	id := v.IdentityKey()
	if _, existed := m.items[id]; existed {
		m.removeFromOrder(id)
	}
	if index < 0 {
		index = 0
	}
	if index > len(m.order) {
		index = len(m.order)
	}
	m.order = append(m.order, id)
	copy(m.order[index+1:], m.order[index:])
	m.order[index] = id
	m.items[id] = v
}

// TryInsertUnique inserts v, failing with
// IdentifiableItemAlreadyExist if an element with the same id is
// already present.
func (m *Map[K, V]) TryInsertUnique(v V) error {
	m.ensure()
	id := v.IdentityKey()
	if _, existed := m.items[id]; existed {
		return cerrors.WithFields(cerrors.KindIdentifiableItemAlreadyExist, map[string]interface{}{"id": id})
	}
	m.order = append(m.order, id)
	m.items[id] = v
	return nil
}

// Append inserts v only if its id is not already present. It returns
// whether an insertion happened and the resulting index of v's id.
func (m *Map[K, V]) Append(v V) (inserted bool, index int) {
	m.ensure()
	id := v.IdentityKey()
	if i, existed := m.indexOf(id); existed {
		return false, i
	}
	m.order = append(m.order, id)
	m.items[id] = v
	return true, len(m.order) - 1
}

// UpdateWith mutates the element with the given id in place via fn,
// returning whether the id existed. Position is unchanged.
func (m *Map[K, V]) UpdateWith(id K, fn func(V) V) (existed bool) {
	m.ensure()
	v, ok := m.items[id]
	if !ok {
		return false
	}
	m.items[id] = fn(v)
	return true
}

// TryUpdateWith is like UpdateWith but errors with ElementDoesNotExist
// if id is absent.
func (m *Map[K, V]) TryUpdateWith(id K, fn func(V) V) error {
	if !m.UpdateWith(id, fn) {
		return cerrors.WithFields(cerrors.KindElementDoesNotExist, map[string]interface{}{"id": id})
	}
	return nil
}

// RemoveID removes the element with the given id, if present,
// returning it.
func (m *Map[K, V]) RemoveID(id K) (old V, existed bool) {
	m.ensure()
	old, existed = m.items[id]
	if !existed {
		return old, false
	}
	delete(m.items, id)
	m.removeFromOrder(id)
	return old, true
}

// UpdateItems applies fn to every element in items that already
// exists in the map. If any element in items would be a net-new
// insertion, the whole call is rolled back (no elements are updated)
// and an error is returned; an identical-content update of an
// existing id still counts as success.
func (m *Map[K, V]) UpdateItems(items []V) error {
	m.ensure()
	for _, v := range items {
		if _, ok := m.items[v.IdentityKey()]; !ok {
			return cerrors.WithFields(cerrors.KindElementDoesNotExist, map[string]interface{}{"id": v.IdentityKey()})
		}
	}
	for _, v := range items {
		m.items[v.IdentityKey()] = v
	}
	return nil
}

func (m *Map[K, V]) indexOf(id K) (int, bool) {
	for i, existing := range m.order {
		if existing == id {
			return i, true
		}
	}
	return 0, false
}

func (m *Map[K, V]) removeFromOrder(id K) {
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}
