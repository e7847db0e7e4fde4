package sessioncache

import (
	"github.com/goliatone/go-library-catalog/catalog"
)

type identityKey struct {
	kind catalog.Kind
	name string
}

func keyOf(e catalog.Entity) identityKey {
	return identityKey{kind: e.Kind(), name: e.DisplayName()}
}

// entry is a cached instance. A deleted entry is kept as a tombstone so name
// lookups report the pending delete instead of asking the database again.
type entry struct {
	entity  catalog.Entity
	deleted bool
}

// identityMap is the per transaction cache of entity instances. It is owned
// by exactly one Store and is not safe for concurrent use.
type identityMap struct {
	entries map[identityKey]*entry
	hits    uint64
	misses  uint64
}

func newIdentityMap() *identityMap {
	return &identityMap{entries: make(map[identityKey]*entry)}
}

// lookup returns the entry for key and counts the hit or miss.
func (m *identityMap) lookup(key identityKey) (*entry, bool) {
	ent, ok := m.entries[key]
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return ent, ok
}

// peek returns the entry for key without touching the counters.
func (m *identityMap) peek(key identityKey) (*entry, bool) {
	ent, ok := m.entries[key]
	return ent, ok
}

// byKey finds a cached entry of kind by primary key.
func (m *identityMap) byKey(kind catalog.Kind, id int64) (*entry, bool) {
	for k, ent := range m.entries {
		if k.kind == kind && ent.entity.Key() == id {
			return ent, true
		}
	}
	return nil, false
}

func (m *identityMap) put(e catalog.Entity) {
	m.entries[keyOf(e)] = &entry{entity: e}
}

func (m *identityMap) tombstone(e catalog.Entity) {
	m.entries[keyOf(e)] = &entry{entity: e, deleted: true}
}

// forget drops key if it still points at e.
func (m *identityMap) forget(key identityKey, e catalog.Entity) {
	if ent, ok := m.entries[key]; ok && ent.entity == e {
		delete(m.entries, key)
	}
}

// detach unlinks every live cached entity that references target.
func (m *identityMap) detach(target catalog.Entity) {
	for _, owner := range catalog.Dependents(target.Kind()) {
		for k, ent := range m.entries {
			if k.kind != owner || ent.deleted {
				continue
			}
			for _, rel := range catalog.RelationsOf(owner) {
				if rel.Target == target.Kind() && catalog.SameIdentity(rel.Get(ent.entity), target) {
					rel.Set(ent.entity, nil)
				}
			}
		}
	}
}

func (m *identityMap) clear() {
	clear(m.entries)
}

func (m *identityMap) len() int {
	return len(m.entries)
}
