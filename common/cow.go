package common

import "github.com/rogpeppe/generic/ctrie"

// CowNodeMap is the copy-on-write NodeId -> V table that backs both Roster
// (V = *roster.storedNode, via the roster package's own wrapper) and
// MarkingMap (V = Marking). It is built on rogpeppe/generic's ctrie.Map,
// whose Clone() gives an O(1), independent, point-in-time snapshot that
// only path-copies the nodes actually touched after the clone — exactly the
// "per-node version tag, O(1) clone, O(depth) unshare" contract spec §4.2
// and §5 require, without this module having to hand-roll a persistent
// trie itself.
type CowNodeMap[V any] struct {
	m *ctrie.Map[int64, V]
}

func nodeIdEq(a, b int64) bool { return a == b }
func nodeIdHash(k int64) uint64 {
	// NodeId is a small signed integer; folding it to uint64 preserves
	// distinctness exactly, which is all ctrie's hash function needs.
	return uint64(k)
}

// NewCowNodeMap returns an empty, independently cloneable map.
func NewCowNodeMap[V any]() CowNodeMap[V] {
	return CowNodeMap[V]{m: ctrie.NewWithFuncs[int64, V](nodeIdEq, nodeIdHash)}
}

func (c CowNodeMap[V]) Get(id NodeId) (V, bool) {
	return c.m.Get(int64(id))
}

func (c CowNodeMap[V]) Set(id NodeId, v V) {
	c.m.Set(int64(id), v)
}

func (c CowNodeMap[V]) Delete(id NodeId) {
	c.m.Delete(int64(id))
}

// Clone returns an independent, writable snapshot: mutating the clone never
// mutates the receiver and vice versa.
func (c CowNodeMap[V]) Clone() CowNodeMap[V] {
	return CowNodeMap[V]{m: c.m.Clone()}
}

func (c CowNodeMap[V]) Len() int {
	return c.m.Len()
}

// Range iterates in unspecified order; callers that need a deterministic
// order (canonical serialization) must sort after collecting.
func (c CowNodeMap[V]) Range(f func(id NodeId, v V) bool) {
	it := c.m.Iterator()
	for it.Next() {
		if !f(NodeId(it.Key()), it.Value()) {
			return
		}
	}
}

// Keys returns every key currently in the map, unordered.
func (c CowNodeMap[V]) Keys() []NodeId {
	ret := make([]NodeId, 0, c.Len())
	c.Range(func(id NodeId, _ V) bool {
		ret = append(ret, id)
		return true
	})
	return ret
}
