// Package marking implements the per-node provenance records (spec §3
// "Marking", §4.5) attached to every roster: the revision that birthed a
// node, and the set of revisions that last touched each mutable aspect of
// it. The three construction rules (no-parent, one-parent, merge) live
// alongside the type because they are the only producers of a MarkingMap.
package marking

import (
	"sort"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/roster"
)

// RevisionSet is a small set of revision ids, the unit every marking aspect
// is tracked as.
type RevisionSet map[common.RevisionId]bool

func NewRevisionSet(ids ...common.RevisionId) RevisionSet {
	ret := make(RevisionSet, len(ids))
	for _, id := range ids {
		ret[id] = true
	}
	return ret
}

func (s RevisionSet) Clone() RevisionSet {
	ret := make(RevisionSet, len(s))
	for id := range s {
		ret[id] = true
	}
	return ret
}

func (s RevisionSet) Union(other RevisionSet) RevisionSet {
	ret := s.Clone()
	for id := range other {
		ret[id] = true
	}
	return ret
}

// Intersects reports whether s and other share at least one revision id.
func (s RevisionSet) Intersects(other RevisionSet) bool {
	small, big := s, other
	if len(big) < len(small) {
		small, big = big, small
	}
	for id := range small {
		if big[id] {
			return true
		}
	}
	return false
}

// SubsetOf reports whether every id in s is also in other.
func (s RevisionSet) SubsetOf(other RevisionSet) bool {
	for id := range s {
		if !other[id] {
			return false
		}
	}
	return true
}

func (s RevisionSet) Equal(other RevisionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other[id] {
			return false
		}
	}
	return true
}

// Sorted returns the set's members in a stable (lexicographic hex) order,
// for deterministic serialization and test assertions.
func (s RevisionSet) Sorted() []common.RevisionId {
	ret := make([]common.RevisionId, 0, len(s))
	for id := range s {
		ret = append(ret, id)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].String() < ret[j].String() })
	return ret
}

// Marking records one node's provenance: the revision that introduced its
// id, the revisions that last set its (parent, name), the revisions that
// last set file content (files only), and a per-attr-key last-modifier set
// (spec §3 "Marking").
type Marking struct {
	BirthRevision common.RevisionId
	ParentName    RevisionSet
	FileContent   RevisionSet // nil for directories
	Attrs         map[common.AttrKey]RevisionSet
}

// Clone returns an independent copy; every RevisionSet and the Attrs map
// are copied so mutating the clone never mutates the receiver.
func (m Marking) Clone() Marking {
	ret := Marking{BirthRevision: m.BirthRevision}
	if m.ParentName != nil {
		ret.ParentName = m.ParentName.Clone()
	}
	if m.FileContent != nil {
		ret.FileContent = m.FileContent.Clone()
	}
	if m.Attrs != nil {
		ret.Attrs = make(map[common.AttrKey]RevisionSet, len(m.Attrs))
		for k, v := range m.Attrs {
			ret.Attrs[k] = v.Clone()
		}
	}
	return ret
}

// MarkingMap is a copy-on-write NodeId -> Marking table, mirroring
// roster.Roster's copy-on-write node table (spec §3 "A MarkingMap is
// ... also copy-on-write").
type MarkingMap struct {
	entries common.CowNodeMap[Marking]
}

func New() *MarkingMap {
	return &MarkingMap{entries: common.NewCowNodeMap[Marking]()}
}

func (mm *MarkingMap) Clone() *MarkingMap {
	return &MarkingMap{entries: mm.entries.Clone()}
}

func (mm *MarkingMap) Get(id common.NodeId) (Marking, bool) {
	return mm.entries.Get(id)
}

func (mm *MarkingMap) Set(id common.NodeId, m Marking) {
	mm.entries.Set(id, m)
}

func (mm *MarkingMap) Delete(id common.NodeId) {
	mm.entries.Delete(id)
}

func (mm *MarkingMap) Len() int {
	return mm.entries.Len()
}

func (mm *MarkingMap) Keys() []common.NodeId {
	return mm.entries.Keys()
}

// CheckConsistency verifies the MarkingMap invariant (spec §3): its key set
// equals the roster's node set, every file node's FileContent set is
// non-empty, and every node's Attrs map covers exactly the keys present on
// the node (live or dormant).
func CheckConsistency(r *roster.Roster, mm *MarkingMap) error {
	seen := 0
	err := r.Walk(func(path common.FilePath, n *roster.Node) error {
		seen++
		m, ok := mm.Get(n.Id)
		if !ok {
			return &common.IntegrityAssertion{Message: "marking missing for node " + path.String()}
		}
		if n.IsFile() && len(m.FileContent) == 0 {
			return &common.IntegrityAssertion{Message: "file node missing file_content marks: " + path.String()}
		}
		if len(m.Attrs) != len(n.Attrs) {
			return &common.IntegrityAssertion{Message: "attr marking count mismatch: " + path.String()}
		}
		for k := range n.Attrs {
			if _, ok := m.Attrs[k]; !ok {
				return &common.IntegrityAssertion{Message: "attr marking missing for key at " + path.String()}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if seen != mm.Len() {
		return &common.IntegrityAssertion{Message: "marking map has entries for nodes outside the roster"}
	}
	return nil
}

// NoParent builds the marking map for a root revision (spec §4.5
// "No-parent marking"): every aspect of every node is marked as introduced
// by rid.
func NoParent(r *roster.Roster, rid common.RevisionId) (*MarkingMap, error) {
	mm := New()
	err := r.Walk(func(path common.FilePath, n *roster.Node) error {
		m := Marking{
			BirthRevision: rid,
			ParentName:    NewRevisionSet(rid),
			Attrs:         map[common.AttrKey]RevisionSet{},
		}
		if n.IsFile() {
			m.FileContent = NewRevisionSet(rid)
		}
		for k := range n.Attrs {
			m.Attrs[k] = NewRevisionSet(rid)
		}
		mm.Set(n.Id, m)
		return nil
	})
	return mm, err
}

// OneParent builds the marking map for a non-merge revision (spec §4.5
// "One-parent marking"): child carries the new tree that resulted from
// applying a cset to parentRoster. For each node present in child, an
// aspect inherits the parent's mark set when it is unchanged from the
// parent, or becomes {rid} when it changed (or the node is new).
func OneParent(parentRoster *roster.Roster, parentMarks *MarkingMap, child *roster.Roster, rid common.RevisionId) (*MarkingMap, error) {
	mm := New()
	err := child.Walk(func(path common.FilePath, n *roster.Node) error {
		pn, err := parentRoster.GetNodeById(n.Id)
		isNew := err != nil
		var pm Marking
		if !isNew {
			pm, _ = parentMarks.Get(n.Id)
		}

		m := Marking{Attrs: map[common.AttrKey]RevisionSet{}}

		if isNew {
			m.BirthRevision = rid
		} else {
			m.BirthRevision = pm.BirthRevision
		}

		if isNew || pn.Parent != n.Parent || pn.Name != n.Name {
			m.ParentName = NewRevisionSet(rid)
		} else {
			m.ParentName = pm.ParentName.Clone()
		}

		if n.IsFile() {
			if isNew || !pn.IsFile() || pn.Content != n.Content {
				m.FileContent = NewRevisionSet(rid)
			} else {
				m.FileContent = pm.FileContent.Clone()
			}
		}

		for k, a := range n.Attrs {
			var pa common.Attr
			hadAttr := false
			if !isNew {
				pa, hadAttr = pn.Attrs[k]
			}
			if !hadAttr || pa != a {
				m.Attrs[k] = NewRevisionSet(rid)
			} else {
				m.Attrs[k] = pm.Attrs[k].Clone()
			}
		}

		mm.Set(n.Id, m)
		return nil
	})
	return mm, err
}
