// Package roster implements the in-memory, copy-on-write tree model: Node
// (a closed Dir/File variant) and Roster (the tree of nodes plus the
// transient old_locations ledger used while applying a cset).
package roster

import (
	"sort"

	"github.com/ironhold/revgraph/common"
)

// Kind distinguishes the two node variants. Node is a closed tagged
// variant: every method that cares about the distinction type-switches (or
// branches) on Kind and the total set of cases is exactly {Dir, File} —
// there is no way to construct a third kind.
type Kind int

const (
	KindDir Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// NullNodeId is the parent id carried by the root node, which has no parent.
const NullNodeId common.NodeId = 0

// Node is one entry of a Roster: either a directory (with an ordered child
// map) or a file (with a content id). Node values are treated as immutable
// once published into a Roster's node table — mutation always goes through
// Clone() first, matching the copy-on-write contract in spec §4.2.
type Node struct {
	Kind   Kind
	Id     common.NodeId
	Parent common.NodeId // NullNodeId for the root
	Name   common.PathComponent
	Attrs  common.AttrMap

	// Dir only.
	children map[common.PathComponent]common.NodeId

	// File only.
	Content common.FileId

	// neverAttached is true for a node minted by CreateDirNode/CreateFileNode
	// that has not yet been through AttachNode. Such a node may be dropped
	// even though old_locations never recorded it (spec §4.2).
	neverAttached bool
}

func NewDirNode(id, parent common.NodeId, name common.PathComponent) *Node {
	return &Node{
		Kind:     KindDir,
		Id:       id,
		Parent:   parent,
		Name:     name,
		Attrs:    common.AttrMap{},
		children: map[common.PathComponent]common.NodeId{},
	}
}

func NewFileNode(id, parent common.NodeId, name common.PathComponent, content common.FileId) *Node {
	return &Node{
		Kind:    KindFile,
		Id:      id,
		Parent:  parent,
		Name:    name,
		Attrs:   common.AttrMap{},
		Content: content,
	}
}

func (n *Node) IsDir() bool  { return n.Kind == KindDir }
func (n *Node) IsFile() bool { return n.Kind == KindFile }
func (n *Node) IsRoot() bool { return n.Parent == NullNodeId && n.Name == "" && n.IsDir() }

// Clone returns a deep-enough copy: the node struct, its attribute map, and
// (for directories) its child map are all copied, so mutating the clone
// never mutates the original. This is the unit of copy-on-write unsharing:
// callers clone a node before mutating it via GetNodeForUpdate.
func (n *Node) Clone() *Node {
	ret := *n
	ret.Attrs = n.Attrs.Clone()
	if n.IsDir() {
		ret.children = make(map[common.PathComponent]common.NodeId, len(n.children))
		for k, v := range n.children {
			ret.children[k] = v
		}
	}
	return &ret
}

// Child looks up a child by name.
func (n *Node) Child(name common.PathComponent) (common.NodeId, bool) {
	common.Assert(n.IsDir(), "Child called on a file node %d", n.Id)
	id, ok := n.children[name]
	return id, ok
}

// SetChild inserts or overwrites a child binding. The receiver must already
// be an unshared clone (see Clone).
func (n *Node) SetChild(name common.PathComponent, id common.NodeId) {
	common.Assert(n.IsDir(), "SetChild called on a file node %d", n.Id)
	n.children[name] = id
}

// RemoveChild removes a child binding. The receiver must already be an
// unshared clone.
func (n *Node) RemoveChild(name common.PathComponent) {
	common.Assert(n.IsDir(), "RemoveChild called on a file node %d", n.Id)
	delete(n.children, name)
}

// SortedChildren returns (name, id) pairs ordered by component, the order
// basic_io serialization walks children in (spec §4.1, §4.7).
func (n *Node) SortedChildren() []ChildEntry {
	common.Assert(n.IsDir(), "SortedChildren called on a file node %d", n.Id)
	ret := make([]ChildEntry, 0, len(n.children))
	for name, id := range n.children {
		ret = append(ret, ChildEntry{Name: name, Id: id})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret
}

func (n *Node) NumChildren() int {
	return len(n.children)
}

type ChildEntry struct {
	Name common.PathComponent
	Id   common.NodeId
}

// SetAttr sets a live attribute.
func (n *Node) SetAttr(key common.AttrKey, value common.AttrValue) {
	n.Attrs[key] = common.Attr{Live: true, Value: value}
}

// ClearAttr marks an attribute dormant rather than deleting it, so the
// clear itself can be merged across history (spec's "dormant attr").
func (n *Node) ClearAttr(key common.AttrKey) {
	existing := n.Attrs[key]
	n.Attrs[key] = common.Attr{Live: false, Value: existing.Value}
}

// shallowEqual compares two nodes' own fields (not recursively their
// subtrees): same kind, parent, name, attrs, content and (for dirs) the
// same child bindings. Grounded on the monotone roster.hh `shallow_equal`
// helper surfaced by original_source (see SPEC_FULL.md §4).
func shallowEqual(a, b *Node) bool {
	if a.Kind != b.Kind || a.Id != b.Id || a.Parent != b.Parent || a.Name != b.Name {
		return false
	}
	if !a.Attrs.Equal(b.Attrs) {
		return false
	}
	if a.IsFile() {
		return a.Content == b.Content
	}
	if len(a.children) != len(b.children) {
		return false
	}
	for k, v := range a.children {
		if bv, ok := b.children[k]; !ok || bv != v {
			return false
		}
	}
	return true
}
