package roster

import "github.com/ironhold/revgraph/common"

// Builder assembles a Roster node-by-node with caller-chosen ids. The
// ordinary construction path (create_dir_node/create_file_node plus
// attach_node, spec §4.2) always mints ids from a NodeIdSource and tracks
// old_locations so identity re-attachments can be rejected — exactly what
// cset application needs. The merge engine (spec §4.6) instead assembles
// its result directly from node ids that already exist on its left/right
// inputs, so it needs a path that skips the old_locations bookkeeping
// entirely. Builder is that path: callers add nodes in an order where each
// node's parent has already been added (root first), and ids are supplied,
// not minted.
type Builder struct {
	r *Roster
}

// NewBuilder starts a builder whose roster has only the given root id.
func NewBuilder(rootId common.NodeId) *Builder {
	return &Builder{r: New(rootId)}
}

// SetRootAttrs overwrites the root directory's attribute map.
func (b *Builder) SetRootAttrs(attrs common.AttrMap) {
	root, _ := b.r.GetNodeForUpdate(b.r.root)
	root.Attrs = attrs.Clone()
	b.r.putNode(root)
}

// AddDir inserts a directory node with id as parentId's child called name.
// parentId must already be present in the builder's roster.
func (b *Builder) AddDir(id, parentId common.NodeId, name common.PathComponent, attrs common.AttrMap) error {
	n := NewDirNode(id, parentId, name)
	n.Attrs = attrs.Clone()
	return b.attach(n, parentId, name)
}

// AddFile inserts a file node with id as parentId's child called name.
func (b *Builder) AddFile(id, parentId common.NodeId, name common.PathComponent, content common.FileId, attrs common.AttrMap) error {
	n := NewFileNode(id, parentId, name, content)
	n.Attrs = attrs.Clone()
	return b.attach(n, parentId, name)
}

func (b *Builder) attach(n *Node, parentId common.NodeId, name common.PathComponent) error {
	parent, err := b.r.GetNodeForUpdate(parentId)
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return &common.RosterError{Kind: common.RosterNotDirectory, Path: string(name)}
	}
	if _, collide := parent.Child(name); collide {
		return &common.RosterError{Kind: common.RosterNameCollision, Path: string(name)}
	}
	parent.SetChild(name, n.Id)
	b.r.putNode(parent)
	b.r.putNode(n)
	return nil
}

// Has reports whether id has already been added (root counts).
func (b *Builder) Has(id common.NodeId) bool {
	_, err := b.r.GetNodeById(id)
	return err == nil
}

// Roster returns the roster assembled so far.
func (b *Builder) Roster() *Roster {
	return b.r
}
