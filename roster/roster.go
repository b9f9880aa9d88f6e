package roster

import "github.com/ironhold/revgraph/common"

// oldLocation is where a just-detached node used to live, recorded so that
// re-attaching it at the very same spot (a no-op rename) can be rejected.
type oldLocation struct {
	Parent common.NodeId
	Name   common.PathComponent
}

// Roster is the in-memory tree: a root id plus a copy-on-write table of
// every reachable node, plus the transient old_locations ledger consulted
// while a cset is being applied (spec §3 "Old-locations ledger").
//
// Cloning a Roster is O(1): Clone only copies the small Roster struct and
// shares CowNodeMap's underlying structure with the original until a write
// touches it, at which point only the nodes on the path to that write are
// copied (see common.CowNodeMap).
type Roster struct {
	root  common.NodeId
	nodes common.CowNodeMap[*Node]
	// oldLocations is intentionally a plain map, not a CowNodeMap: it holds
	// only nodes detached earlier in the *same* cset application and is
	// always cloned wholesale on Roster.Clone, since it is never large
	// enough for partial-unshare to matter and its lifetime is one
	// apply_cset call.
	oldLocations map[common.NodeId]oldLocation
}

// New creates a roster containing only an empty root directory, bound to
// rootId (conventionally common.RootNodeId for a fresh root revision).
func New(rootId common.NodeId) *Roster {
	r := &Roster{
		root:         rootId,
		nodes:        common.NewCowNodeMap[*Node](),
		oldLocations: map[common.NodeId]oldLocation{},
	}
	r.nodes.Set(rootId, NewDirNode(rootId, NullNodeId, ""))
	return r
}

// Clone is an O(1) logical copy: mutating the result never observably
// mutates the receiver, regardless of internal sharing.
func (r *Roster) Clone() *Roster {
	oldLoc := make(map[common.NodeId]oldLocation, len(r.oldLocations))
	for k, v := range r.oldLocations {
		oldLoc[k] = v
	}
	return &Roster{
		root:         r.root,
		nodes:        r.nodes.Clone(),
		oldLocations: oldLoc,
	}
}

func (r *Roster) Root() common.NodeId { return r.root }

func (r *Roster) NumNodes() int { return r.nodes.Len() }

// GetNodeById returns the node with the given id, or RosterNodeNotFound.
func (r *Roster) GetNodeById(id common.NodeId) (*Node, error) {
	n, ok := r.nodes.Get(id)
	if !ok {
		return nil, &common.RosterError{Kind: common.RosterNodeNotFound}
	}
	return n, nil
}

// GetNode resolves a path to its node, walking from the root.
func (r *Roster) GetNode(path common.FilePath) (*Node, error) {
	cur, err := r.GetNodeById(r.root)
	if err != nil {
		return nil, err
	}
	for _, comp := range path {
		if !cur.IsDir() {
			return nil, &common.RosterError{Kind: common.RosterWrongKind, Path: string(comp)}
		}
		childId, ok := cur.Child(comp)
		if !ok {
			return nil, &common.RosterError{Kind: common.RosterNodeNotFound, Path: common.JoinPath(path)}
		}
		cur, err = r.GetNodeById(childId)
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// PathOf reconstructs the path from the root to id by walking parent links.
func (r *Roster) PathOf(id common.NodeId) (common.FilePath, error) {
	var comps []common.PathComponent
	cur := id
	for {
		n, err := r.GetNodeById(cur)
		if err != nil {
			return nil, err
		}
		if n.IsRoot() {
			break
		}
		comps = append(comps, n.Name)
		cur = n.Parent
	}
	// reverse
	ret := make(common.FilePath, len(comps))
	for i, c := range comps {
		ret[len(comps)-1-i] = c
	}
	return ret, nil
}

// GetNodeForUpdate returns a clone of the node that the caller may mutate
// in place; the caller must then call putNode to publish the
// mutation back into the roster. This is the copy-on-write "unshare" step
// of spec §4.2.
func (r *Roster) GetNodeForUpdate(id common.NodeId) (*Node, error) {
	n, err := r.GetNodeById(id)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

// putNode publishes a (mutated) node back into the roster's node table.
func (r *Roster) putNode(n *Node) {
	r.nodes.Set(n.Id, n)
}

// DetachNode removes the node at path from its parent's child map and
// records its old location, returning its id. Detaching the root is
// rejected.
func (r *Roster) DetachNode(path common.FilePath) (common.NodeId, error) {
	if path.IsRoot() {
		return 0, &common.RosterError{Kind: common.RosterDetachRoot}
	}
	n, err := r.GetNode(path)
	if err != nil {
		return 0, err
	}
	parent, err := r.GetNodeForUpdate(n.Parent)
	if err != nil {
		return 0, err
	}
	parent.RemoveChild(n.Name)
	r.putNode(parent)

	r.oldLocations[n.Id] = oldLocation{Parent: n.Parent, Name: n.Name}
	return n.Id, nil
}

// DropDetachedNode erases id and, if it is a directory, all of its
// children. It fails if id is still attached, or if id was never detached
// in this roster's lifetime (old_locations does not list it) — unless the
// node was created and never attached at all, which is allowed (spec
// §4.2).
func (r *Roster) DropDetachedNode(id common.NodeId) error {
	n, err := r.GetNodeById(id)
	if err != nil {
		return err
	}
	if r.isAttached(n) {
		return &common.RosterError{Kind: common.RosterDropAttached}
	}
	if _, everDetached := r.oldLocations[id]; !everDetached && !n.neverAttached {
		return &common.RosterError{Kind: common.RosterNotDetached}
	}
	// The children are still bound to n's child map, so they are erased
	// directly rather than through DropDetachedNode's attached check.
	var dropChildren func(d *Node)
	dropChildren = func(d *Node) {
		for _, ce := range d.SortedChildren() {
			if c, err := r.GetNodeById(ce.Id); err == nil && c.IsDir() {
				dropChildren(c)
			}
			r.nodes.Delete(ce.Id)
			delete(r.oldLocations, ce.Id)
		}
	}
	if n.IsDir() {
		dropChildren(n)
	}
	r.nodes.Delete(id)
	delete(r.oldLocations, id)
	return nil
}

// isAttached reports whether n is reachable from the root via its parent's
// child map (i.e. genuinely attached, not just carrying a stale parent
// field left over from before a detach).
func (r *Roster) isAttached(n *Node) bool {
	if n.Id == r.root {
		return true
	}
	parent, err := r.GetNodeById(n.Parent)
	if err != nil {
		return false
	}
	childId, ok := parent.Child(n.Name)
	return ok && childId == n.Id
}

// CreateDirNode allocates a new, detached directory node.
func (r *Roster) CreateDirNode(src common.NodeIdSource) *Node {
	n := NewDirNode(src.Next(), NullNodeId, "")
	n.neverAttached = true
	r.putNode(n)
	return n
}

// CreateFileNode allocates a new, detached file node with the given
// content.
func (r *Roster) CreateFileNode(content common.FileId, src common.NodeIdSource) *Node {
	n := NewFileNode(src.Next(), NullNodeId, "", content)
	n.neverAttached = true
	r.putNode(n)
	return n
}

// AttachNode attaches a detached node as parentId's child name. It fails if
// (parentId, name) is exactly the node's recorded old location (rejecting
// identity renames), if parentId already has a child called name, or if
// parentId is not a directory.
func (r *Roster) AttachNode(id, parentId common.NodeId, name common.PathComponent) error {
	n, err := r.GetNodeForUpdate(id)
	if err != nil {
		return err
	}
	if old, ok := r.oldLocations[id]; ok && old.Parent == parentId && old.Name == name {
		return &common.RosterError{Kind: common.RosterReattachOldLocation, Path: string(name)}
	}
	parent, err := r.GetNodeForUpdate(parentId)
	if err != nil {
		return err
	}
	if !parent.IsDir() {
		return &common.RosterError{Kind: common.RosterNotDirectory, Path: string(name)}
	}
	if _, collide := parent.Child(name); collide {
		return &common.RosterError{Kind: common.RosterNameCollision, Path: string(name)}
	}
	n.Parent = parentId
	n.Name = name
	n.neverAttached = false
	parent.SetChild(name, id)

	r.putNode(n)
	r.putNode(parent)
	delete(r.oldLocations, id)
	return nil
}

// ApplyDelta requires path to name a file whose content equals oldFid, and
// sets it to newFid.
func (r *Roster) ApplyDelta(path common.FilePath, oldFid, newFid common.FileId) error {
	n, err := r.GetNode(path)
	if err != nil {
		return err
	}
	if !n.IsFile() {
		return &common.RosterError{Kind: common.RosterWrongKind, Path: common.JoinPath(path)}
	}
	if n.Content != oldFid {
		return &common.ContentMismatch{Path: common.JoinPath(path), Expected: oldFid, Actual: n.Content}
	}
	clone, err := r.GetNodeForUpdate(n.Id)
	if err != nil {
		return err
	}
	clone.Content = newFid
	r.putNode(clone)
	return nil
}

// SetAttr sets path's attribute key to value (live).
func (r *Roster) SetAttr(path common.FilePath, key common.AttrKey, value common.AttrValue) error {
	n, err := r.GetNode(path)
	if err != nil {
		return err
	}
	clone, err := r.GetNodeForUpdate(n.Id)
	if err != nil {
		return err
	}
	clone.SetAttr(key, value)
	r.putNode(clone)
	return nil
}

// ClearAttr marks path's attribute key dormant.
func (r *Roster) ClearAttr(path common.FilePath, key common.AttrKey) error {
	n, err := r.GetNode(path)
	if err != nil {
		return err
	}
	clone, err := r.GetNodeForUpdate(n.Id)
	if err != nil {
		return err
	}
	clone.ClearAttr(key)
	r.putNode(clone)
	return nil
}

// Walk visits every reachable node in DFS, path-sorted order (children
// visited in component order), the order canonical serialization uses.
func (r *Roster) Walk(f func(path common.FilePath, n *Node) error) error {
	root, err := r.GetNodeById(r.root)
	if err != nil {
		return err
	}
	return r.walk(common.FilePath{}, root, f)
}

func (r *Roster) walk(path common.FilePath, n *Node, f func(common.FilePath, *Node) error) error {
	if err := f(path, n); err != nil {
		return err
	}
	if !n.IsDir() {
		return nil
	}
	for _, ce := range n.SortedChildren() {
		child, err := r.GetNodeById(ce.Id)
		if err != nil {
			return err
		}
		if err := r.walk(path.Child(ce.Name), child, f); err != nil {
			return err
		}
	}
	return nil
}

// Equal is full structural equality: same node ids at the same paths, with
// identical attrs/content/children.
func (r *Roster) Equal(other *Roster) bool {
	if r.NumNodes() != other.NumNodes() {
		return false
	}
	equal := true
	_ = r.Walk(func(path common.FilePath, n *Node) error {
		on, err := other.GetNode(path)
		if err != nil || !shallowEqual(n, on) {
			equal = false
		}
		return nil
	})
	return equal
}

// EqualUpToRenumbering reports structural equality ignoring the specific
// node id values: two rosters are equal if there is a bijection between
// their node ids (established by matching path position) under which every
// node's kind, attrs and content agree. This is the relation testable
// property 5 (merge commutativity) is stated in terms of, since temp ids
// minted on each side of a merge need not coincide numerically.
func (r *Roster) EqualUpToRenumbering(other *Roster) bool {
	if r.NumNodes() != other.NumNodes() {
		return false
	}
	equal := true
	_ = r.Walk(func(path common.FilePath, n *Node) error {
		on, err := other.GetNode(path)
		if err != nil {
			equal = false
			return nil
		}
		if n.Kind != on.Kind || !n.Attrs.Equal(on.Attrs) {
			equal = false
			return nil
		}
		if n.IsFile() && n.Content != on.Content {
			equal = false
		}
		return nil
	})
	return equal
}
