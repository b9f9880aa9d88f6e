// Package merge implements the three-way merge engine (spec §4.6): given a
// left and right roster (each already reconstructed by applying their own
// history's csets), their markings, and the uncommon-ancestor partitions
// that tell the engine which side actually changed what, it produces a
// merged roster and the conflicts it could not resolve on its own.
package merge

import (
	"sort"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/marking"
	"github.com/ironhold/revgraph/roster"
)

// Side bundles one parent's contribution to a merge: its roster, its
// marking map, and the set of revisions reachable from it but not from the
// other parent (spec §3 "Uncommon ancestors").
type Side struct {
	Roster   *roster.Roster
	Marks    *marking.MarkingMap
	Uncommon marking.RevisionSet
}

// Result is what a merge computation produces: the merged roster (nil if
// any conflict went unresolved) and every conflict found, sorted by path
// then kind (spec §7 "every other error kind yields a one-line
// explanation... conflicts sorted").
type Result struct {
	Roster    *roster.Roster
	Conflicts []common.MergeConflict
}

type loc struct {
	Parent common.NodeId
	Name   common.PathComponent
}

type resolvedNode struct {
	id       common.NodeId
	kind     roster.Kind
	location loc
	content  common.FileId
	attrs    common.AttrMap
	onLeft   bool
	onRight  bool
}

// ThreeWayMerge runs the structural merge (spec §4.6). The resolver is
// consulted for content and duplicate-name conflicts it can resolve;
// anything it defers (or any other conflict kind) is returned unresolved
// in Result.Conflicts and Result.Roster is nil.
func ThreeWayMerge(left, right Side, resolver common.ConflictResolver, observer common.Observer) (*Result, error) {
	observer = common.ObserverOrNoop(observer)

	if left.Roster.Root() != right.Roster.Root() {
		return &Result{Conflicts: []common.MergeConflict{{
			Kind:   common.ConflictMissingRoot,
			Detail: "left and right rosters have different root node ids",
		}}}, nil
	}

	ids := unionNodeIds(left.Roster, right.Roster)
	var conflicts []common.MergeConflict
	resolved := make(map[common.NodeId]*resolvedNode, len(ids))
	excluded := map[common.NodeId]bool{}

	for _, id := range ids {
		ln, lerr := left.Roster.GetNodeById(id)
		rn, rerr := right.Roster.GetNodeById(id)
		onLeft, onRight := lerr == nil, rerr == nil

		switch {
		case onLeft && onRight:
			rv, err := resolveNode(id, ln, rn, left, right, resolver, observer)
			if err != nil {
				return nil, err
			}
			if rv.conflict != nil {
				conflicts = append(conflicts, *rv.conflict)
				excluded[id] = true
				continue
			}
			resolved[id] = rv.node

		case onLeft && !onRight:
			lm, _ := left.Marks.Get(id)
			if left.Uncommon[lm.BirthRevision] {
				resolved[id] = fromNode(id, ln, true, false)
				continue
			}
			// the node was known before left's private history began, and
			// right no longer has it: a plain delete on the right side.
			excluded[id] = true

		case onRight && !onLeft:
			rm, _ := right.Marks.Get(id)
			if right.Uncommon[rm.BirthRevision] {
				resolved[id] = fromNode(id, rn, false, true)
				continue
			}
			excluded[id] = true
		}
	}

	// Orphan check: a resolved node whose resolved parent was excluded (the
	// other side deleted that directory) is an orphaned-node conflict
	// (spec §4.6 "if one side deletes a directory and the other adds into
	// it, blocked").
	for id, rv := range resolved {
		if id == left.Roster.Root() {
			continue
		}
		if excluded[rv.location.Parent] {
			conflicts = append(conflicts, common.MergeConflict{
				Kind:    common.ConflictOrphanedNode,
				Path:    string(rv.location.Name),
				Detail:  "parent directory was deleted by the other side",
				NodeIds: []common.NodeId{id},
			})
			delete(resolved, id)
		}
	}

	// Duplicate-name check: two distinct surviving node ids resolved to the
	// same (parent, name).
	byLoc := map[loc][]common.NodeId{}
	for id, rv := range resolved {
		if id == left.Roster.Root() {
			continue
		}
		byLoc[rv.location] = append(byLoc[rv.location], id)
	}
	for l, idsAtLoc := range byLoc {
		if len(idsAtLoc) < 2 {
			continue
		}
		sort.Slice(idsAtLoc, func(i, j int) bool { return idsAtLoc[i] < idsAtLoc[j] })
		if resolver != nil {
			if renameLeft, renameRight, ok := resolver.ResolveDuplicateName(string(l.Name), idsAtLoc[0], idsAtLoc[1]); ok {
				if p, err := common.SplitPath(renameLeft); err == nil && len(p) > 0 {
					parentPath, name := p.Parent()
					resolved[idsAtLoc[0]].location = loc{Parent: resolveIdAtPath(left, right, resolved, parentPath), Name: name}
				}
				if p, err := common.SplitPath(renameRight); err == nil && len(p) > 0 {
					parentPath, name := p.Parent()
					resolved[idsAtLoc[1]].location = loc{Parent: resolveIdAtPath(left, right, resolved, parentPath), Name: name}
				}
				continue
			}
		}
		conflicts = append(conflicts, common.MergeConflict{
			Kind:    common.ConflictDuplicateName,
			Path:    string(l.Name),
			Detail:  "two nodes both resolved to this name",
			NodeIds: idsAtLoc,
		})
		for _, id := range idsAtLoc {
			delete(resolved, id)
		}
	}

	if len(conflicts) > 0 {
		common.SortConflicts(conflicts)
		return &Result{Conflicts: conflicts}, nil
	}

	mergedRoster, loopIds, err := assemble(left.Roster.Root(), resolved)
	if err != nil {
		return nil, err
	}
	if len(loopIds) > 0 {
		for _, id := range loopIds {
			conflicts = append(conflicts, common.MergeConflict{
				Kind:    common.ConflictDirectoryLoop,
				Detail:  "node's ancestors never reach the root",
				NodeIds: []common.NodeId{id},
			})
		}
		common.SortConflicts(conflicts)
		return &Result{Conflicts: conflicts}, nil
	}

	return &Result{Roster: mergedRoster}, nil
}

// resolveIdAtPath returns the id of the node at path in the left roster,
// else in the right roster, else roster.NullNodeId. The locations being
// built in `resolved` are not consulted.
func resolveIdAtPath(left, right Side, resolved map[common.NodeId]*resolvedNode, path common.FilePath) common.NodeId {
	if n, err := left.Roster.GetNode(path); err == nil {
		return n.Id
	}
	if n, err := right.Roster.GetNode(path); err == nil {
		return n.Id
	}
	return roster.NullNodeId
}

type nodeResolution struct {
	node     *resolvedNode
	conflict *common.MergeConflict
}

// resolveNode resolves every aspect of a node present on both sides:
// location (parent, name), content (files), and attributes, via the
// structural-merge resolution table in spec §4.6.
func resolveNode(id common.NodeId, ln, rn *roster.Node, left, right Side, resolver common.ConflictResolver, observer common.Observer) (nodeResolution, error) {
	lm, _ := left.Marks.Get(id)
	rm, _ := right.Marks.Get(id)

	lLoc := loc{Parent: ln.Parent, Name: ln.Name}
	rLoc := loc{Parent: rn.Parent, Name: rn.Name}
	lChanged := marking.Changed(lm.ParentName, left.Uncommon)
	rChanged := marking.Changed(rm.ParentName, right.Uncommon)
	mergedLoc, _, conflict := resolveValue(lLoc, rLoc, lChanged, rChanged)
	if conflict {
		return nodeResolution{conflict: &common.MergeConflict{
			Kind:    common.ConflictMultipleNames,
			Path:    string(ln.Name),
			Detail:  "both sides moved or renamed this node differently",
			NodeIds: []common.NodeId{id},
		}}, nil
	}

	var mergedContent common.FileId
	if ln.IsFile() {
		lChanged = marking.Changed(lm.FileContent, left.Uncommon)
		rChanged = marking.Changed(rm.FileContent, right.Uncommon)
		val, _, conflict := resolveValue(ln.Content, rn.Content, lChanged, rChanged)
		if conflict {
			if resolver != nil {
				if resolvedId, ok := resolver.ResolveContent(string(ln.Name), common.FileId{}, ln.Content, rn.Content); ok {
					mergedContent = resolvedId
				} else {
					return nodeResolution{conflict: &common.MergeConflict{
						Kind:    common.ConflictContent,
						Path:    string(ln.Name),
						Detail:  "left and right set different file content",
						NodeIds: []common.NodeId{id},
					}}, nil
				}
			} else {
				return nodeResolution{conflict: &common.MergeConflict{
					Kind:    common.ConflictContent,
					Path:    string(ln.Name),
					Detail:  "left and right set different file content",
					NodeIds: []common.NodeId{id},
				}}, nil
			}
		} else {
			mergedContent = val
		}
	}

	mergedAttrs, attrConflict := resolveAttrs(ln.Name, lm, rm, ln.Attrs, rn.Attrs, left.Uncommon, right.Uncommon)
	if attrConflict != nil {
		attrConflict.NodeIds = []common.NodeId{id}
		return nodeResolution{conflict: attrConflict}, nil
	}

	return nodeResolution{node: &resolvedNode{
		id: id, kind: kindOf(ln), location: mergedLoc, content: mergedContent,
		attrs: mergedAttrs, onLeft: true, onRight: true,
	}}, nil
}

func kindOf(n *roster.Node) roster.Kind {
	if n.IsDir() {
		return roster.KindDir
	}
	return roster.KindFile
}

func resolveAttrs(name common.PathComponent, lm, rm marking.Marking, lAttrs, rAttrs common.AttrMap, lUncommon, rUncommon marking.RevisionSet) (common.AttrMap, *common.MergeConflict) {
	merged := common.AttrMap{}
	keys := map[common.AttrKey]struct{}{}
	for k := range lAttrs {
		keys[k] = struct{}{}
	}
	for k := range rAttrs {
		keys[k] = struct{}{}
	}
	for k := range keys {
		la, lok := lAttrs[k]
		ra, rok := rAttrs[k]
		lChanged := marking.Changed(lm.Attrs[k], lUncommon)
		rChanged := marking.Changed(rm.Attrs[k], rUncommon)
		val, _, conflict := resolveValue(la, ra, lChanged, rChanged)
		if conflict {
			return nil, &common.MergeConflict{
				Kind:   common.ConflictAttr,
				Path:   string(name),
				Detail: "attribute " + string(k) + " set to different values by each side",
			}
		}
		if !lok && !rok {
			continue
		}
		merged[k] = val
	}
	return merged, nil
}

// resolveValue implements the structural resolution table of spec §4.6 for
// a single comparable-valued aspect.
func resolveValue[T comparable](leftVal, rightVal T, leftChanged, rightChanged bool) (merged T, agree bool, conflict bool) {
	switch {
	case !leftChanged && !rightChanged:
		return leftVal, true, false
	case leftChanged && !rightChanged:
		return leftVal, true, false
	case !leftChanged && rightChanged:
		return rightVal, true, false
	default:
		if leftVal == rightVal {
			return leftVal, true, false
		}
		var zero T
		return zero, false, true
	}
}

func fromNode(id common.NodeId, n *roster.Node, onLeft, onRight bool) *resolvedNode {
	return &resolvedNode{
		id: id, kind: kindOf(n), location: loc{Parent: n.Parent, Name: n.Name},
		content: n.Content, attrs: n.Attrs.Clone(), onLeft: onLeft, onRight: onRight,
	}
}

func unionNodeIds(a, b *roster.Roster) []common.NodeId {
	seen := map[common.NodeId]bool{}
	var ret []common.NodeId
	collect := func(r *roster.Roster) {
		_ = r.Walk(func(_ common.FilePath, n *roster.Node) error {
			if !seen[n.Id] {
				seen[n.Id] = true
				ret = append(ret, n.Id)
			}
			return nil
		})
	}
	collect(a)
	collect(b)
	sort.Slice(ret, func(i, j int) bool { return ret[i] < ret[j] })
	return ret
}

// assemble builds the merged roster from resolved nodes, attaching in
// breadth-first order so a node's parent is always present before it is
// added. Any node whose parent chain never reaches the root (a genuine
// cycle, which normalized history should never produce) is reported back
// instead of attached.
func assemble(rootId common.NodeId, resolved map[common.NodeId]*resolvedNode) (*roster.Roster, []common.NodeId, error) {
	b := roster.NewBuilder(rootId)
	if rv, ok := resolved[rootId]; ok {
		b.SetRootAttrs(rv.attrs)
	}
	pending := make(map[common.NodeId]*resolvedNode, len(resolved))
	for id, rv := range resolved {
		if id == rootId {
			continue
		}
		pending[id] = rv
	}

	for len(pending) > 0 {
		progressed := false
		ids := make([]common.NodeId, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			rv := pending[id]
			if !b.Has(rv.location.Parent) {
				continue
			}
			var err error
			if rv.kind == roster.KindDir {
				err = b.AddDir(id, rv.location.Parent, rv.location.Name, rv.attrs)
			} else {
				err = b.AddFile(id, rv.location.Parent, rv.location.Name, rv.content, rv.attrs)
			}
			if err != nil {
				return nil, nil, err
			}
			delete(pending, id)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if len(pending) == 0 {
		return b.Roster(), nil, nil
	}
	var stuck []common.NodeId
	for id := range pending {
		stuck = append(stuck, id)
	}
	sort.Slice(stuck, func(i, j int) bool { return stuck[i] < stuck[j] })
	return nil, stuck, nil
}
