package cset

import (
	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/roster"
)

type nodeLoc struct {
	path common.FilePath
	node *roster.Node
}

// Diff computes the minimal cset whose application to a yields b (spec
// §4.4). It walks both trees once, correlates nodes by id, and classifies
// every id as renamed/changed (present on both sides), deleted (only in a)
// or added (only in b). A node counts as renamed only when its own parent
// or name changed. One case cannot be expressed as a rename: moving a node
// under a directory that is itself new in b (see the comment in the loop
// below).
func Diff(a, b *roster.Roster) (*Cset, error) {
	aLoc, err := indexById(a)
	if err != nil {
		return nil, err
	}
	bLoc, err := indexById(b)
	if err != nil {
		return nil, err
	}

	cs := New()

	for id, bl := range bLoc {
		al, inA := aLoc[id]
		if !inA {
			continue // handled in the "added" pass below
		}
		if al.node.Parent != bl.node.Parent || al.node.Name != bl.node.Name {
			if parentIsNewInB(bl.path, aLoc, bLoc) {
				// The destination's parent doesn't exist until dirs_added
				// runs, which happens after renames (spec §4.3's fixed
				// order). A rename can't reach it in one cset, so this
				// node is expressed as a delete of the old location plus
				// a fresh add at the new one; its node identity is not
				// preserved across this edit.
				addDeleteAndFreshAdd(cs, al, bl)
				continue
			}
			cs.NodesRenamed = append(cs.NodesRenamed, Rename{Src: al.path, Dst: bl.path})
		}
		diffNodeContentAndAttrs(cs, al, bl)
	}

	for id, al := range aLoc {
		if _, inB := bLoc[id]; !inB {
			cs.NodesDeleted = append(cs.NodesDeleted, al.path)
		}
	}
	for id, bl := range bLoc {
		if _, inA := aLoc[id]; inA {
			continue // has a counterpart in a; handled by the loop above, not here
		}
		addFresh(cs, bl)
	}

	cs.Canonicalize()
	return cs, nil
}

func indexById(r *roster.Roster) (map[common.NodeId]nodeLoc, error) {
	ret := map[common.NodeId]nodeLoc{}
	err := r.Walk(func(path common.FilePath, n *roster.Node) error {
		ret[n.Id] = nodeLoc{path: path, node: n}
		return nil
	})
	return ret, err
}

// parentIsNewInB reports whether path's parent directory has no counterpart
// (by id) in a — i.e. it is itself one of the nodes being added by this
// same cset.
func parentIsNewInB(path common.FilePath, aLoc, bLoc map[common.NodeId]nodeLoc) bool {
	if path.IsRoot() {
		return false
	}
	parentPath, _ := path.Parent()
	for id, bl := range bLoc {
		if bl.path.Equal(parentPath) {
			_, inA := aLoc[id]
			return !inA
		}
	}
	return true
}

func addDeleteAndFreshAdd(cs *Cset, al, bl nodeLoc) {
	cs.NodesDeleted = append(cs.NodesDeleted, al.path)
	addFresh(cs, bl)
}

func addFresh(cs *Cset, bl nodeLoc) {
	if bl.node.IsDir() {
		cs.DirsAdded = append(cs.DirsAdded, bl.path)
	} else {
		cs.FilesAdded = append(cs.FilesAdded, FileAdd{Path: bl.path, Content: bl.node.Content})
	}
	for _, k := range bl.node.Attrs.SortedKeys() {
		a := bl.node.Attrs[k]
		if a.Live {
			cs.AttrsSet = append(cs.AttrsSet, AttrSet{Path: bl.path, Key: k, Value: a.Value})
		}
		// a fresh node's dormant attrs (if any were seeded) need no
		// explicit clear: it is created without the key at all, which
		// already reads as "not live".
	}
}

// diffNodeContentAndAttrs emits a delta for file content changes and
// attrs_cleared/attrs_set entries for every attribute whose live/value
// state differs between al and bl. Source-path ties are broken by al.path,
// matching spec §4.4's "ties broken by source-path order".
func diffNodeContentAndAttrs(cs *Cset, al, bl nodeLoc) {
	if al.node.IsFile() && bl.node.IsFile() && al.node.Content != bl.node.Content {
		cs.Deltas = append(cs.Deltas, Delta{Path: bl.path, Old: al.node.Content, New: bl.node.Content})
	}

	seen := map[common.AttrKey]bool{}
	for _, k := range al.node.Attrs.SortedKeys() {
		seen[k] = true
		av := al.node.Attrs[k]
		bv, ok := bl.node.Attrs[k]
		if ok && bv == av {
			continue
		}
		emitAttrDiff(cs, bl.path, k, bv, ok)
	}
	for _, k := range bl.node.Attrs.SortedKeys() {
		if seen[k] {
			continue
		}
		bv := bl.node.Attrs[k]
		emitAttrDiff(cs, bl.path, k, bv, true)
	}
}

func emitAttrDiff(cs *Cset, path common.FilePath, key common.AttrKey, bv common.Attr, bHasKey bool) {
	if !bHasKey || !bv.Live {
		cs.AttrsCleared = append(cs.AttrsCleared, AttrClear{Path: path, Key: key})
		return
	}
	cs.AttrsSet = append(cs.AttrsSet, AttrSet{Path: path, Key: key, Value: bv.Value})
}
