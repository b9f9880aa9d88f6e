package cset

import (
	"sort"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/roster"
)

// Apply applies a normalized cset to base, returning a new roster. base is
// never mutated: Apply works on a clone and only swaps it in on success, so
// a failed application leaves the caller's roster untouched (spec §4.3:
// "If any step fails the partial mutation must be discarded"). idSource
// mints the ids for any dirs_added/files_added entries; pass a
// TempNodeIdSource when building merge/diff scratch rosters and a
// PermanentNodeIdSource when committing a revision for real.
func Apply(base *roster.Roster, cs *Cset, idSource common.NodeIdSource) (*roster.Roster, error) {
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	r := base.Clone()

	if err := applyDeletes(r, cs.NodesDeleted); err != nil {
		return nil, err
	}
	if err := applyRenames(r, cs.NodesRenamed); err != nil {
		return nil, err
	}
	if err := applyDirsAdded(r, cs.DirsAdded, idSource); err != nil {
		return nil, err
	}
	if err := applyFilesAdded(r, cs.FilesAdded, idSource); err != nil {
		return nil, err
	}
	for _, d := range cs.Deltas {
		if err := r.ApplyDelta(d.Path, d.Old, d.New); err != nil {
			return nil, err
		}
	}
	for _, ac := range cs.AttrsCleared {
		if err := r.ClearAttr(ac.Path, ac.Key); err != nil {
			return nil, err
		}
	}
	for _, as := range cs.AttrsSet {
		if err := r.SetAttr(as.Path, as.Key, as.Value); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// applyDeletes removes every listed path. A whole subtree can only be
// deleted one empty directory or file at a time, so entries are processed
// deepest-first regardless of the section's canonical (shallow-first) text
// order: that ordering exists for byte-identical serialization, not for
// execution, and applying it literally would reject deleting a directory
// whose children are deleted later in the very same section.
func applyDeletes(r *roster.Roster, paths []common.FilePath) error {
	paths = append([]common.FilePath(nil), paths...)
	sort.Slice(paths, func(i, j int) bool {
		if len(paths[i]) != len(paths[j]) {
			return len(paths[i]) > len(paths[j])
		}
		return paths[i].Compare(paths[j]) < 0
	})
	for _, p := range paths {
		n, err := r.GetNode(p)
		if err != nil {
			return err
		}
		if n.IsDir() && n.NumChildren() > 0 {
			return &common.CsetInvalid{Path: p.String(), Reason: "deleting a non-empty directory"}
		}
		id, err := r.DetachNode(p)
		if err != nil {
			return err
		}
		if err := r.DropDetachedNode(id); err != nil {
			return err
		}
	}
	return nil
}

// applyRenames detaches every source first, then attaches every destination,
// so that a two-node swap (rename a->b, b->a in the same cset) resolves
// correctly instead of the second rename colliding with the first's
// not-yet-vacated destination. Sources are detached deepest-first, so that
// detaching a directory never hides a source path beneath it, and
// destinations are attached shallowest-first, so that a renamed directory
// is in place before anything is attached under its new path.
func applyRenames(r *roster.Roster, renames []Rename) error {
	type pending struct {
		id  common.NodeId
		dst common.FilePath
	}
	renames = append([]Rename(nil), renames...)
	sort.SliceStable(renames, func(i, j int) bool { return len(renames[i].Src) > len(renames[j].Src) })
	work := make([]pending, 0, len(renames))
	for _, rn := range renames {
		id, err := r.DetachNode(rn.Src)
		if err != nil {
			return err
		}
		work = append(work, pending{id: id, dst: rn.Dst})
	}
	sort.SliceStable(work, func(i, j int) bool { return len(work[i].dst) < len(work[j].dst) })
	for _, w := range work {
		if w.dst.IsRoot() {
			return &common.CsetInvalid{Path: w.dst.String(), Reason: "cannot rename onto the root"}
		}
		parentPath, name := w.dst.Parent()
		parent, err := r.GetNode(parentPath)
		if err != nil {
			return &common.CsetInvalid{Path: w.dst.String(), Reason: "rename destination's parent does not exist"}
		}
		if err := r.AttachNode(w.id, parent.Id, name); err != nil {
			return err
		}
	}
	return nil
}

func applyDirsAdded(r *roster.Roster, paths []common.FilePath, idSource common.NodeIdSource) error {
	for _, p := range paths {
		if p.IsRoot() {
			return &common.CsetInvalid{Path: p.String(), Reason: "cannot add the root"}
		}
		if _, err := r.GetNode(p); err == nil {
			return &common.CsetInvalid{Path: p.String(), Reason: "adding onto an existing path"}
		}
		parentPath, name := p.Parent()
		parent, err := r.GetNode(parentPath)
		if err != nil {
			return &common.CsetInvalid{Path: p.String(), Reason: "add's parent directory does not exist"}
		}
		n := r.CreateDirNode(idSource)
		if err := r.AttachNode(n.Id, parent.Id, name); err != nil {
			return err
		}
	}
	return nil
}

func applyFilesAdded(r *roster.Roster, adds []FileAdd, idSource common.NodeIdSource) error {
	for _, fa := range adds {
		if _, err := r.GetNode(fa.Path); err == nil {
			return &common.CsetInvalid{Path: fa.Path.String(), Reason: "adding onto an existing path"}
		}
		parentPath, name := fa.Path.Parent()
		parent, err := r.GetNode(parentPath)
		if err != nil {
			return &common.CsetInvalid{Path: fa.Path.String(), Reason: "add's parent directory does not exist"}
		}
		n := r.CreateFileNode(fa.Content, idSource)
		if err := r.AttachNode(n.Id, parent.Id, name); err != nil {
			return err
		}
	}
	return nil
}
