// Package cset implements the change-set algebra: the structural diff
// between two rosters (spec §3, §4.3, §4.4), its normalization rules, and
// its application to a base roster.
package cset

import (
	"sort"

	"github.com/ironhold/revgraph/common"
)

type Rename struct {
	Src common.FilePath
	Dst common.FilePath
}

type FileAdd struct {
	Path    common.FilePath
	Content common.FileId
}

type Delta struct {
	Path common.FilePath
	Old  common.FileId
	New  common.FileId
}

type AttrClear struct {
	Path common.FilePath
	Key  common.AttrKey
}

type AttrSet struct {
	Path  common.FilePath
	Key   common.AttrKey
	Value common.AttrValue
}

// Cset is an ordered record of primitive edits transforming one roster into
// another. The seven sections always appear, and are always processed, in
// the fixed order below (spec §3, §4.3).
type Cset struct {
	NodesDeleted []common.FilePath
	NodesRenamed []Rename
	DirsAdded    []common.FilePath
	FilesAdded   []FileAdd
	Deltas       []Delta
	AttrsCleared []AttrClear
	AttrsSet     []AttrSet
}

func New() *Cset { return &Cset{} }

func (c *Cset) IsEmpty() bool {
	return len(c.NodesDeleted) == 0 && len(c.NodesRenamed) == 0 && len(c.DirsAdded) == 0 &&
		len(c.FilesAdded) == 0 && len(c.Deltas) == 0 && len(c.AttrsCleared) == 0 && len(c.AttrsSet) == 0
}

// Canonicalize sorts every section by path (then AttrKey within a path),
// the fixed canonical order spec §3/§4.7 require for byte-identical
// serialization regardless of the order edits were recorded in.
func (c *Cset) Canonicalize() {
	sort.Slice(c.NodesDeleted, func(i, j int) bool { return c.NodesDeleted[i].Compare(c.NodesDeleted[j]) < 0 })
	sort.Slice(c.NodesRenamed, func(i, j int) bool { return c.NodesRenamed[i].Src.Compare(c.NodesRenamed[j].Src) < 0 })
	sort.Slice(c.DirsAdded, func(i, j int) bool { return c.DirsAdded[i].Compare(c.DirsAdded[j]) < 0 })
	sort.Slice(c.FilesAdded, func(i, j int) bool { return c.FilesAdded[i].Path.Compare(c.FilesAdded[j].Path) < 0 })
	sort.Slice(c.Deltas, func(i, j int) bool { return c.Deltas[i].Path.Compare(c.Deltas[j].Path) < 0 })
	sort.Slice(c.AttrsCleared, func(i, j int) bool {
		if cmp := c.AttrsCleared[i].Path.Compare(c.AttrsCleared[j].Path); cmp != 0 {
			return cmp < 0
		}
		return c.AttrsCleared[i].Key < c.AttrsCleared[j].Key
	})
	sort.Slice(c.AttrsSet, func(i, j int) bool {
		if cmp := c.AttrsSet[i].Path.Compare(c.AttrsSet[j].Path); cmp != 0 {
			return cmp < 0
		}
		return c.AttrsSet[i].Key < c.AttrsSet[j].Key
	})
}

// Validate reports the first violation of the normalization rules in
// spec §3: a path in two contradictory sections, an identity rename, an
// add immediately shadowed by a delete, or a malformed path. It does not
// check applicability against any particular roster — that happens in
// Apply.
func (c *Cset) Validate() error {
	deleted := pathSet(c.NodesDeleted)
	renameSrc := map[string]bool{}
	renameDst := map[string]bool{}
	for _, rn := range c.NodesRenamed {
		if rn.Src.Equal(rn.Dst) {
			return &common.CsetInvalid{Path: rn.Src.String(), Reason: "identity rename"}
		}
		s, d := rn.Src.String(), rn.Dst.String()
		if renameSrc[s] {
			return &common.CsetInvalid{Path: s, Reason: "duplicate rename source"}
		}
		if renameDst[d] {
			return &common.CsetInvalid{Path: d, Reason: "duplicate rename destination"}
		}
		if deleted[s] {
			return &common.CsetInvalid{Path: s, Reason: "both renamed and deleted"}
		}
		renameSrc[s] = true
		renameDst[d] = true
	}

	added := map[string]bool{}
	for _, p := range c.DirsAdded {
		s := p.String()
		if added[s] {
			return &common.CsetInvalid{Path: s, Reason: "duplicate add"}
		}
		if deleted[s] {
			return &common.CsetInvalid{Path: s, Reason: "add immediately shadowed by delete"}
		}
		added[s] = true
	}
	for _, fa := range c.FilesAdded {
		s := fa.Path.String()
		if added[s] {
			return &common.CsetInvalid{Path: s, Reason: "duplicate add"}
		}
		if deleted[s] {
			return &common.CsetInvalid{Path: s, Reason: "add immediately shadowed by delete"}
		}
		added[s] = true
	}

	seenDelta := map[string]bool{}
	for _, d := range c.Deltas {
		s := d.Path.String()
		if seenDelta[s] {
			return &common.CsetInvalid{Path: s, Reason: "duplicate delta"}
		}
		seenDelta[s] = true
	}

	seenAttr := map[string]bool{}
	for _, ac := range c.AttrsCleared {
		key := ac.Path.String() + "\x00" + string(ac.Key)
		if seenAttr[key] {
			return &common.CsetInvalid{Path: ac.Path.String(), Reason: "duplicate attr edit"}
		}
		seenAttr[key] = true
	}
	for _, as := range c.AttrsSet {
		key := as.Path.String() + "\x00" + string(as.Key)
		if seenAttr[key] {
			return &common.CsetInvalid{Path: as.Path.String(), Reason: "duplicate attr edit"}
		}
		seenAttr[key] = true
	}
	return nil
}

func pathSet(paths []common.FilePath) map[string]bool {
	ret := make(map[string]bool, len(paths))
	for _, p := range paths {
		ret[p.String()] = true
	}
	return ret
}
