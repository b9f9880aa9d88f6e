package marking

import (
	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/roster"
)

// Changed reports whether a mark set intersects an "uncommon ancestors"
// set — the test spec §4.6 defines as "left changed"/"right changed" for a
// given aspect. An empty mark set (the node/aspect is absent on that side)
// is never "changed".
func Changed(marks RevisionSet, uncommon RevisionSet) bool {
	if len(marks) == 0 {
		return false
	}
	return marks.Intersects(uncommon)
}

// mergeMarks is the single resolution rule behind spec §4.5's four-step
// merge-marking recipe, applied uniformly to every aspect (parent_name,
// file_content, each attr key). It takes the already-decided changed/
// unchanged signal for each side (the same signal the structural merge in
// package merge uses to decide values) plus an "agree" flag saying whether,
// when both sides changed, they changed to the same value:
//
//  1. neither side changed the aspect: both sides inherited it unmodified
//     from the common ancestor, so L and R denote the same provenance;
//     the merged mark set is their union.
//  2. exactly one side changed it: that side's mark set wins outright.
//  3. both sides changed it to the same value (a clean merge): union,
//     same as case 1 — both provenances are now jointly responsible.
//  4. both sides changed it to different values: a conflict the caller
//     resolved externally into a new value; the merged mark set is just
//     {newRid}, since neither parent's mark set describes the resolved
//     value.
//
// This is the pinned resolution for the open question noted in spec §9
// ("the precise tie-breaking ... is subtle"); see DESIGN.md.
func mergeMarks(leftChanged, rightChanged, agree bool, l, r RevisionSet, newRid common.RevisionId) RevisionSet {
	switch {
	case !leftChanged && !rightChanged:
		return l.Union(r)
	case leftChanged && !rightChanged:
		return l.Clone()
	case !leftChanged && rightChanged:
		return r.Clone()
	default: // both changed
		if agree {
			return l.Union(r)
		}
		return NewRevisionSet(newRid)
	}
}

// Merge computes the marking map for a roster already assembled by the
// merge engine (spec §4.5 "Merge marking", §4.6): for every node present in
// merged, each mutable aspect's provenance set is derived from the left and
// right markings using the uncommon-ancestor partitions supplied by the
// caller. This mirrors the original roster.hh's mark_merge_roster signature
// (left_roster/left_markings/left_uncommon_ancestors, the same for right,
// new_rid, merge) exactly: the merged roster is an input, not an output,
// of this function — package merge builds it first.
func Merge(
	left *roster.Roster, leftMarks *MarkingMap, leftUncommon RevisionSet,
	right *roster.Roster, rightMarks *MarkingMap, rightUncommon RevisionSet,
	newRid common.RevisionId, merged *roster.Roster,
) (*MarkingMap, error) {
	mm := New()
	err := merged.Walk(func(_ common.FilePath, n *roster.Node) error {
		leftNode, leftErr := left.GetNodeById(n.Id)
		rightNode, rightErr := right.GetNodeById(n.Id)
		onLeft, onRight := leftErr == nil, rightErr == nil

		lm, _ := leftMarks.Get(n.Id)
		rm, _ := rightMarks.Get(n.Id)

		switch {
		case onLeft && !onRight:
			mm.Set(n.Id, lm.Clone())
			return nil
		case onRight && !onLeft:
			mm.Set(n.Id, rm.Clone())
			return nil
		}

		m := Marking{BirthRevision: lm.BirthRevision, Attrs: map[common.AttrKey]RevisionSet{}}

		locEq := leftNode.Parent == rightNode.Parent && leftNode.Name == rightNode.Name
		lChanged := Changed(lm.ParentName, leftUncommon)
		rChanged := Changed(rm.ParentName, rightUncommon)
		m.ParentName = mergeMarks(lChanged, rChanged, locEq, lm.ParentName, rm.ParentName, newRid)

		if n.IsFile() {
			contentEq := leftNode.IsFile() && rightNode.IsFile() && leftNode.Content == rightNode.Content
			lChanged = Changed(lm.FileContent, leftUncommon)
			rChanged = Changed(rm.FileContent, rightUncommon)
			m.FileContent = mergeMarks(lChanged, rChanged, contentEq, lm.FileContent, rm.FileContent, newRid)
		}

		for key := range unionAttrKeys(leftNode.Attrs, rightNode.Attrs, n.Attrs) {
			la, lok := leftNode.Attrs[key]
			ra, rok := rightNode.Attrs[key]
			lSet := lm.Attrs[key]
			rSet := rm.Attrs[key]
			lChanged = Changed(lSet, leftUncommon)
			rChanged = Changed(rSet, rightUncommon)
			agree := lok && rok && la == ra
			m.Attrs[key] = mergeMarks(lChanged, rChanged, agree, lSet, rSet, newRid)
		}

		mm.Set(n.Id, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mm, nil
}

func unionAttrKeys(maps ...common.AttrMap) map[common.AttrKey]struct{} {
	ret := map[common.AttrKey]struct{}{}
	for _, m := range maps {
		for k := range m {
			ret[k] = struct{}{}
		}
	}
	return ret
}
