// Package engine wires roster, cset, marking, revision, merge and restrict
// together behind the single external contract spec §6 describes: the
// operations collaborators (database, netsync, workspace, CLI) call into
// the core through, and the three collaborator interfaces (Database,
// NodeIdSource, ConflictResolver) the core calls back out through. Nothing
// here introduces new algorithms; it is a thin dispatcher over the
// packages that already implement them, in the spirit of the teacher's
// own top-level trie.go which wires together its node, commitment and
// proof packages behind one TrieReader/TrieUpdatable surface.
package engine

import (
	"github.com/ironhold/revgraph/cset"
	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/marking"
	"github.com/ironhold/revgraph/merge"
	"github.com/ironhold/revgraph/restrict"
	"github.com/ironhold/revgraph/revision"
	"github.com/ironhold/revgraph/roster"
)

// Facade is the single entry point a collaborator holds. It carries no
// state of its own beyond the Database and Observer it was built with;
// every method is safe to call concurrently as long as distinct calls
// operate on distinct rosters/markings (spec §5: each roster/marking/merge
// computation is owned by exactly one thread for its lifetime).
type Facade struct {
	db       common.Database
	observer common.Observer
}

func NewFacade(db common.Database, observer common.Observer) *Facade {
	return &Facade{db: db, observer: common.ObserverOrNoop(observer)}
}

// ApplyCset applies cs to base using idSource to mint any new node ids
// (spec §6 "apply_cset(roster, cset) -> roster").
func (f *Facade) ApplyCset(base *roster.Roster, cs *cset.Cset, idSource common.NodeIdSource) (*roster.Roster, error) {
	return cset.Apply(base, cs, idSource)
}

// DiffRosters computes the cset that transforms a into b (spec §6
// "diff_rosters(a, b) -> cset").
func (f *Facade) DiffRosters(a, b *roster.Roster) (*cset.Cset, error) {
	return cset.Diff(a, b)
}

// WriteCanonicalRoster renders r's structural text (no marking data), the
// same bytes hash_manifest hashes (spec §6 "write_canonical_roster(roster)
// -> bytes").
func (f *Facade) WriteCanonicalRoster(r *roster.Roster) ([]byte, error) {
	return r.WriteCanonical(nil)
}

// ReadCanonicalRoster is the read half of WriteCanonicalRoster.
func (f *Facade) ReadCanonicalRoster(data []byte, idSource common.NodeIdSource) (*roster.Roster, error) {
	return roster.ParseCanonical(data, idSource)
}

// HashManifest computes r's manifest id (spec §6 "hash_manifest(roster) ->
// ManifestId").
func (f *Facade) HashManifest(r *roster.Roster) (common.ManifestId, error) {
	return r.HashManifest()
}

// HashRevision computes rev's revision id (spec §6 "hash_revision(revision)
// -> RevisionId").
func (f *Facade) HashRevision(rev *revision.Revision) (common.RevisionId, error) {
	return rev.HashRevision()
}

// RestrictionIncludes reports whether id, as positioned in ros, passes
// mask (spec §6 "restriction::includes(roster, node_id) -> bool").
func (f *Facade) RestrictionIncludes(ros *roster.Roster, id common.NodeId, mask *restrict.Restriction) bool {
	return mask.Includes(ros, id)
}

// MakeRestrictedRoster composes from and to under mask (spec §4.8
// "make_restricted_roster(from, to, mask) -> r"): r[p] == to[p] wherever
// mask includes p, else r[p] == from[p]. from and to must share a root.
func (f *Facade) MakeRestrictedRoster(from, to *roster.Roster, mask *restrict.Restriction) (result *roster.Roster, err error) {
	defer recoverAssertion(&err)
	return restrict.MakeRestrictedRoster(from, to, mask)
}

// ParentState is one parent's contribution to make_roster_for_revision:
// its already-reconstructed roster and marking map.
type ParentState struct {
	Revision common.RevisionId
	Roster   *roster.Roster
	Marks    *marking.MarkingMap
}

// MakeRosterForRevision reconstructs the (roster, marking) pair a revision
// denotes, given its already-reconstructed parent states (spec §6
// "make_roster_for_revision(rev, rid, parent_rosters, parent_markings) ->
// (roster, marking)"). It dispatches on the edge count: zero parents is a
// root revision (no-parent marking), one parent runs apply_cset + the
// one-parent marking rule, two parents runs the merge engine and returns
// its markings — matching the original's make_roster_for_nonmerge /
// make_roster_for_merge split (original_source/src/roster.hh).
//
// Uncommon ancestor sets for a two-parent (merge) revision must be supplied
// by the caller (a database collaborator computes them from the revision
// graph, which is out of the core's scope); pass them via leftUncommon and
// rightUncommon, ordered to match parents[0]/parents[1].
func (f *Facade) MakeRosterForRevision(
	rev *revision.Revision, rid common.RevisionId, parents []ParentState,
	leftUncommon, rightUncommon marking.RevisionSet,
	resolver common.ConflictResolver,
) (result *roster.Roster, marks *marking.MarkingMap, err error) {
	defer recoverAssertion(&err)
	return f.makeRosterForRevision(rev, rid, parents, leftUncommon, rightUncommon, resolver)
}

func (f *Facade) makeRosterForRevision(
	rev *revision.Revision, rid common.RevisionId, parents []ParentState,
	leftUncommon, rightUncommon marking.RevisionSet,
	resolver common.ConflictResolver,
) (*roster.Roster, *marking.MarkingMap, error) {
	switch {
	case len(rev.Edges) == 0 || rev.IsRoot():
		return f.makeRootRoster(rev, rid)

	case len(rev.Edges) == 1:
		if len(parents) != 1 {
			return nil, nil, &common.IntegrityAssertion{Message: "one-edge revision needs exactly one parent state"}
		}
		return f.makeOneParentRoster(rev, rid, parents[0])

	case len(rev.Edges) == 2:
		if len(parents) != 2 {
			return nil, nil, &common.IntegrityAssertion{Message: "merge revision needs exactly two parent states"}
		}
		return f.makeMergeRoster(rev, rid, parents[0], parents[1], leftUncommon, rightUncommon, resolver)

	default:
		return nil, nil, &common.IntegrityAssertion{Message: "revision has an unsupported edge count"}
	}
}

func (f *Facade) makeRootRoster(rev *revision.Revision, rid common.RevisionId) (*roster.Roster, *marking.MarkingMap, error) {
	r := roster.New(common.RootNodeId)
	cs := cset.New()
	if len(rev.Edges) > 0 {
		cs = rev.Edges[0].Cset
	}
	idSource := common.NewPermanentNodeIdSource(common.RootNodeId)
	applied, err := cset.Apply(r, cs, idSource)
	if err != nil {
		return nil, nil, err
	}
	if err := f.checkManifest(applied, rev.NewManifest); err != nil {
		return nil, nil, err
	}
	mm, err := marking.NoParent(applied, rid)
	if err != nil {
		return nil, nil, err
	}
	return applied, mm, nil
}

func (f *Facade) makeOneParentRoster(rev *revision.Revision, rid common.RevisionId, parent ParentState) (*roster.Roster, *marking.MarkingMap, error) {
	idSource := common.NewPermanentNodeIdSource(highestNodeId(parent.Roster))
	child, err := cset.Apply(parent.Roster, rev.Edges[0].Cset, idSource)
	if err != nil {
		return nil, nil, err
	}
	if err := f.checkManifest(child, rev.NewManifest); err != nil {
		return nil, nil, err
	}
	mm, err := marking.OneParent(parent.Roster, parent.Marks, child, rid)
	if err != nil {
		return nil, nil, err
	}
	return child, mm, nil
}

func (f *Facade) makeMergeRoster(
	rev *revision.Revision, rid common.RevisionId, left, right ParentState,
	leftUncommon, rightUncommon marking.RevisionSet,
	resolver common.ConflictResolver,
) (*roster.Roster, *marking.MarkingMap, error) {
	leftSide := merge.Side{Roster: left.Roster, Marks: left.Marks, Uncommon: leftUncommon}
	rightSide := merge.Side{Roster: right.Roster, Marks: right.Marks, Uncommon: rightUncommon}

	result, err := merge.ThreeWayMerge(leftSide, rightSide, resolver, f.observer)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Conflicts) > 0 || result.Roster == nil {
		return nil, nil, &unresolvedConflicts{Conflicts: result.Conflicts}
	}
	if err := f.checkManifest(result.Roster, rev.NewManifest); err != nil {
		return nil, nil, err
	}
	mm, err := marking.Merge(left.Roster, left.Marks, leftUncommon, right.Roster, right.Marks, rightUncommon, rid, result.Roster)
	if err != nil {
		return nil, nil, err
	}
	return result.Roster, mm, nil
}

// ThreeWayMerge exposes the merge engine directly, for callers (e.g. a
// workspace update command) that want a merge result without going through
// a revision (spec §6 "three_way_merge(left_state, right_state,
// ancestor_sets) -> MergeResult{roster, markings, conflicts}").
func (f *Facade) ThreeWayMerge(left, right merge.Side, resolver common.ConflictResolver, rid common.RevisionId) (result *merge.Result, marks *marking.MarkingMap, err error) {
	defer recoverAssertion(&err)
	return f.threeWayMerge(left, right, resolver, rid)
}

func (f *Facade) threeWayMerge(left, right merge.Side, resolver common.ConflictResolver, rid common.RevisionId) (*merge.Result, *marking.MarkingMap, error) {
	result, err := merge.ThreeWayMerge(left, right, resolver, f.observer)
	if err != nil {
		return nil, nil, err
	}
	if len(result.Conflicts) > 0 || result.Roster == nil {
		return result, nil, nil
	}
	mm, err := marking.Merge(left.Roster, left.Marks, left.Uncommon, right.Roster, right.Marks, right.Uncommon, rid, result.Roster)
	if err != nil {
		return nil, nil, err
	}
	return result, mm, nil
}

// checkManifest enforces spec §6's "may fail if a parent's cset is invalid
// or produces a roster whose hash != rev.new_manifest": a HashMismatch is
// fatal (spec §7), not a recoverable error.
func (f *Facade) checkManifest(r *roster.Roster, want common.ManifestId) error {
	got, err := r.HashManifest()
	if err != nil {
		return err
	}
	if got != want {
		return &common.HashMismatch{Claimed: want.String(), Actual: got.String()}
	}
	return nil
}

// highestNodeId scans r for the largest permanent node id present, so a
// one-parent reconstruction's id source continues numbering from where the
// parent roster left off rather than colliding with existing ids.
func highestNodeId(r *roster.Roster) common.NodeId {
	max := common.RootNodeId
	_ = r.Walk(func(_ common.FilePath, n *roster.Node) error {
		if n.Id > max {
			max = n.Id
		}
		return nil
	})
	return max
}

// recoverAssertion is the one place the core's common.Assert panics are
// caught (spec §7's propagation policy, SPEC_FULL.md §2): an
// IntegrityAssertion aborts the operation it was raised from, not the
// calling goroutine. Any other panic value is not ours to interpret and is
// re-raised unchanged.
func recoverAssertion(err *error) {
	r := recover()
	if r == nil {
		return
	}
	ia, ok := r.(*common.IntegrityAssertion)
	if !ok {
		panic(r)
	}
	*err = ia
}

// unresolvedConflicts wraps a merge's conflict list so
// MakeRosterForRevision can report "no roster" distinctly from any other
// error, while still letting the caller recover the full conflict list via
// errors.As.
type unresolvedConflicts struct {
	Conflicts []common.MergeConflict
}

func (e *unresolvedConflicts) Error() string {
	if len(e.Conflicts) == 0 {
		return "merge has unresolved conflicts"
	}
	return e.Conflicts[0].Error()
}
