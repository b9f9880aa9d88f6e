package merge_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/marking"
	"github.com/ironhold/revgraph/merge"
	"github.com/ironhold/revgraph/roster"
)

func mustPath(t *testing.T, s string) common.FilePath {
	t.Helper()
	p, err := common.SplitPath(s)
	require.NoError(t, err)
	return p
}

func rid(b byte) common.RevisionId {
	var r common.RevisionId
	r[0] = b
	return r
}

// baseWithTwoFiles builds a common ancestor roster with a.txt and b.txt,
// and the no-parent marking map for it (scenario S4's ancestor).
func baseWithTwoFiles(t *testing.T) (*roster.Roster, *marking.MarkingMap, common.NodeId, common.NodeId) {
	t.Helper()
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	a := r.CreateFileNode(common.HashFileId([]byte("a")), src)
	require.NoError(t, r.AttachNode(a.Id, r.Root(), "a.txt"))
	b := r.CreateFileNode(common.HashFileId([]byte("b")), src)
	require.NoError(t, r.AttachNode(b.Id, r.Root(), "b.txt"))

	baseRid := rid(0)
	mm, err := marking.NoParent(r, baseRid)
	require.NoError(t, err)
	return r, mm, a.Id, b.Id
}

// TestThreeWayMergeCleanRenameAndDelete pins scenario S4: left renames
// a.txt -> c.txt, right deletes b.txt; the merge must succeed with no
// conflicts and the expected resulting tree shape.
func TestThreeWayMergeCleanRenameAndDelete(t *testing.T) {
	base, baseMarks, aId, _ := baseWithTwoFiles(t)

	leftRid := rid(1)
	left := base.Clone()
	_, err := left.DetachNode(mustPath(t, "a.txt"))
	require.NoError(t, err)
	require.NoError(t, left.AttachNode(aId, left.Root(), "c.txt"))
	leftMarks, err := marking.OneParent(base, baseMarks, left, leftRid)
	require.NoError(t, err)

	rightRid := rid(2)
	right := base.Clone()
	rbId, err := right.DetachNode(mustPath(t, "b.txt"))
	require.NoError(t, err)
	require.NoError(t, right.DropDetachedNode(rbId))
	rightMarks, err := marking.OneParent(base, baseMarks, right, rightRid)
	require.NoError(t, err)

	leftSide := merge.Side{Roster: left, Marks: leftMarks, Uncommon: marking.NewRevisionSet(leftRid)}
	rightSide := merge.Side{Roster: right, Marks: rightMarks, Uncommon: marking.NewRevisionSet(rightRid)}

	result, err := merge.ThreeWayMerge(leftSide, rightSide, common.NoopConflictResolver{}, common.NoopObserver)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.NotNil(t, result.Roster)

	_, err = result.Roster.GetNode(mustPath(t, "c.txt"))
	require.NoError(t, err)
	_, err = result.Roster.GetNode(mustPath(t, "b.txt"))
	require.Error(t, err)
	_, err = result.Roster.GetNode(mustPath(t, "a.txt"))
	require.Error(t, err)
}

// TestThreeWayMergeContentConflict pins scenario S5: both sides change
// a.txt's content differently; with no resolver, a content conflict is
// reported and no roster is produced.
func TestThreeWayMergeContentConflict(t *testing.T) {
	base, baseMarks, aId, _ := baseWithTwoFiles(t)

	leftRid := rid(1)
	left := base.Clone()
	require.NoError(t, left.ApplyDelta(mustPath(t, "a.txt"), common.HashFileId([]byte("a")), common.HashFileId([]byte("left"))))
	leftMarks, err := marking.OneParent(base, baseMarks, left, leftRid)
	require.NoError(t, err)

	rightRid := rid(2)
	right := base.Clone()
	require.NoError(t, right.ApplyDelta(mustPath(t, "a.txt"), common.HashFileId([]byte("a")), common.HashFileId([]byte("right"))))
	rightMarks, err := marking.OneParent(base, baseMarks, right, rightRid)
	require.NoError(t, err)

	leftSide := merge.Side{Roster: left, Marks: leftMarks, Uncommon: marking.NewRevisionSet(leftRid)}
	rightSide := merge.Side{Roster: right, Marks: rightMarks, Uncommon: marking.NewRevisionSet(rightRid)}

	result, err := merge.ThreeWayMerge(leftSide, rightSide, common.NoopConflictResolver{}, common.NoopObserver)
	require.NoError(t, err)
	require.Nil(t, result.Roster)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, common.ConflictContent, result.Conflicts[0].Kind)
	require.Equal(t, []common.NodeId{aId}, result.Conflicts[0].NodeIds)
}

// TestThreeWayMergeDuplicateNameConflict pins scenario S6: left creates a
// file "x", right creates a directory "x" — a duplicate-name conflict.
func TestThreeWayMergeDuplicateNameConflict(t *testing.T) {
	base := roster.New(common.RootNodeId)
	baseRid := rid(0)
	baseMarks, err := marking.NoParent(base, baseRid)
	require.NoError(t, err)

	leftRid := rid(1)
	left := base.Clone()
	leftSrc := common.NewPermanentNodeIdSource(common.RootNodeId)
	lf := left.CreateFileNode(common.HashFileId([]byte("x")), leftSrc)
	require.NoError(t, left.AttachNode(lf.Id, left.Root(), "x"))
	leftMarks, err := marking.OneParent(base, baseMarks, left, leftRid)
	require.NoError(t, err)

	rightRid := rid(2)
	right := base.Clone()
	rightSrc := common.NewPermanentNodeIdSource(common.RootNodeId + 1)
	rd := right.CreateDirNode(rightSrc)
	require.NoError(t, right.AttachNode(rd.Id, right.Root(), "x"))
	rightMarks, err := marking.OneParent(base, baseMarks, right, rightRid)
	require.NoError(t, err)

	leftSide := merge.Side{Roster: left, Marks: leftMarks, Uncommon: marking.NewRevisionSet(leftRid)}
	rightSide := merge.Side{Roster: right, Marks: rightMarks, Uncommon: marking.NewRevisionSet(rightRid)}

	result, err := merge.ThreeWayMerge(leftSide, rightSide, common.NoopConflictResolver{}, common.NoopObserver)
	require.NoError(t, err)
	require.Nil(t, result.Roster)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, common.ConflictDuplicateName, result.Conflicts[0].Kind)
}

// TestThreeWayMergeDormantAttrVsLiveSetConflicts pins the dormant-attribute
// interaction: the base has a live attribute, left clears it (dormant) and
// right sets it to a new value. Both sides changed the attribute relative
// to the common ancestor and disagree on the result (dormant vs live), so
// this must surface as an attr conflict rather than silently picking a
// side: clearing is itself a change, not a no-op that yields to whatever
// the other side did.
func TestThreeWayMergeDormantAttrVsLiveSetConflicts(t *testing.T) {
	base := roster.New(common.RootNodeId)
	baseSrc := common.NewPermanentNodeIdSource(common.RootNodeId)
	f := base.CreateFileNode(common.HashFileId([]byte("a")), baseSrc)
	require.NoError(t, base.AttachNode(f.Id, base.Root(), "a.txt"))
	require.NoError(t, base.SetAttr(mustPath(t, "a.txt"), "executable", "true"))

	baseRid := rid(0)
	baseMarks, err := marking.NoParent(base, baseRid)
	require.NoError(t, err)

	leftRid := rid(1)
	left := base.Clone()
	require.NoError(t, left.ClearAttr(mustPath(t, "a.txt"), "executable"))
	leftMarks, err := marking.OneParent(base, baseMarks, left, leftRid)
	require.NoError(t, err)

	rightRid := rid(2)
	right := base.Clone()
	require.NoError(t, right.SetAttr(mustPath(t, "a.txt"), "executable", "false"))
	rightMarks, err := marking.OneParent(base, baseMarks, right, rightRid)
	require.NoError(t, err)

	leftSide := merge.Side{Roster: left, Marks: leftMarks, Uncommon: marking.NewRevisionSet(leftRid)}
	rightSide := merge.Side{Roster: right, Marks: rightMarks, Uncommon: marking.NewRevisionSet(rightRid)}

	result, err := merge.ThreeWayMerge(leftSide, rightSide, common.NoopConflictResolver{}, common.NoopObserver)
	require.NoError(t, err)
	require.Nil(t, result.Roster)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, common.ConflictAttr, result.Conflicts[0].Kind)
	require.Equal(t, []common.NodeId{f.Id}, result.Conflicts[0].NodeIds)
}

// TestThreeWayMergeIdentity pins testable property 6: merging a roster
// with itself (same markings, same uncommon sets) returns that roster
// unchanged and zero conflicts.
func TestThreeWayMergeIdentity(t *testing.T) {
	base, baseMarks, _, _ := baseWithTwoFiles(t)
	side := merge.Side{Roster: base, Marks: baseMarks, Uncommon: marking.NewRevisionSet()}

	result, err := merge.ThreeWayMerge(side, side, common.NoopConflictResolver{}, common.NoopObserver)
	require.NoError(t, err)
	require.Empty(t, result.Conflicts)
	require.NotNil(t, result.Roster)
	require.True(t, base.Equal(result.Roster))
}
