package marking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/marking"
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

func TestNoParentMarksEveryAspectWithRid(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	n := r.CreateFileNode(common.HashFileId([]byte("hi")), src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))
	require.NoError(t, r.SetAttr(mustPath(t, "a.txt"), "executable", ""))

	rid1 := rid(1)
	mm, err := marking.NoParent(r, rid1)
	require.NoError(t, err)
	require.NoError(t, marking.CheckConsistency(r, mm))

	rootMark, ok := mm.Get(r.Root())
	require.True(t, ok)
	require.True(t, rootMark.ParentName.Equal(marking.NewRevisionSet(rid1)))
	require.Equal(t, rid1, rootMark.BirthRevision)

	fileMark, ok := mm.Get(n.Id)
	require.True(t, ok)
	require.True(t, fileMark.FileContent.Equal(marking.NewRevisionSet(rid1)))
	require.True(t, fileMark.Attrs["executable"].Equal(marking.NewRevisionSet(rid1)))
}

func TestOneParentInheritsUnchangedMarksAndResetsChanged(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	n := r.CreateFileNode(common.HashFileId([]byte("hi")), src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))
	rid1 := rid(1)
	parentMarks, err := marking.NoParent(r, rid1)
	require.NoError(t, err)

	child := r.Clone()
	require.NoError(t, child.ApplyDelta(mustPath(t, "a.txt"), common.HashFileId([]byte("hi")), common.HashFileId([]byte("bye"))))

	rid2 := rid(2)
	childMarks, err := marking.OneParent(r, parentMarks, child, rid2)
	require.NoError(t, err)
	require.NoError(t, marking.CheckConsistency(child, childMarks))

	fileMark, ok := childMarks.Get(n.Id)
	require.True(t, ok)
	require.True(t, fileMark.FileContent.Equal(marking.NewRevisionSet(rid2)), "content mark must move to the new revision")
	require.True(t, fileMark.ParentName.Equal(marking.NewRevisionSet(rid1)), "unchanged location mark stays inherited")
	require.Equal(t, rid1, fileMark.BirthRevision, "birth revision is preserved across non-merge edits")
}

func TestOneParentAssignsBirthRevisionToNewNode(t *testing.T) {
	r := roster.New(common.RootNodeId)
	rid1 := rid(1)
	parentMarks, err := marking.NoParent(r, rid1)
	require.NoError(t, err)

	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	child := r.Clone()
	n := child.CreateFileNode(common.HashFileId([]byte("new")), src)
	require.NoError(t, child.AttachNode(n.Id, child.Root(), "b.txt"))

	rid2 := rid(2)
	childMarks, err := marking.OneParent(r, parentMarks, child, rid2)
	require.NoError(t, err)

	m, ok := childMarks.Get(n.Id)
	require.True(t, ok)
	require.Equal(t, rid2, m.BirthRevision)
	require.True(t, m.FileContent.Equal(marking.NewRevisionSet(rid2)))
}

func TestChangedIsFalseForEmptyMarkSet(t *testing.T) {
	require.False(t, marking.Changed(nil, marking.NewRevisionSet(rid(1))))
}

func TestChangedDetectsIntersection(t *testing.T) {
	marks := marking.NewRevisionSet(rid(1), rid(2))
	require.True(t, marking.Changed(marks, marking.NewRevisionSet(rid(2))))
	require.False(t, marking.Changed(marks, marking.NewRevisionSet(rid(3))))
}
