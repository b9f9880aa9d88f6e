package roster_test

import (
	"testing"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/roster"
	"github.com/stretchr/testify/require"
)

func TestNewRosterHasOnlyRoot(t *testing.T) {
	r := roster.New(common.RootNodeId)
	require.Equal(t, 1, r.NumNodes())
	n, err := r.GetNode(common.FilePath{})
	require.NoError(t, err)
	require.True(t, n.IsRoot())
}

func TestCreateAttachFile(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	p, err := common.SplitPath("a.txt")
	require.NoError(t, err)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))

	got, err := r.GetNode(p)
	require.NoError(t, err)
	require.True(t, got.IsFile())
	require.Equal(t, fid, got.Content)
	require.Equal(t, 2, r.NumNodes())
}

func TestCloneIsIndependent(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))

	clone := r.Clone()
	p, _ := common.SplitPath("a.txt")
	_, err := clone.DetachNode(p)
	require.NoError(t, err)
	require.NoError(t, clone.DropDetachedNode(n.Id))

	require.Equal(t, 1, clone.NumNodes())
	require.Equal(t, 2, r.NumNodes(), "mutating the clone must not affect the original")
}

func TestDetachRootRejected(t *testing.T) {
	r := roster.New(common.RootNodeId)
	_, err := r.DetachNode(common.FilePath{})
	require.Error(t, err)
}

func TestReattachAtOldLocationRejected(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))

	p, _ := common.SplitPath("a.txt")
	id, err := r.DetachNode(p)
	require.NoError(t, err)

	err = r.AttachNode(id, r.Root(), "a.txt")
	require.Error(t, err)
	var rerr *common.RosterError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, common.RosterReattachOldLocation, rerr.Kind)
}

func TestRenameIsAllowed(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))

	p, _ := common.SplitPath("a.txt")
	id, err := r.DetachNode(p)
	require.NoError(t, err)
	require.NoError(t, r.AttachNode(id, r.Root(), "b.txt"))

	bp, _ := common.SplitPath("b.txt")
	got, err := r.GetNode(bp)
	require.NoError(t, err)
	require.Equal(t, id, got.Id)
}

func TestDropAttachedFails(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))
	require.Error(t, r.DropDetachedNode(n.Id))
}

func TestDropNeverAttachedAllowed(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	require.NoError(t, r.DropDetachedNode(n.Id))
}

func TestManifestHashStable(t *testing.T) {
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	fid := common.HashFileId([]byte("hello\n"))
	n := r.CreateFileNode(fid, src)
	require.NoError(t, r.AttachNode(n.Id, r.Root(), "a.txt"))

	h1, err := r.HashManifest()
	require.NoError(t, err)

	data, err := r.WriteCanonical(nil)
	require.NoError(t, err)
	reparsed, err := roster.ParseCanonical(data, common.NewPermanentNodeIdSource(0))
	require.NoError(t, err)
	h2, err := reparsed.HashManifest()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}
