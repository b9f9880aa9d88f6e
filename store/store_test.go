package store_test

import (
	"testing"

	"github.com/iotaledger/hive.go/kvstore/mapdb"
	"github.com/stretchr/testify/require"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/cset"
	"github.com/ironhold/revgraph/revision"
	"github.com/ironhold/revgraph/store"
)

func mustPath(t *testing.T, s string) common.FilePath {
	t.Helper()
	p, err := common.SplitPath(s)
	require.NoError(t, err)
	return p
}

func TestPutGetFile(t *testing.T) {
	db := store.NewHiveDatabase(mapdb.NewMapDB())
	data := []byte("hello\n")
	id, err := db.PutFile(data)
	require.NoError(t, err)
	require.Equal(t, common.HashFileId(data), id)

	got, err := db.GetFile(id)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestPutRevisionRecordsParentsAndChildren(t *testing.T) {
	db := store.NewHiveDatabase(mapdb.NewMapDB())

	root := &revision.Revision{
		NewManifest: common.ManifestId(common.HashBytes([]byte("root manifest"))),
		Edges:       []revision.Edge{{Parent: common.NullRevisionId, Cset: cset.New()}},
	}
	rootData, err := root.WriteCanonical()
	require.NoError(t, err)
	rootId, err := root.HashRevision()
	require.NoError(t, err)
	require.NoError(t, db.PutRevisionBytes(rootId, rootData))

	cs := cset.New()
	cs.FilesAdded = append(cs.FilesAdded, cset.FileAdd{Path: mustPath(t, "a.txt"), Content: common.HashFileId([]byte("a"))})
	child := &revision.Revision{
		NewManifest: common.ManifestId(common.HashBytes([]byte("child manifest"))),
		Edges:       []revision.Edge{{Parent: rootId, Cset: cs}},
	}
	childData, err := child.WriteCanonical()
	require.NoError(t, err)
	childId, err := child.HashRevision()
	require.NoError(t, err)
	require.NoError(t, db.PutRevisionBytes(childId, childData))

	parents, err := db.Parents(childId)
	require.NoError(t, err)
	require.Equal(t, []common.RevisionId{rootId}, parents)

	children, err := db.Children(rootId)
	require.NoError(t, err)
	require.Equal(t, []common.RevisionId{childId}, children)

	got, err := db.GetRevisionBytes(childId)
	require.NoError(t, err)
	require.Equal(t, childData, got)
}

func TestGetRosterBytesNotCached(t *testing.T) {
	db := store.NewHiveDatabase(mapdb.NewMapDB())
	var someId common.RevisionId
	someId[0] = 7

	_, _, ok, err := db.GetRosterBytes(someId)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPutGetRosterBytes(t *testing.T) {
	db := store.NewHiveDatabase(mapdb.NewMapDB())
	var rid common.RevisionId
	rid[0] = 1

	require.NoError(t, db.PutRosterBytes(rid, []byte("roster text"), []byte("marking text")))
	rosterText, markingText, ok, err := db.GetRosterBytes(rid)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("roster text"), rosterText)
	require.Equal(t, []byte("marking text"), markingText)
}

func TestHeadsRoundTrip(t *testing.T) {
	db := store.NewHiveDatabase(mapdb.NewMapDB())
	var a, b common.RevisionId
	a[0], b[0] = 1, 2

	require.NoError(t, db.SetHeads("trunk", []common.RevisionId{b, a}))
	heads, err := db.Heads("trunk")
	require.NoError(t, err)
	require.ElementsMatch(t, []common.RevisionId{a, b}, heads)
}

func TestCertStorePutGet(t *testing.T) {
	db := store.NewHiveDatabase(mapdb.NewMapDB())
	cs := db.CertStore()

	var rid common.RevisionId
	rid[0] = 9
	var keyId common.KeyId
	keyId[0] = 3

	cert := common.Cert{Revision: rid, Name: "branch", Value: []byte("trunk"), Key: keyId, Signature: []byte("sig")}
	require.NoError(t, cs.PutCert(cert))

	certs, err := cs.GetCerts(rid)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	require.Equal(t, cert.Revision, certs[0].Revision)
	require.Equal(t, cert.Key, certs[0].Key)
	require.Equal(t, cert.Name, certs[0].Name)
	require.Equal(t, cert.Value, certs[0].Value)
	require.Equal(t, cert.Signature, certs[0].Signature)
}
