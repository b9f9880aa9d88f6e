package revision_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/cset"
	"github.com/ironhold/revgraph/revision"
)

func mustPath(t *testing.T, s string) common.FilePath {
	t.Helper()
	p, err := common.SplitPath(s)
	require.NoError(t, err)
	return p
}

func sampleRevision(t *testing.T) *revision.Revision {
	cs := cset.New()
	cs.FilesAdded = append(cs.FilesAdded, cset.FileAdd{Path: mustPath(t, "a.txt"), Content: common.HashFileId([]byte("hello\n"))})
	return &revision.Revision{
		NewManifest: common.ManifestId(common.HashBytes([]byte("fake manifest"))),
		Edges:       []revision.Edge{{Parent: common.NullRevisionId, Cset: cs}},
	}
}

func TestWriteParseCanonicalRoundTrip(t *testing.T) {
	rev := sampleRevision(t)
	data, err := rev.WriteCanonical()
	require.NoError(t, err)

	parsed, err := revision.ParseCanonical(data)
	require.NoError(t, err)
	require.Equal(t, rev.NewManifest, parsed.NewManifest)
	require.Len(t, parsed.Edges, 1)
	require.Equal(t, common.NullRevisionId, parsed.Edges[0].Parent)
	require.True(t, parsed.IsRoot())
}

func TestHashRevisionIsDeterministic(t *testing.T) {
	rev := sampleRevision(t)
	h1, err := rev.HashRevision()
	require.NoError(t, err)
	h2, err := rev.HashRevision()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestIsMergeRequiresTwoEdges(t *testing.T) {
	rev := sampleRevision(t)
	require.False(t, rev.IsMerge())

	rev.Edges = append(rev.Edges, revision.Edge{Parent: rev.Edges[0].Parent, Cset: cset.New()})
	rev.Edges[0].Parent = common.RevisionId(common.HashBytes([]byte("left")))
	rev.Edges[1].Parent = common.RevisionId(common.HashBytes([]byte("right")))
	require.True(t, rev.IsMerge())
}

func TestWriteCanonicalOrdersEdgesByParentId(t *testing.T) {
	smaller := common.RevisionId{0x01}
	larger := common.RevisionId{0xff}
	rev := &revision.Revision{
		NewManifest: common.ManifestId(common.HashBytes([]byte("m"))),
		Edges: []revision.Edge{
			{Parent: larger, Cset: cset.New()},
			{Parent: smaller, Cset: cset.New()},
		},
	}
	data, err := rev.WriteCanonical()
	require.NoError(t, err)

	parsed, err := revision.ParseCanonical(data)
	require.NoError(t, err)
	require.Equal(t, smaller, parsed.Edges[0].Parent)
	require.Equal(t, larger, parsed.Edges[1].Parent)
}
