package restrict_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ironhold/revgraph/common"
	"github.com/ironhold/revgraph/restrict"
	"github.com/ironhold/revgraph/roster"
)

func mustPath(t *testing.T, s string) common.FilePath {
	t.Helper()
	p, err := common.SplitPath(s)
	require.NoError(t, err)
	return p
}

// buildTree creates a roster with one file per name given, all attached
// directly under the root (these tests only need flat top-level paths).
func buildTree(t *testing.T, files ...string) *roster.Roster {
	t.Helper()
	r := roster.New(common.RootNodeId)
	src := common.NewPermanentNodeIdSource(common.RootNodeId)
	for _, f := range files {
		p := mustPath(t, f)
		_, name := p.Parent()
		n := r.CreateFileNode(common.HashFileId([]byte(f)), src)
		require.NoError(t, r.AttachNode(n.Id, r.Root(), name))
	}
	return r
}

func TestIncludesPathImplicitDefault(t *testing.T) {
	r := restrict.New(nil, nil)
	require.True(t, r.IncludesPath(mustPath(t, "a/b/c.txt")))
}

func TestIncludesPathExplicitEmptyExcludesEverything(t *testing.T) {
	r := restrict.New(nil, nil)
	r.Rule = restrict.ExplicitIncludes
	require.False(t, r.IncludesPath(mustPath(t, "a.txt")))
}

func TestIncludesPathRespectsExcluded(t *testing.T) {
	r := restrict.New([]common.FilePath{mustPath(t, "a")}, []common.FilePath{mustPath(t, "a/b")})
	require.True(t, r.IncludesPath(mustPath(t, "a/c.txt")))
	require.False(t, r.IncludesPath(mustPath(t, "a/b/c.txt")))
}

func TestIncludesPathDepthBound(t *testing.T) {
	r := restrict.New([]common.FilePath{mustPath(t, "a")}, nil)
	r.Depth = 1
	require.True(t, r.IncludesPath(mustPath(t, "a/b")))
	require.False(t, r.IncludesPath(mustPath(t, "a/b/c")))
}

func TestValidateRejectsUnknownPath(t *testing.T) {
	r := buildTree(t, "a.txt", "b.txt")
	mask := restrict.New([]common.FilePath{mustPath(t, "nope.txt")}, nil)
	require.Error(t, mask.Validate(r))
}

func TestValidateAcceptsKnownPath(t *testing.T) {
	r := buildTree(t, "a.txt", "b.txt")
	mask := restrict.New([]common.FilePath{mustPath(t, "a.txt")}, nil)
	require.NoError(t, mask.Validate(r))
}

func TestMakeRestrictedRosterSlidesBetweenTwoRosters(t *testing.T) {
	from := buildTree(t, "a.txt", "b.txt")
	to := from.Clone()
	require.NoError(t, to.ApplyDelta(mustPath(t, "a.txt"), common.HashFileId([]byte("a.txt")), common.HashFileId([]byte("new-a"))))
	require.NoError(t, to.ApplyDelta(mustPath(t, "b.txt"), common.HashFileId([]byte("b.txt")), common.HashFileId([]byte("new-b"))))

	mask := restrict.New([]common.FilePath{mustPath(t, "a.txt")}, nil)
	result, err := restrict.MakeRestrictedRoster(from, to, mask)
	require.NoError(t, err)

	an, err := result.GetNode(mustPath(t, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, common.HashFileId([]byte("new-a")), an.Content, "a.txt is included, so it takes to's value")

	bn, err := result.GetNode(mustPath(t, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, common.HashFileId([]byte("b.txt")), bn.Content, "b.txt is not included, so it keeps from's value")
}

func TestIncludesByNodeId(t *testing.T) {
	r := buildTree(t, "a.txt")
	mask := restrict.New([]common.FilePath{mustPath(t, "a.txt")}, nil)
	n, err := r.GetNode(mustPath(t, "a.txt"))
	require.NoError(t, err)
	require.True(t, mask.Includes(r, n.Id))
	require.False(t, mask.Includes(r, r.Root()+999))
}
