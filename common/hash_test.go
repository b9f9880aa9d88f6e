package common_test

import (
	"testing"

	"github.com/ironhold/revgraph/common"
	"github.com/stretchr/testify/require"
)

func TestHashBytesDeterministic(t *testing.T) {
	h1 := common.HashBytes([]byte("hello\n"))
	h2 := common.HashBytes([]byte("hello\n"))
	require.Equal(t, h1, h2)
	require.Len(t, h1.String(), common.HashSize*2)
}

func TestHashBytesDiffers(t *testing.T) {
	h1 := common.HashBytes([]byte("hello\n"))
	h2 := common.HashBytes([]byte("goodbye\n"))
	require.NotEqual(t, h1, h2)
}

func TestParseContentHashRoundTrip(t *testing.T) {
	h := common.HashBytes([]byte("hello\n"))
	parsed, err := common.ParseContentHash(h.String())
	require.NoError(t, err)
	require.Equal(t, h, parsed)
}

func TestParseContentHashRejectsWrongLength(t *testing.T) {
	_, err := common.ParseContentHash("abcd")
	require.Error(t, err)
}

func TestNullIds(t *testing.T) {
	require.True(t, common.NullRevisionId.IsNull())
	require.True(t, common.NullFileId.IsNull())
}
