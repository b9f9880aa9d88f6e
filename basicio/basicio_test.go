package basicio_test

import (
	"errors"
	"testing"

	"github.com/ironhold/revgraph/basicio"
	"github.com/ironhold/revgraph/common"
	"github.com/stretchr/testify/require"
)

func TestWriteParseRoundTrip(t *testing.T) {
	stanzas := []basicio.Stanza{
		{
			basicio.NewLine("format_version", basicio.String("1")),
		},
		{
			basicio.NewLine("dir", basicio.String("")),
			basicio.NewLine("attr", basicio.String("exe"), basicio.String("true")),
		},
		{
			basicio.NewLine("file", basicio.String("a.txt")),
			basicio.NewLine("content", basicio.Hex([]byte{0xde, 0xad, 0xbe, 0xef})),
		},
	}
	data, err := basicio.WriteStanzas(stanzas)
	require.NoError(t, err)

	parsed, err := basicio.ParseStanzas(data)
	require.NoError(t, err)
	require.Len(t, parsed, 3)

	line, ok := parsed[0].Find("format_version")
	require.True(t, ok)
	v, ok := line.Str(0)
	require.True(t, ok)
	require.Equal(t, "1", v)

	line, ok = parsed[2].Find("content")
	require.True(t, ok)
	h, ok := line.HexBytes(0)
	require.True(t, ok)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, h)
}

func TestStringEscaping(t *testing.T) {
	stanzas := []basicio.Stanza{
		{basicio.NewLine("name", basicio.String(`quote " and backslash \`))},
	}
	data, err := basicio.WriteStanzas(stanzas)
	require.NoError(t, err)

	parsed, err := basicio.ParseStanzas(data)
	require.NoError(t, err)
	v, _ := parsed[0][0].Str(0)
	require.Equal(t, `quote " and backslash \`, v)
}

func TestParseErrorHasPosition(t *testing.T) {
	_, err := basicio.ParseStanzas([]byte("dir \"unterminated\n"))
	require.Error(t, err)
	require.NotEmpty(t, err.Error())
	var serr *common.SerializationError
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 1, serr.Line)
	require.Equal(t, 5, serr.Column)
}

func TestInvalidSymbolRejectedOnWrite(t *testing.T) {
	stanzas := []basicio.Stanza{
		{basicio.NewLine("1bad")},
	}
	_, err := basicio.WriteStanzas(stanzas)
	require.Error(t, err)
}

func TestMultipleStanzasSeparatedByBlankLines(t *testing.T) {
	data := []byte("a \"1\"\n\nb \"2\"\n\n")
	parsed, err := basicio.ParseStanzas(data)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
}
