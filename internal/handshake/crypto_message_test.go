package handshake

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	m := &Message{
		Tag: TagCHLO,
		Values: map[Tag][]byte{
			TagVER:  {0, 0, 0, 1},
			TagNONC: []byte("nonce"),
			TagPAD:  {},
		},
	}
	b := m.Append([]byte("prefix"))
	require.Equal(t, []byte("prefix"), b[:6])
	parsed, n, err := ParseMessage(b[6:])
	require.NoError(t, err)
	require.Equal(t, len(b)-6, n)
	require.Equal(t, TagCHLO, parsed.Tag)
	require.Len(t, parsed.Values, 3)
	require.Equal(t, []byte("nonce"), parsed.Values[TagNONC])
	require.Equal(t, []byte{0, 0, 0, 1}, parsed.Values[TagVER])
	require.Empty(t, parsed.Values[TagPAD])
}

func TestMessageParsingIncomplete(t *testing.T) {
	m := &Message{Tag: TagREJ, Values: map[Tag][]byte{TagSTK: []byte("token")}}
	b := m.Append(nil)
	for i := range len(b) {
		_, _, err := ParseMessage(b[:i])
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	}
}

func TestMessageParsingCoalesced(t *testing.T) {
	b := (&Message{Tag: TagCHLO, Values: map[Tag][]byte{}}).Append(nil)
	b = (&Message{Tag: TagSHLO, Values: map[Tag][]byte{TagSNO: {1}}}).Append(b)
	m, n, err := ParseMessage(b)
	require.NoError(t, err)
	require.Equal(t, TagCHLO, m.Tag)
	m, _, err = ParseMessage(b[n:])
	require.NoError(t, err)
	require.Equal(t, TagSHLO, m.Tag)
}

func TestMessageParsingInvalid(t *testing.T) {
	t.Run("unsorted tags", func(t *testing.T) {
		b := []byte("CHLO")
		b = append(b, 0, 2)    // two values
		b = append(b, 0, 0, 14) // length
		b = append(b, []byte("VER\x00")...)
		b = append(b, 0, 1, 1)
		b = append(b, []byte("NONC")...)
		b = append(b, 0, 1, 2)
		_, _, err := ParseMessage(b)
		require.ErrorIs(t, err, errInvalidMessage)
	})

	t.Run("truncated value", func(t *testing.T) {
		b := []byte("CHLO")
		b = append(b, 0, 1)    // one value
		b = append(b, 0, 0, 7) // length
		b = append(b, []byte("VER\x00")...)
		b = append(b, 0, 5, 1)
		_, _, err := ParseMessage(b)
		require.ErrorIs(t, err, errInvalidMessage)
	})

	t.Run("trailing data", func(t *testing.T) {
		b := []byte("CHLO")
		b = append(b, 0, 0)    // no values
		b = append(b, 0, 0, 1) // length
		b = append(b, 42)
		_, _, err := ParseMessage(b)
		require.ErrorIs(t, err, errInvalidMessage)
	})
}

func TestTags(t *testing.T) {
	require.Equal(t, "CHLO", TagCHLO.String())
	require.Equal(t, "REJ", TagREJ.String())
	require.Equal(t, "SHLO{PUBS: 3 bytes}", (&Message{Tag: TagSHLO, Values: map[Tag][]byte{TagPUBS: {1, 2, 3}}}).String())
}

func TestLooksLikeHandshakeMessage(t *testing.T) {
	require.True(t, LooksLikeHandshakeMessage([]byte("CHLO foobar")))
	require.True(t, LooksLikeHandshakeMessage([]byte("REJ\x00")))
	require.True(t, LooksLikeHandshakeMessage((&Message{Tag: TagSHLO}).Append(nil)))
	require.False(t, LooksLikeHandshakeMessage([]byte("GET / HTTP/1.1")))
	require.False(t, LooksLikeHandshakeMessage([]byte("REJ")))
}
