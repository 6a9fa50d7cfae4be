package quicconn

import (
	"testing"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"

	"github.com/stretchr/testify/require"
)

func TestCryptoStreamReassembly(t *testing.T) {
	s := newCryptoStream()
	require.Nil(t, s.GetCryptoData())

	require.NoError(t, s.HandleCryptoFrame(&wire.CryptoFrame{Offset: 6, Data: []byte("world")}))
	require.Nil(t, s.GetCryptoData())
	require.NoError(t, s.HandleCryptoFrame(&wire.CryptoFrame{Offset: 0, Data: []byte("hello ")}))
	require.Equal(t, []byte("hello world"), s.GetCryptoData())
	require.Nil(t, s.GetCryptoData())

	// retransmissions are ignored
	require.NoError(t, s.HandleCryptoFrame(&wire.CryptoFrame{Offset: 0, Data: []byte("hello")}))
	require.Nil(t, s.GetCryptoData())
	// overlapping data is trimmed
	require.NoError(t, s.HandleCryptoFrame(&wire.CryptoFrame{Offset: 6, Data: []byte("world!")}))
	require.Equal(t, []byte("!"), s.GetCryptoData())
}

func TestCryptoStreamCopiesData(t *testing.T) {
	s := newCryptoStream()
	data := []byte("foobar")
	require.NoError(t, s.HandleCryptoFrame(&wire.CryptoFrame{Offset: 3, Data: data}))
	copy(data, "xxxxxx")
	require.NoError(t, s.HandleCryptoFrame(&wire.CryptoFrame{Offset: 0, Data: []byte("abc")}))
	require.Equal(t, []byte("abcfoobar"), s.GetCryptoData())
}

func TestCryptoStreamBufferLimit(t *testing.T) {
	s := newCryptoStream()
	err := s.HandleCryptoFrame(&wire.CryptoFrame{Offset: maxCryptoStreamBuffer, Data: []byte("foo")})
	require.ErrorIs(t, err, qerr.ErrCryptoBufferExceeded)
}

func TestCryptoStreamSending(t *testing.T) {
	s := newCryptoStream()
	require.False(t, s.HasData())
	_, err := s.Write([]byte("foobar"))
	require.NoError(t, err)
	require.True(t, s.HasData())

	// too small for a single byte of data
	require.Nil(t, s.PopCryptoFrame(2))

	f := s.PopCryptoFrame(1 + 1 + 1 + 3)
	require.NotNil(t, f)
	require.Equal(t, protocol.ByteCount(0), f.Offset)
	require.Equal(t, []byte("foo"), f.Data)
	f = s.PopCryptoFrame(100)
	require.Equal(t, protocol.ByteCount(3), f.Offset)
	require.Equal(t, []byte("bar"), f.Data)
	require.False(t, s.HasData())
}
