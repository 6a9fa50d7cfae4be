package quicconn

import (
	"testing"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"

	"github.com/stretchr/testify/require"
)

func TestCoalescerPadsFirstInitialPacket(t *testing.T) {
	env := newTestPackerEnv(t)
	env.initialStream.Write([]byte("client hello"))
	initial, err := env.packer.PackPacket(protocol.EncryptionInitial, 1200, monotime.Now(), false)
	require.NoError(t, err)
	env.framer.QueueControlFrame(&wire.PingFrame{})
	short, err := env.packer.PackPacket(protocol.Encryption1RTT, 1200-initial.Len(), monotime.Now(), false)
	require.NoError(t, err)

	var c coalescer
	require.True(t, c.IsEmpty())
	c.Add(initial)
	c.Add(short)
	require.False(t, c.IsEmpty())
	require.Equal(t, initial.Len()+short.Len(), c.Len())
	require.True(t, c.Contains(protocol.EncryptionInitial))
	require.True(t, c.Contains(protocol.Encryption1RTT))
	require.False(t, c.Contains(protocol.EncryptionHandshake))
	require.True(t, c.IsAckEliciting())

	buf := getPacketBuffer()
	defer buf.Release()
	require.NoError(t, c.Assemble(buf, 1200))
	require.Len(t, buf.Data, 1200)

	// the Initial packet carries the padding, the 1-RTT packet follows it
	hdr, _, rest, err := wire.ParseLongHeaderPacket(buf.Data)
	require.NoError(t, err)
	require.Equal(t, protocol.PacketTypeInitial, hdr.Type)
	require.Equal(t, short.raw, rest)

	c.Reset()
	require.True(t, c.IsEmpty())
	require.Zero(t, c.Len())
}

func TestCoalescerWithoutPadding(t *testing.T) {
	env := newTestPackerEnv(t)
	env.acks.acks[protocol.EncryptionInitial] = &wire.AckFrame{AckRanges: []wire.AckRange{{Smallest: 0, Largest: 0}}}
	initial, err := env.packer.PackPacket(protocol.EncryptionInitial, 1200, monotime.Now(), true)
	require.NoError(t, err)

	var c coalescer
	c.Add(initial)
	require.False(t, c.IsAckEliciting())
	buf := getPacketBuffer()
	defer buf.Release()
	require.NoError(t, c.Assemble(buf, 0))
	require.Equal(t, int(c.Len()), len(buf.Data))
}
