package quicconn

import (
	"testing"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"

	"github.com/stretchr/testify/require"
)

func TestFramerControlFrames(t *testing.T) {
	f := newFramer(protocol.Version1)
	require.False(t, f.HasData())

	ping := &wire.PingFrame{}
	challenge := &wire.PathChallengeFrame{Data: [8]byte{1, 2, 3, 4, 5, 6, 7, 8}}
	response := &wire.PathResponseFrame{Data: [8]byte{8, 7, 6, 5, 4, 3, 2, 1}}
	f.QueueControlFrame(ping)
	f.QueueControlFrame(challenge)
	f.QueueControlFrame(response)
	require.True(t, f.HasControlFrames())
	require.False(t, f.HasStreamData())

	frames, length := f.AppendControlFrames(nil, 1000)
	require.Equal(t, []wire.Frame{response, ping, challenge}, frames)
	require.Equal(t, response.Length(protocol.Version1)+ping.Length(protocol.Version1)+challenge.Length(protocol.Version1), length)
	require.False(t, f.HasControlFrames())
}

func TestFramerControlFramesLimit(t *testing.T) {
	f := newFramer(protocol.Version1)
	challenge := &wire.PathChallengeFrame{}
	f.QueueControlFrame(&wire.PingFrame{})
	f.QueueControlFrame(challenge)

	frames, length := f.AppendControlFrames(nil, challenge.Length(protocol.Version1))
	require.Equal(t, []wire.Frame{&wire.PingFrame{}}, frames)
	require.Equal(t, protocol.ByteCount(1), length)
	require.True(t, f.HasControlFrames())

	frames, _ = f.AppendControlFrames(frames, 100)
	require.Equal(t, []wire.Frame{&wire.PingFrame{}, challenge}, frames)
}

func TestFramerRemovePathChallenges(t *testing.T) {
	f := newFramer(protocol.Version1)
	f.QueueControlFrame(&wire.PathChallengeFrame{Data: [8]byte{1}})
	f.QueueControlFrame(&wire.PingFrame{})
	f.QueueControlFrame(&wire.PathChallengeFrame{Data: [8]byte{2}})
	f.QueueControlFrame(&wire.PathResponseFrame{Data: [8]byte{3}})
	f.RemovePathChallenges()

	frames, _ := f.AppendControlFrames(nil, 1000)
	require.Equal(t, []wire.Frame{&wire.PathResponseFrame{Data: [8]byte{3}}, &wire.PingFrame{}}, frames)
}

func TestFramerStreamFrames(t *testing.T) {
	f := newFramer(protocol.Version1)
	f.QueueStreamFrame(&wire.StreamFrame{StreamID: 1, Data: []byte("foo")})
	f.QueueStreamFrame(&wire.StreamFrame{StreamID: 2, Data: []byte("bar"), Fin: true})
	require.True(t, f.HasStreamData())
	require.True(t, f.HasData())

	frames, length := f.AppendStreamFrames(nil, 1000)
	require.Len(t, frames, 2)
	require.Equal(t, frames[0].Length(protocol.Version1)+frames[1].Length(protocol.Version1), length)
	require.True(t, frames[1].(*wire.StreamFrame).Fin)
	require.False(t, f.HasData())
}

func TestFramerSplitsStreamFrames(t *testing.T) {
	f := newFramer(protocol.Version1)
	f.QueueStreamFrame(&wire.StreamFrame{StreamID: 4, Offset: 100, Data: make([]byte, 200), Fin: true})

	frames, length := f.AppendStreamFrames(nil, 50)
	require.Len(t, frames, 1)
	require.LessOrEqual(t, length, protocol.ByteCount(50))
	first := frames[0].(*wire.StreamFrame)
	require.Equal(t, protocol.ByteCount(100), first.Offset)
	require.False(t, first.Fin)
	require.True(t, f.HasStreamData())

	frames, _ = f.AppendStreamFrames(nil, 1000)
	require.Len(t, frames, 1)
	second := frames[0].(*wire.StreamFrame)
	require.Equal(t, first.Offset+protocol.ByteCount(len(first.Data)), second.Offset)
	require.Len(t, second.Data, 200-len(first.Data))
	require.True(t, second.Fin)
}

func TestFramerStreamFrameTooSmall(t *testing.T) {
	f := newFramer(protocol.Version1)
	f.QueueStreamFrame(&wire.StreamFrame{StreamID: 4, Offset: 1 << 20, Data: []byte("foobar")})
	frames, length := f.AppendStreamFrames(nil, 3)
	require.Empty(t, frames)
	require.Zero(t, length)
	require.True(t, f.HasStreamData())
}
