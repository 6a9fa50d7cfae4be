package quicconn

import (
	"time"

	"github.com/quic-go/quicconn/internal/protocol"
)

// ConnectionStats are the statistics of a connection.
type ConnectionStats struct {
	PacketsSent     uint64
	BytesSent       protocol.ByteCount
	PacketsReceived uint64
	BytesReceived   protocol.ByteCount

	// PacketsDropped counts datagrams and packets that were dropped before processing,
	// e.g. because they failed to decrypt or were addressed to an unknown connection ID.
	PacketsDropped    uint64
	DuplicatePackets  uint64
	UndecryptableSeen uint64
	PacketsLost       uint64
	PacketsBuffered   uint64

	PTOCount         uint64
	KeyUpdates       uint64
	PathValidations  uint64
	Migrations       uint64
	ECNCapable       bool
	SmoothedRTT      time.Duration
	MinRTT           time.Duration
	CongestionWindow protocol.ByteCount
	BytesInFlight    protocol.ByteCount
	MTU              protocol.ByteCount
}
