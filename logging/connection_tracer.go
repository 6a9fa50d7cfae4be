package logging

import "net/netip"

// A ConnectionTracer records events.
// Every field is optional.
type ConnectionTracer struct {
	StartedConnection       func(local, remote netip.AddrPort, srcConnID, destConnID ConnectionID)
	ClosedConnection        func(err error)
	SentPacket              func(encLevel EncryptionLevel, pn PacketNumber, size ByteCount, ecn ECN, frames []Frame)
	ReceivedPacket          func(encLevel EncryptionLevel, pn PacketNumber, size ByteCount, ecn ECN, frames []Frame)
	BufferedPacket          func(PacketType, ByteCount)
	DroppedPacket           func(PacketType, PacketNumber, ByteCount, PacketDropReason)
	UpdatedMetrics          func(rttStats *RTTStats, cwnd, bytesInFlight ByteCount)
	UpdatedKeyFromHandshake func(EncryptionLevel, Perspective)
	UpdatedKey              func(keyPhase KeyPhase, remote bool)
	DroppedEncryptionLevel  func(EncryptionLevel)
	DroppedKey              func(keyPhase KeyPhase)
	StartedPathValidation   func(local, remote netip.AddrPort, reason PathValidationReason)
	CompletedPathValidation func(local, remote netip.AddrPort, success bool)
	MigratedPath            func(from, to netip.AddrPort, peerInitiated bool)
	UpdatedMTU              func(mtu ByteCount, done bool)
	ECNStateUpdated         func(state ECNState)
	Close                   func()
	Debug                   func(name, msg string)
}

// NewMultiplexedConnectionTracer creates a new connection tracer that multiplexes events to multiple tracers.
func NewMultiplexedConnectionTracer(tracers ...*ConnectionTracer) *ConnectionTracer {
	if len(tracers) == 0 {
		return nil
	}
	if len(tracers) == 1 {
		return tracers[0]
	}
	return &ConnectionTracer{
		StartedConnection: func(local, remote netip.AddrPort, srcConnID, destConnID ConnectionID) {
			for _, t := range tracers {
				if t.StartedConnection != nil {
					t.StartedConnection(local, remote, srcConnID, destConnID)
				}
			}
		},
		ClosedConnection: func(err error) {
			for _, t := range tracers {
				if t.ClosedConnection != nil {
					t.ClosedConnection(err)
				}
			}
		},
		SentPacket: func(encLevel EncryptionLevel, pn PacketNumber, size ByteCount, ecn ECN, frames []Frame) {
			for _, t := range tracers {
				if t.SentPacket != nil {
					t.SentPacket(encLevel, pn, size, ecn, frames)
				}
			}
		},
		ReceivedPacket: func(encLevel EncryptionLevel, pn PacketNumber, size ByteCount, ecn ECN, frames []Frame) {
			for _, t := range tracers {
				if t.ReceivedPacket != nil {
					t.ReceivedPacket(encLevel, pn, size, ecn, frames)
				}
			}
		},
		BufferedPacket: func(typ PacketType, size ByteCount) {
			for _, t := range tracers {
				if t.BufferedPacket != nil {
					t.BufferedPacket(typ, size)
				}
			}
		},
		DroppedPacket: func(typ PacketType, pn PacketNumber, size ByteCount, reason PacketDropReason) {
			for _, t := range tracers {
				if t.DroppedPacket != nil {
					t.DroppedPacket(typ, pn, size, reason)
				}
			}
		},
		UpdatedMetrics: func(rttStats *RTTStats, cwnd, bytesInFlight ByteCount) {
			for _, t := range tracers {
				if t.UpdatedMetrics != nil {
					t.UpdatedMetrics(rttStats, cwnd, bytesInFlight)
				}
			}
		},
		UpdatedKeyFromHandshake: func(encLevel EncryptionLevel, perspective Perspective) {
			for _, t := range tracers {
				if t.UpdatedKeyFromHandshake != nil {
					t.UpdatedKeyFromHandshake(encLevel, perspective)
				}
			}
		},
		UpdatedKey: func(keyPhase KeyPhase, remote bool) {
			for _, t := range tracers {
				if t.UpdatedKey != nil {
					t.UpdatedKey(keyPhase, remote)
				}
			}
		},
		DroppedEncryptionLevel: func(encLevel EncryptionLevel) {
			for _, t := range tracers {
				if t.DroppedEncryptionLevel != nil {
					t.DroppedEncryptionLevel(encLevel)
				}
			}
		},
		DroppedKey: func(keyPhase KeyPhase) {
			for _, t := range tracers {
				if t.DroppedKey != nil {
					t.DroppedKey(keyPhase)
				}
			}
		},
		StartedPathValidation: func(local, remote netip.AddrPort, reason PathValidationReason) {
			for _, t := range tracers {
				if t.StartedPathValidation != nil {
					t.StartedPathValidation(local, remote, reason)
				}
			}
		},
		CompletedPathValidation: func(local, remote netip.AddrPort, success bool) {
			for _, t := range tracers {
				if t.CompletedPathValidation != nil {
					t.CompletedPathValidation(local, remote, success)
				}
			}
		},
		MigratedPath: func(from, to netip.AddrPort, peerInitiated bool) {
			for _, t := range tracers {
				if t.MigratedPath != nil {
					t.MigratedPath(from, to, peerInitiated)
				}
			}
		},
		UpdatedMTU: func(mtu ByteCount, done bool) {
			for _, t := range tracers {
				if t.UpdatedMTU != nil {
					t.UpdatedMTU(mtu, done)
				}
			}
		},
		ECNStateUpdated: func(state ECNState) {
			for _, t := range tracers {
				if t.ECNStateUpdated != nil {
					t.ECNStateUpdated(state)
				}
			}
		},
		Close: func() {
			for _, t := range tracers {
				if t.Close != nil {
					t.Close()
				}
			}
		},
		Debug: func(name, msg string) {
			for _, t := range tracers {
				if t.Debug != nil {
					t.Debug(name, msg)
				}
			}
		},
	}
}
