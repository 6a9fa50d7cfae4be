// Package qlog records connection events in the qlog format, encoded as JSON text sequences.
package qlog

import (
	"errors"
	"io"
	"net/netip"
	"sync"
	"time"

	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/logging"
)

type connectionTracer struct {
	mutex sync.Mutex

	w           *writer
	perspective logging.Perspective

	lastMetrics *eventMetricsUpdated
}

// NewConnectionTracer creates a new tracer to record a qlog for a connection.
// The writer is closed when the connection is closed.
func NewConnectionTracer(w io.WriteCloser, p logging.Perspective, odcid logging.ConnectionID) *logging.ConnectionTracer {
	tr := &trace{
		VantagePoint: vantagePoint{Type: p},
		CommonFields: commonFields{
			ODCID:         odcid,
			GroupID:       odcid,
			ReferenceTime: time.Now(),
		},
	}
	t := &connectionTracer{
		w:           newWriter(w, tr, logutils.Component(logutils.DefaultLogger(), "qlog")),
		perspective: p,
	}
	go t.w.Run()
	return &logging.ConnectionTracer{
		StartedConnection: func(local, remote netip.AddrPort, srcConnID, destConnID logging.ConnectionID) {
			t.StartedConnection(local, remote, srcConnID, destConnID)
		},
		ClosedConnection: func(e error) { t.ClosedConnection(e) },
		SentPacket: func(encLevel logging.EncryptionLevel, pn logging.PacketNumber, size logging.ByteCount, ecn logging.ECN, frames []logging.Frame) {
			t.SentPacket(encLevel, pn, size, ecn, frames)
		},
		ReceivedPacket: func(encLevel logging.EncryptionLevel, pn logging.PacketNumber, size logging.ByteCount, ecn logging.ECN, frames []logging.Frame) {
			t.ReceivedPacket(encLevel, pn, size, ecn, frames)
		},
		BufferedPacket: func(pt logging.PacketType, size logging.ByteCount) {
			t.recordEvent(&eventPacketBuffered{PacketType: packetType(pt), Length: size})
		},
		DroppedPacket: func(pt logging.PacketType, pn logging.PacketNumber, size logging.ByteCount, reason logging.PacketDropReason) {
			t.recordEvent(&eventPacketDropped{
				PacketType:   packetType(pt),
				PacketNumber: pn,
				Length:       size,
				Trigger:      reason,
			})
		},
		UpdatedMetrics: func(rttStats *logging.RTTStats, cwnd, bytesInFlight logging.ByteCount) {
			t.UpdatedMetrics(rttStats, cwnd, bytesInFlight)
		},
		UpdatedKeyFromHandshake: func(encLevel logging.EncryptionLevel, pers logging.Perspective) {
			t.recordEvent(&eventKeyUpdated{
				Trigger: keyUpdateHandshake,
				KeyType: encLevelToKeyType(encLevel, pers),
			})
		},
		UpdatedKey: func(generation logging.KeyPhase, remote bool) {
			t.UpdatedKey(generation, remote)
		},
		DroppedEncryptionLevel: func(encLevel logging.EncryptionLevel) {
			t.DroppedEncryptionLevel(encLevel)
		},
		DroppedKey: func(generation logging.KeyPhase) {
			t.recordEvent(
				&eventKeyDiscarded{KeyType: keyTypeServer1RTT, Generation: generation},
				&eventKeyDiscarded{KeyType: keyTypeClient1RTT, Generation: generation},
			)
		},
		StartedPathValidation: func(local, remote netip.AddrPort, reason logging.PathValidationReason) {
			t.recordEvent(&eventPathValidation{Local: local, Remote: remote, Reason: reason})
		},
		CompletedPathValidation: func(local, remote netip.AddrPort, success bool) {
			t.recordEvent(&eventPathValidation{Local: local, Remote: remote, Done: true, Success: success})
		},
		MigratedPath: func(from, to netip.AddrPort, peerInitiated bool) {
			t.recordEvent(&eventPathMigrated{From: from, To: to, PeerInitiated: peerInitiated})
		},
		UpdatedMTU: func(mtu logging.ByteCount, done bool) {
			t.recordEvent(&eventMTUUpdated{MTU: mtu, Done: done})
		},
		ECNStateUpdated: func(state logging.ECNState) {
			t.recordEvent(&eventECNStateUpdated{State: state})
		},
		Close: func() { t.Close() },
		Debug: func(name, msg string) {
			t.recordEvent(&eventGeneric{name: name, msg: msg})
		},
	}
}

func (t *connectionTracer) recordEvent(details ...eventDetails) {
	now := time.Now()
	for _, d := range details {
		t.w.RecordEvent(now, d)
	}
}

func (t *connectionTracer) Close() {
	t.w.Close()
}

func (t *connectionTracer) StartedConnection(local, remote netip.AddrPort, srcConnID, destConnID logging.ConnectionID) {
	t.recordEvent(&eventConnectionStarted{
		SrcAddr:          local,
		DestAddr:         remote,
		SrcConnectionID:  srcConnID,
		DestConnectionID: destConnID,
	})
}

func (t *connectionTracer) ClosedConnection(e error) {
	ev := &eventConnectionClosed{Reason: e.Error()}
	var connErr *qerr.ConnectionError
	if errors.As(e, &connErr) {
		ev.Reason = connErr.Code.String()
		if connErr.Details != "" {
			ev.Reason += ": " + connErr.Details
		}
		ev.Owner = "local"
		if connErr.Source == qerr.CloseSourceFromPeer {
			ev.Owner = "remote"
		}
	}
	t.recordEvent(ev)
}

func (t *connectionTracer) SentPacket(encLevel logging.EncryptionLevel, pn logging.PacketNumber, size logging.ByteCount, ecn logging.ECN, frames []logging.Frame) {
	t.recordEvent(&eventPacketSent{
		Header: packetHeader{PacketType: packetTypeFromEncryptionLevel(encLevel), PacketNumber: pn},
		Length: size,
		ECN:    ecn,
		Frames: transformFrames(frames),
	})
}

func (t *connectionTracer) ReceivedPacket(encLevel logging.EncryptionLevel, pn logging.PacketNumber, size logging.ByteCount, ecn logging.ECN, frames []logging.Frame) {
	t.recordEvent(&eventPacketReceived{
		Header: packetHeader{PacketType: packetTypeFromEncryptionLevel(encLevel), PacketNumber: pn},
		Length: size,
		ECN:    ecn,
		Frames: transformFrames(frames),
	})
}

func (t *connectionTracer) UpdatedMetrics(rttStats *logging.RTTStats, cwnd, bytesInFlight logging.ByteCount) {
	m := &eventMetricsUpdated{
		MinRTT:           rttStats.MinRTT(),
		SmoothedRTT:      rttStats.SmoothedRTT(),
		LatestRTT:        rttStats.LatestRTT(),
		RTTVariance:      rttStats.MeanDeviation(),
		CongestionWindow: cwnd,
		BytesInFlight:    bytesInFlight,
	}
	t.mutex.Lock()
	defer t.mutex.Unlock()
	// only record the metrics that changed
	if t.lastMetrics != nil && *t.lastMetrics == *m {
		return
	}
	t.lastMetrics = m
	t.recordEvent(m)
}

func (t *connectionTracer) UpdatedKey(generation logging.KeyPhase, remote bool) {
	trigger := keyUpdateLocal
	if remote {
		trigger = keyUpdateRemote
	}
	t.recordEvent(
		&eventKeyUpdated{Trigger: trigger, KeyType: keyTypeClient1RTT, Generation: generation},
		&eventKeyUpdated{Trigger: trigger, KeyType: keyTypeServer1RTT, Generation: generation},
	)
}

func (t *connectionTracer) DroppedEncryptionLevel(encLevel logging.EncryptionLevel) {
	if encLevel == logging.Encryption0RTT {
		t.recordEvent(&eventKeyDiscarded{KeyType: encLevelToKeyType(encLevel, t.perspective)})
		return
	}
	t.recordEvent(
		&eventKeyDiscarded{KeyType: encLevelToKeyType(encLevel, logging.PerspectiveServer)},
		&eventKeyDiscarded{KeyType: encLevelToKeyType(encLevel, logging.PerspectiveClient)},
	)
}
