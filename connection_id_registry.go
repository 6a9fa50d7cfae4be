package quicconn

import (
	"crypto/rand"
	"log/slog"
	"slices"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/wire"
)

// A selfIssuedConnID is a connection ID that this endpoint issued to the peer.
type selfIssuedConnID struct {
	SequenceNumber      uint64
	ConnectionID        protocol.ConnectionID
	StatelessResetToken protocol.StatelessResetToken

	// set once the peer retired the connection ID
	retireDeadline monotime.Time
}

// selfIssuedConnIDs are the connection IDs the peer may address packets to.
// After the handshake completes, new connection IDs are issued until the peer's limit is reached.
// A connection ID retired by the peer keeps being accepted until its retire deadline,
// since packets sent to it might still be in flight.
type selfIssuedConnIDs struct {
	generator protocol.ConnectionIDGenerator

	active   []selfIssuedConnID
	retiring []selfIssuedConnID
	nextSeq  uint64

	activeLimit       uint64
	handshakeComplete bool

	queueControlFrame func(wire.Frame)
	logger            *slog.Logger
}

func newSelfIssuedConnIDs(
	initial protocol.ConnectionID,
	generator protocol.ConnectionIDGenerator,
	activeLimit uint64,
	queueControlFrame func(wire.Frame),
	logger *slog.Logger,
) *selfIssuedConnIDs {
	return &selfIssuedConnIDs{
		generator:         generator,
		active:            []selfIssuedConnID{{SequenceNumber: 0, ConnectionID: initial}},
		nextSeq:           1,
		activeLimit:       activeLimit,
		queueControlFrame: queueControlFrame,
		logger:            logger,
	}
}

// Initial returns the connection ID with sequence number 0.
// It is the zero value once that connection ID was retired.
func (m *selfIssuedConnIDs) Initial() protocol.ConnectionID {
	if len(m.active) > 0 && m.active[0].SequenceNumber == 0 {
		return m.active[0].ConnectionID
	}
	return protocol.ConnectionID{}
}

// SetHandshakeComplete issues new connection IDs, up to the peer's limit.
func (m *selfIssuedConnIDs) SetHandshakeComplete() error {
	m.handshakeComplete = true
	return m.issueNewConnectionIDs()
}

func (m *selfIssuedConnIDs) issueNewConnectionIDs() error {
	if !m.handshakeComplete {
		return nil
	}
	for uint64(len(m.active)) < m.activeLimit {
		connID, err := m.generator.GenerateConnectionID()
		if err != nil {
			return err
		}
		var token protocol.StatelessResetToken
		if _, err := rand.Read(token[:]); err != nil {
			return err
		}
		id := selfIssuedConnID{
			SequenceNumber:      m.nextSeq,
			ConnectionID:        connID,
			StatelessResetToken: token,
		}
		m.nextSeq++
		m.active = append(m.active, id)
		m.logger.Debug("issuing new connection ID", "sequence_number", id.SequenceNumber, "connection_id", connID)
		m.queueControlFrame(&wire.NewConnectionIDFrame{
			SequenceNumber:      id.SequenceNumber,
			ConnectionID:        connID,
			StatelessResetToken: token,
		})
	}
	return nil
}

// Retire handles a RETIRE_CONNECTION_ID frame that was received in a packet sent to packetDestConnID.
// The connection ID stays valid until retireDeadline.
func (m *selfIssuedConnIDs) Retire(seq uint64, packetDestConnID protocol.ConnectionID, retireDeadline monotime.Time) error {
	if seq >= m.nextSeq {
		return qerr.Errorf(qerr.ErrProtocolViolation, "retired connection ID %d (highest issued: %d)", seq, m.nextSeq-1)
	}
	i := slices.IndexFunc(m.active, func(id selfIssuedConnID) bool { return id.SequenceNumber == seq })
	if i == -1 {
		// already retired
		return nil
	}
	id := m.active[i]
	if id.ConnectionID.Equal(packetDestConnID) {
		return qerr.Errorf(qerr.ErrProtocolViolation, "retired connection ID %d (%s), which was used as the destination connection ID", seq, id.ConnectionID)
	}
	m.active = slices.Delete(m.active, i, i+1)
	id.retireDeadline = retireDeadline
	m.retiring = append(m.retiring, id)
	m.logger.Debug("peer retired connection ID", "sequence_number", seq, "connection_id", id.ConnectionID, "deadline", retireDeadline)
	return m.issueNewConnectionIDs()
}

// RemoveRetired stops accepting retired connection IDs whose deadline has passed.
func (m *selfIssuedConnIDs) RemoveRetired(now monotime.Time) {
	m.retiring = slices.DeleteFunc(m.retiring, func(id selfIssuedConnID) bool {
		return !id.retireDeadline.After(now)
	})
}

// NextRetireDeadline returns the earliest deadline of the retired connection IDs.
func (m *selfIssuedConnIDs) NextRetireDeadline() monotime.Time {
	var deadline monotime.Time
	for _, id := range m.retiring {
		if deadline.IsZero() || id.retireDeadline.Before(deadline) {
			deadline = id.retireDeadline
		}
	}
	return deadline
}

// IsKnown says if packets sent to connID belong to this connection.
func (m *selfIssuedConnIDs) IsKnown(connID protocol.ConnectionID) bool {
	for _, id := range m.active {
		if id.ConnectionID.Equal(connID) {
			return true
		}
	}
	for _, id := range m.retiring {
		if id.ConnectionID.Equal(connID) {
			return true
		}
	}
	return false
}

// NumActive is the number of connection IDs that the peer didn't retire.
func (m *selfIssuedConnIDs) NumActive() int {
	return len(m.active)
}

// A peerIssuedConnID is a connection ID that the peer issued to this endpoint.
type peerIssuedConnID struct {
	SequenceNumber      uint64
	ConnectionID        protocol.ConnectionID
	StatelessResetToken *protocol.StatelessResetToken

	inUse bool
}

// peerIssuedConnIDs are the connection IDs that packets can be addressed to.
// Every path uses one of them. Connection IDs that are no longer used are retired.
type peerIssuedConnIDs struct {
	ids                  []peerIssuedConnID // sorted by sequence number
	highestRetirePriorTo uint64

	activeLimit       uint64
	queueControlFrame func(wire.Frame)
	logger            *slog.Logger
}

// newPeerIssuedConnIDs creates the registry.
// The server learns the initial connection ID from the first packet, it then calls SetInitialConnID.
func newPeerIssuedConnIDs(initial protocol.ConnectionID, activeLimit uint64, queueControlFrame func(wire.Frame), logger *slog.Logger) *peerIssuedConnIDs {
	m := &peerIssuedConnIDs{
		activeLimit:       activeLimit,
		queueControlFrame: queueControlFrame,
		logger:            logger,
	}
	if initial.Len() > 0 {
		m.ids = []peerIssuedConnID{{SequenceNumber: 0, ConnectionID: initial, inUse: true}}
	}
	return m
}

// SetInitialConnID sets the connection ID with sequence number 0.
// The client calls it when the server chose a different connection ID in its first packet.
func (m *peerIssuedConnIDs) SetInitialConnID(connID protocol.ConnectionID) {
	if len(m.ids) > 0 && m.ids[0].SequenceNumber == 0 {
		m.ids[0].ConnectionID = connID
		return
	}
	m.ids = slices.Insert(m.ids, 0, peerIssuedConnID{SequenceNumber: 0, ConnectionID: connID, inUse: true})
}

// Add handles a NEW_CONNECTION_ID frame.
// Connection IDs below the retire_prior_to value are retired, even if they are in use:
// the caller checks with IsActive if the connection IDs of its paths are still valid.
func (m *peerIssuedConnIDs) Add(f *wire.NewConnectionIDFrame) error {
	if f.RetirePriorTo > f.SequenceNumber {
		return qerr.Errorf(qerr.ErrProtocolViolation, "retire_prior_to %d larger than the sequence number %d", f.RetirePriorTo, f.SequenceNumber)
	}
	if f.SequenceNumber < m.highestRetirePriorTo {
		// this connection ID was already retired
		m.queueControlFrame(&wire.RetireConnectionIDFrame{SequenceNumber: f.SequenceNumber})
		return nil
	}
	i, found := slices.BinarySearchFunc(m.ids, f.SequenceNumber, func(id peerIssuedConnID, seq uint64) int {
		switch {
		case id.SequenceNumber < seq:
			return -1
		case id.SequenceNumber > seq:
			return 1
		default:
			return 0
		}
	})
	if found {
		id := m.ids[i]
		if !id.ConnectionID.Equal(f.ConnectionID) {
			return qerr.Errorf(qerr.ErrProtocolViolation, "received conflicting connection IDs for sequence number %d", f.SequenceNumber)
		}
		if id.StatelessResetToken != nil && *id.StatelessResetToken != f.StatelessResetToken {
			return qerr.Errorf(qerr.ErrProtocolViolation, "received conflicting stateless reset tokens for sequence number %d", f.SequenceNumber)
		}
		return nil
	}
	for _, id := range m.ids {
		if id.ConnectionID.Equal(f.ConnectionID) {
			return qerr.Errorf(qerr.ErrProtocolViolation, "connection ID %s was issued with sequence numbers %d and %d", f.ConnectionID, id.SequenceNumber, f.SequenceNumber)
		}
	}
	token := f.StatelessResetToken
	m.ids = slices.Insert(m.ids, i, peerIssuedConnID{
		SequenceNumber:      f.SequenceNumber,
		ConnectionID:        f.ConnectionID,
		StatelessResetToken: &token,
	})

	if f.RetirePriorTo > m.highestRetirePriorTo {
		m.highestRetirePriorTo = f.RetirePriorTo
		m.ids = slices.DeleteFunc(m.ids, func(id peerIssuedConnID) bool {
			if id.SequenceNumber >= f.RetirePriorTo {
				return false
			}
			m.logger.Debug("retiring connection ID", "sequence_number", id.SequenceNumber, "in_use", id.inUse)
			m.queueControlFrame(&wire.RetireConnectionIDFrame{SequenceNumber: id.SequenceNumber})
			return true
		})
	}
	if uint64(len(m.ids)) > m.activeLimit {
		return qerr.Errorf(qerr.ErrConnectionIDLimitError, "peer issued %d connection IDs, limit is %d", len(m.ids), m.activeLimit)
	}
	return nil
}

// ConsumeUnused returns a connection ID that isn't used by any path, and marks it as used.
func (m *peerIssuedConnIDs) ConsumeUnused() (peerIssuedConnID, bool) {
	for i, id := range m.ids {
		if !id.inUse {
			m.ids[i].inUse = true
			return m.ids[i], true
		}
	}
	return peerIssuedConnID{}, false
}

// HasUnused says if a connection ID is available for a new path.
func (m *peerIssuedConnIDs) HasUnused() bool {
	return slices.ContainsFunc(m.ids, func(id peerIssuedConnID) bool { return !id.inUse })
}

// IsActive says if the connection ID with this sequence number was not retired.
func (m *peerIssuedConnIDs) IsActive(seq uint64) bool {
	return slices.ContainsFunc(m.ids, func(id peerIssuedConnID) bool { return id.SequenceNumber == seq })
}

// Get returns the connection ID with this sequence number.
func (m *peerIssuedConnIDs) Get(seq uint64) (peerIssuedConnID, bool) {
	i := slices.IndexFunc(m.ids, func(id peerIssuedConnID) bool { return id.SequenceNumber == seq })
	if i == -1 {
		return peerIssuedConnID{}, false
	}
	return m.ids[i], true
}

// Retire retires a connection ID that is no longer used by any path.
func (m *peerIssuedConnIDs) Retire(seq uint64) {
	i := slices.IndexFunc(m.ids, func(id peerIssuedConnID) bool { return id.SequenceNumber == seq })
	if i == -1 {
		return
	}
	m.logger.Debug("retiring connection ID", "sequence_number", seq, "connection_id", m.ids[i].ConnectionID)
	m.ids = slices.Delete(m.ids, i, i+1)
	m.queueControlFrame(&wire.RetireConnectionIDFrame{SequenceNumber: seq})
}

// Release marks a connection ID as unused, without retiring it.
func (m *peerIssuedConnIDs) Release(seq uint64) {
	for i, id := range m.ids {
		if id.SequenceNumber == seq {
			m.ids[i].inUse = false
			return
		}
	}
}
