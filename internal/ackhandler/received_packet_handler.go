package ackhandler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"
)

var errPacketNumberSpaceDropped = errors.New("packet number space already dropped")

type receivedPacketHandler struct {
	initialPackets   *receivedPacketTracker
	handshakePackets *receivedPacketTracker
	appDataPackets   *receivedPacketTracker

	logger *slog.Logger
}

var _ ReceivedPacketHandler = &receivedPacketHandler{}

func newReceivedPacketHandler(logger *slog.Logger) *receivedPacketHandler {
	return &receivedPacketHandler{
		initialPackets:   newReceivedPacketTracker(true),
		handshakePackets: newReceivedPacketTracker(true),
		appDataPackets:   newReceivedPacketTracker(false),
		logger:           logger,
	}
}

func (h *receivedPacketHandler) tracker(encLevel protocol.EncryptionLevel) *receivedPacketTracker {
	switch encLevel.PacketNumberSpace() {
	case protocol.PacketNumberSpaceInitial:
		return h.initialPackets
	case protocol.PacketNumberSpaceHandshake:
		return h.handshakePackets
	default:
		return h.appDataPackets
	}
}

func (h *receivedPacketHandler) ReceivedPacket(
	pn protocol.PacketNumber,
	ecn protocol.ECN,
	encLevel protocol.EncryptionLevel,
	rcvTime monotime.Time,
	ackEliciting bool,
) error {
	t := h.tracker(encLevel)
	if t == nil {
		return fmt.Errorf("received %s packet %d: %w", encLevel, pn, errPacketNumberSpaceDropped)
	}
	t.ReceivedPacket(pn, ecn, rcvTime, ackEliciting)
	return nil
}

func (h *receivedPacketHandler) DropPackets(encLevel protocol.EncryptionLevel) {
	//nolint:exhaustive // 1-RTT packet number space is never dropped.
	switch encLevel {
	case protocol.EncryptionInitial:
		h.initialPackets = nil
	case protocol.EncryptionHandshake:
		h.handshakePackets = nil
	case protocol.Encryption0RTT:
		// Nothing to do here.
		// If we are rejecting 0-RTT, no 0-RTT packets will have been decrypted.
	default:
		panic(fmt.Sprintf("Cannot drop keys for encryption level %s", encLevel))
	}
}

func (h *receivedPacketHandler) GetAlarmTimeout() monotime.Time {
	var t monotime.Time
	for _, tr := range []*receivedPacketTracker{h.initialPackets, h.handshakePackets, h.appDataPackets} {
		if tr == nil {
			continue
		}
		if a := tr.GetAlarmTimeout(); !a.IsZero() && (t.IsZero() || a.Before(t)) {
			t = a
		}
	}
	return t
}

func (h *receivedPacketHandler) GetAckFrame(encLevel protocol.EncryptionLevel, now monotime.Time, onlyIfQueued bool) *wire.AckFrame {
	t := h.tracker(encLevel)
	if t == nil {
		return nil
	}
	ack := t.GetAckFrame(now, onlyIfQueued)
	if ack != nil && h.logger.Enabled(context.Background(), slog.LevelDebug) {
		h.logger.Debug("queueing ACK", "level", encLevel, "largest", ack.LargestAcked(), "ranges", len(ack.AckRanges))
	}
	return ack
}

func (h *receivedPacketHandler) IsPotentiallyDuplicate(pn protocol.PacketNumber, encLevel protocol.EncryptionLevel) bool {
	t := h.tracker(encLevel)
	if t == nil {
		return true
	}
	return t.IsPotentiallyDuplicate(pn)
}

func (h *receivedPacketHandler) LargestObserved(encLevel protocol.EncryptionLevel) protocol.PacketNumber {
	t := h.tracker(encLevel)
	if t == nil {
		return protocol.InvalidPacketNumber
	}
	return t.largestObserved
}
