package ackhandler

import (
	"log/slog"

	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/logging"
)

// NewAckHandler creates a new SentPacketHandler and a new ReceivedPacketHandler.
// onCongestionChange is called whenever the congestion window changes.
func NewAckHandler(
	rttStats *utils.RTTStats,
	initialMaxDatagramSize protocol.ByteCount,
	pers protocol.Perspective,
	onCongestionChange func(),
	tracer *logging.ConnectionTracer,
	logger *slog.Logger,
) (SentPacketHandler, ReceivedPacketHandler) {
	logger = logutils.Component(logger, logutils.ComponentRecovery)
	sph := newSentPacketHandler(rttStats, initialMaxDatagramSize, pers, onCongestionChange, tracer, logger)
	return sph, newReceivedPacketHandler(logger)
}
