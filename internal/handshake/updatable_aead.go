package handshake

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/logging"
)

var (
	// ConfidentialityLimit is the number of packets that may be sealed with a single key phase.
	// It is a variable to make testing the key update easier.
	ConfidentialityLimit uint64 = 1 << 23
	// IntegrityLimit is the number of packets that may fail authentication
	// before the connection has to be closed.
	IntegrityLimit uint64 = 1 << 36
)

// UpdatableAEAD seals and opens 1-RTT packets.
// It updates the keys when the confidentiality limit is approached, and follows key updates of the peer.
type UpdatableAEAD struct {
	keyPhase           protocol.KeyPhase
	largestAcked       protocol.PacketNumber
	firstPacketNumber  protocol.PacketNumber
	handshakeConfirmed bool
	keyUpdatesDisabled bool

	confidentialityLimit uint64
	invalidPacketLimit   uint64
	invalidPacketCount   uint64

	// Time when the previous keys should be dropped.
	prevRcvAEADExpiry monotime.Time
	prevRcvAEAD       *xorNonceAEAD

	firstRcvdWithCurrentKey protocol.PacketNumber
	firstSentWithCurrentKey protocol.PacketNumber
	highestRcvdPN           protocol.PacketNumber // highest packet number received (which could be successfully unprotected)
	numRcvdWithCurrentKey   uint64
	numSentWithCurrentKey   uint64
	rcvAEAD                 *xorNonceAEAD
	sendAEAD                *xorNonceAEAD

	nextRcvAEAD           *xorNonceAEAD
	nextSendAEAD          *xorNonceAEAD
	nextRcvTrafficSecret  []byte
	nextSendTrafficSecret []byte

	rttStats *utils.RTTStats

	tracer *logging.ConnectionTracer
	logger *slog.Logger
}

var (
	_ ShortHeaderOpener = &UpdatableAEAD{}
	_ ShortHeaderSealer = &UpdatableAEAD{}
)

// NewUpdatableAEAD creates the 1-RTT AEAD.
// The keys are set with SetReadKey and SetWriteKey.
func NewUpdatableAEAD(rttStats *utils.RTTStats, disableKeyUpdate bool, tracer *logging.ConnectionTracer, logger *slog.Logger) *UpdatableAEAD {
	if logger == nil {
		logger = logutils.Discard()
	}
	return &UpdatableAEAD{
		firstPacketNumber:       protocol.InvalidPacketNumber,
		largestAcked:            protocol.InvalidPacketNumber,
		firstRcvdWithCurrentKey: protocol.InvalidPacketNumber,
		firstSentWithCurrentKey: protocol.InvalidPacketNumber,
		keyUpdatesDisabled:      disableKeyUpdate,
		confidentialityLimit:    ConfidentialityLimit,
		invalidPacketLimit:      IntegrityLimit,
		rttStats:                rttStats,
		tracer:                  tracer,
		logger:                  logger,
	}
}

func (a *UpdatableAEAD) rollKeys() {
	if a.prevRcvAEAD != nil {
		a.logger.Debug("dropping key phase ahead of scheduled time", "key_phase", a.keyPhase-1, "drop_time", a.prevRcvAEADExpiry)
		if a.tracer != nil && a.tracer.DroppedKey != nil {
			a.tracer.DroppedKey(a.keyPhase - 1)
		}
		a.prevRcvAEADExpiry = 0
	}

	a.keyPhase++
	a.firstRcvdWithCurrentKey = protocol.InvalidPacketNumber
	a.firstSentWithCurrentKey = protocol.InvalidPacketNumber
	a.numRcvdWithCurrentKey = 0
	a.numSentWithCurrentKey = 0
	a.prevRcvAEAD = a.rcvAEAD
	a.rcvAEAD = a.nextRcvAEAD
	a.sendAEAD = a.nextSendAEAD

	a.nextRcvTrafficSecret = a.getNextTrafficSecret(a.nextRcvTrafficSecret)
	a.nextSendTrafficSecret = a.getNextTrafficSecret(a.nextSendTrafficSecret)
	a.nextRcvAEAD = newXorNonceAEAD(a.nextRcvTrafficSecret)
	a.nextSendAEAD = newXorNonceAEAD(a.nextSendTrafficSecret)
}

func (a *UpdatableAEAD) startKeyDropTimer(now monotime.Time) {
	a.prevRcvAEADExpiry = now.Add(protocol.KeyDiscardPTOs * a.rttStats.PTO(true))
}

func (a *UpdatableAEAD) getNextTrafficSecret(ts []byte) []byte {
	return hkdfExpandLabel(sha256.New, ts, nil, "quic ku", sha256.Size)
}

// SetReadKey sets the read key.
// For the client, this function is called before SetWriteKey.
// For the server, this function is called after SetWriteKey.
func (a *UpdatableAEAD) SetReadKey(trafficSecret []byte) {
	a.rcvAEAD = newXorNonceAEAD(trafficSecret)
	a.nextRcvTrafficSecret = a.getNextTrafficSecret(trafficSecret)
	a.nextRcvAEAD = newXorNonceAEAD(a.nextRcvTrafficSecret)
}

// SetWriteKey sets the write key.
// For the client, this function is called after SetReadKey.
// For the server, this function is called before SetReadKey.
func (a *UpdatableAEAD) SetWriteKey(trafficSecret []byte) {
	a.sendAEAD = newXorNonceAEAD(trafficSecret)
	a.nextSendTrafficSecret = a.getNextTrafficSecret(trafficSecret)
	a.nextSendAEAD = newXorNonceAEAD(a.nextSendTrafficSecret)
}

// DecodePacketNumber decodes a truncated packet number,
// using the highest packet number that was successfully opened.
func (a *UpdatableAEAD) DecodePacketNumber(wirePN protocol.PacketNumber, wirePNLen protocol.PacketNumberLen) protocol.PacketNumber {
	return protocol.DecodePacketNumber(wirePNLen, a.highestRcvdPN, wirePN)
}

// Open opens a packet protected with the current key phase.
func (a *UpdatableAEAD) Open(dst, src []byte, pn protocol.PacketNumber, ad []byte) ([]byte, error) {
	return a.OpenShortHeader(dst, src, monotime.Now(), pn, a.keyPhase.Bit(), ad)
}

// OpenShortHeader opens a 1-RTT packet.
// A packet carrying the next key phase is opened with the next generation of keys.
func (a *UpdatableAEAD) OpenShortHeader(dst, src []byte, rcvTime monotime.Time, pn protocol.PacketNumber, kp protocol.KeyPhaseBit, ad []byte) ([]byte, error) {
	dec, err := a.open(dst, src, rcvTime, pn, kp, ad)
	if err == ErrDecryptionFailed {
		a.invalidPacketCount++
		if a.invalidPacketCount >= a.invalidPacketLimit {
			return nil, qerr.Errorf(qerr.ErrAEADLimitReached, "%d packets failed authentication", a.invalidPacketCount)
		}
	}
	if err == nil {
		a.highestRcvdPN = max(a.highestRcvdPN, pn)
	}
	return dec, err
}

func (a *UpdatableAEAD) open(dst, src []byte, rcvTime monotime.Time, pn protocol.PacketNumber, kp protocol.KeyPhaseBit, ad []byte) ([]byte, error) {
	if a.prevRcvAEAD != nil && !a.prevRcvAEADExpiry.IsZero() && rcvTime.After(a.prevRcvAEADExpiry) {
		a.DropPreviousKeys()
	}
	if kp != a.keyPhase.Bit() {
		if a.keyPhase > 0 && a.firstRcvdWithCurrentKey == protocol.InvalidPacketNumber || pn < a.firstRcvdWithCurrentKey {
			if a.prevRcvAEAD == nil {
				return nil, ErrKeysDropped
			}
			// we updated the key, but the peer hasn't updated yet
			return a.prevRcvAEAD.open(dst, src, pn, ad)
		}
		// try opening the packet with the next key phase
		dec, err := a.nextRcvAEAD.open(dst, src, pn, ad)
		if err != nil {
			return nil, err
		}
		// Opening succeeded. Check if the peer was allowed to update.
		if a.keyPhase > 0 && a.firstSentWithCurrentKey == protocol.InvalidPacketNumber {
			return nil, qerr.NewError(qerr.ErrKeyUpdateError, "keys updated too quickly")
		}
		a.rollKeys()
		a.logger.Debug("peer updated keys", "key_phase", a.keyPhase)
		// The peer initiated this key update. It's safe to drop the keys for the previous generation now.
		a.startKeyDropTimer(rcvTime)
		if a.tracer != nil && a.tracer.UpdatedKey != nil {
			a.tracer.UpdatedKey(a.keyPhase, true)
		}
		a.firstRcvdWithCurrentKey = pn
		return dec, nil
	}
	dec, err := a.rcvAEAD.open(dst, src, pn, ad)
	if err != nil {
		return nil, err
	}
	a.numRcvdWithCurrentKey++
	if a.firstRcvdWithCurrentKey == protocol.InvalidPacketNumber {
		// We initiated the key updated, and now we received the first packet protected with the new key phase.
		// Therefore, we are certain that the peer rolled its keys as well. Start a timer to drop the old keys.
		if a.keyPhase > 0 {
			a.logger.Debug("peer confirmed key update", "key_phase", a.keyPhase)
			a.startKeyDropTimer(rcvTime)
		}
		a.firstRcvdWithCurrentKey = pn
	}
	return dec, nil
}

// Seal seals a 1-RTT packet with the current key phase.
func (a *UpdatableAEAD) Seal(dst, src []byte, pn protocol.PacketNumber, ad []byte) []byte {
	if a.firstSentWithCurrentKey == protocol.InvalidPacketNumber {
		a.firstSentWithCurrentKey = pn
	}
	if a.firstPacketNumber == protocol.InvalidPacketNumber {
		a.firstPacketNumber = pn
	}
	a.numSentWithCurrentKey++
	return a.sendAEAD.seal(dst, src, pn, ad)
}

// SetLargestAcked is called when an ACK for a 1-RTT packet is received.
func (a *UpdatableAEAD) SetLargestAcked(pn protocol.PacketNumber) error {
	if a.firstSentWithCurrentKey != protocol.InvalidPacketNumber &&
		pn >= a.firstSentWithCurrentKey && a.numRcvdWithCurrentKey == 0 {
		return qerr.Errorf(qerr.ErrKeyUpdateError, "received ACK for key phase %d, but peer didn't update keys", a.keyPhase)
	}
	a.largestAcked = pn
	return nil
}

// SetHandshakeConfirmed allows key updates.
func (a *UpdatableAEAD) SetHandshakeConfirmed() {
	a.handshakeConfirmed = true
}

func (a *UpdatableAEAD) updateAllowed() bool {
	if !a.handshakeConfirmed || a.keyUpdatesDisabled {
		return false
	}
	// the first key update is allowed as soon as the handshake is confirmed
	return a.keyPhase == 0 ||
		// subsequent key updates as soon as a packet sent with that key phase has been acknowledged
		(a.firstSentWithCurrentKey != protocol.InvalidPacketNumber &&
			a.largestAcked != protocol.InvalidPacketNumber &&
			a.largestAcked >= a.firstSentWithCurrentKey)
}

func (a *UpdatableAEAD) keyUpdateThreshold() uint64 {
	if a.confidentialityLimit <= protocol.KeyUpdateConfidentialityLimitOffset {
		return a.confidentialityLimit / 2
	}
	return a.confidentialityLimit - protocol.KeyUpdateConfidentialityLimitOffset
}

func (a *UpdatableAEAD) shouldInitiateKeyUpdate() bool {
	if !a.updateAllowed() {
		return false
	}
	threshold := a.keyUpdateThreshold()
	if a.numRcvdWithCurrentKey >= threshold {
		a.logger.Debug("approaching the confidentiality limit for received packets", "received", a.numRcvdWithCurrentKey, "next_key_phase", a.keyPhase+1)
		return true
	}
	if a.numSentWithCurrentKey >= threshold {
		a.logger.Debug("approaching the confidentiality limit for sent packets", "sent", a.numSentWithCurrentKey, "next_key_phase", a.keyPhase+1)
		return true
	}
	return false
}

// KeyPhase returns the key phase bit for the next packet.
// It initiates a key update if the confidentiality limit is approached.
func (a *UpdatableAEAD) KeyPhase() protocol.KeyPhaseBit {
	if a.shouldInitiateKeyUpdate() {
		a.rollKeys()
		a.logger.Debug("initiating key update", "key_phase", a.keyPhase)
		if a.tracer != nil && a.tracer.UpdatedKey != nil {
			a.tracer.UpdatedKey(a.keyPhase, false)
		}
	}
	return a.keyPhase.Bit()
}

// ConfidentialityLimitReached says if the current keys must not be used for any further packet.
func (a *UpdatableAEAD) ConfidentialityLimitReached() bool {
	return a.numSentWithCurrentKey >= a.confidentialityLimit
}

// CurrentKeyPhase returns the current key phase, without initiating a key update.
func (a *UpdatableAEAD) CurrentKeyPhase() protocol.KeyPhase { return a.keyPhase }

// PreviousKeysDropTime returns the time when the keys of the previous key phase are dropped.
// It is zero if there are no previous keys, or if they are kept until the next key update.
func (a *UpdatableAEAD) PreviousKeysDropTime() monotime.Time {
	if a.prevRcvAEAD == nil {
		return 0
	}
	return a.prevRcvAEADExpiry
}

// DropPreviousKeys drops the keys of the previous key phase.
func (a *UpdatableAEAD) DropPreviousKeys() {
	if a.prevRcvAEAD == nil {
		return
	}
	a.prevRcvAEAD = nil
	a.prevRcvAEADExpiry = 0
	if a.logger.Enabled(context.Background(), slog.LevelDebug) {
		a.logger.Debug("dropping keys", "key_phase", a.keyPhase-1)
	}
	if a.tracer != nil && a.tracer.DroppedKey != nil {
		a.tracer.DroppedKey(a.keyPhase - 1)
	}
}

// Overhead is the overhead of the AEAD.
func (a *UpdatableAEAD) Overhead() int {
	return a.sendAEAD.Overhead()
}

func (a *UpdatableAEAD) String() string {
	return fmt.Sprintf("1-RTT AEAD (key phase %d)", a.keyPhase)
}
