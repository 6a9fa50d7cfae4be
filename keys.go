package quicconn

import (
	"github.com/quic-go/quicconn/internal/handshake"
	"github.com/quic-go/quicconn/internal/protocol"
)

// The keyStore holds the sealers and openers of all encryption levels.
type keyStore struct {
	sealers [protocol.Encryption1RTT + 1]handshake.Sealer
	openers [protocol.Encryption1RTT + 1]handshake.Opener
	dropped [protocol.Encryption1RTT + 1]bool

	oneRTT oneRTTKeys
}

var (
	_ sealerGetter = &keyStore{}
	_ openerGetter = &keyStore{}
)

func (s *keyStore) SetSealer(encLevel protocol.EncryptionLevel, sealer handshake.Sealer) {
	s.sealers[encLevel] = sealer
	if k, ok := sealer.(oneRTTKeys); ok && encLevel == protocol.Encryption1RTT {
		s.oneRTT = k
	}
}

func (s *keyStore) SetOpener(encLevel protocol.EncryptionLevel, opener handshake.Opener) {
	s.openers[encLevel] = opener
	if k, ok := opener.(oneRTTKeys); ok && encLevel == protocol.Encryption1RTT {
		s.oneRTT = k
	}
}

func (s *keyStore) Sealer(encLevel protocol.EncryptionLevel) (handshake.Sealer, error) {
	if s.dropped[encLevel] {
		return nil, handshake.ErrKeysDropped
	}
	if s.sealers[encLevel] == nil {
		return nil, handshake.ErrKeysNotYetAvailable
	}
	return s.sealers[encLevel], nil
}

func (s *keyStore) Opener(encLevel protocol.EncryptionLevel) (handshake.Opener, error) {
	if s.dropped[encLevel] {
		return nil, handshake.ErrKeysDropped
	}
	if s.openers[encLevel] == nil {
		return nil, handshake.ErrKeysNotYetAvailable
	}
	return s.openers[encLevel], nil
}

func (s *keyStore) ShortHeaderOpener() (headerDecryptor, error) {
	if s.openers[protocol.Encryption1RTT] == nil || s.oneRTT == nil {
		return nil, handshake.ErrKeysNotYetAvailable
	}
	return s.oneRTT, nil
}

// HasSealer says if packets can be sent at encLevel.
func (s *keyStore) HasSealer(encLevel protocol.EncryptionLevel) bool {
	return !s.dropped[encLevel] && s.sealers[encLevel] != nil
}

// HasOpener says if packets received at encLevel can be opened.
func (s *keyStore) HasOpener(encLevel protocol.EncryptionLevel) bool {
	return !s.dropped[encLevel] && s.openers[encLevel] != nil
}

// IsDropped says if the keys of encLevel were discarded.
func (s *keyStore) IsDropped(encLevel protocol.EncryptionLevel) bool {
	return s.dropped[encLevel]
}

// DropSealer discards the sealer, but keeps the opener.
// The client stops sending 0-RTT packets once it has 1-RTT keys.
func (s *keyStore) DropSealer(encLevel protocol.EncryptionLevel) {
	s.sealers[encLevel] = nil
}

// Drop discards the keys of an encryption level.
// 1-RTT keys are never dropped.
func (s *keyStore) Drop(encLevel protocol.EncryptionLevel) {
	if encLevel == protocol.Encryption1RTT {
		return
	}
	s.sealers[encLevel] = nil
	s.openers[encLevel] = nil
	s.dropped[encLevel] = true
}
