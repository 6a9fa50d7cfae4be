package handshake

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"

	"github.com/quic-go/quicconn/internal/protocol"

	"golang.org/x/crypto/chacha20poly1305"
)

// xorNonceAEAD derives the nonce by XORing the packet number into a static IV,
// see section 5.3 of RFC 9001.
type xorNonceAEAD struct {
	aead     cipher.AEAD
	iv       [chacha20poly1305.NonceSize]byte
	nonceBuf [chacha20poly1305.NonceSize]byte
}

func newXorNonceAEAD(trafficSecret []byte) *xorNonceAEAD {
	key := hkdfExpandLabel(sha256.New, trafficSecret, nil, "quic key", chacha20poly1305.KeySize)
	iv := hkdfExpandLabel(sha256.New, trafficSecret, nil, "quic iv", chacha20poly1305.NonceSize)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		// only fails for an invalid key length
		panic(err)
	}
	a := &xorNonceAEAD{aead: aead}
	copy(a.iv[:], iv)
	return a
}

func (a *xorNonceAEAD) nonce(pn protocol.PacketNumber) []byte {
	clear(a.nonceBuf[:len(a.nonceBuf)-8])
	binary.BigEndian.PutUint64(a.nonceBuf[len(a.nonceBuf)-8:], uint64(pn))
	for i := range a.nonceBuf {
		a.nonceBuf[i] ^= a.iv[i]
	}
	return a.nonceBuf[:]
}

func (a *xorNonceAEAD) seal(dst, src []byte, pn protocol.PacketNumber, ad []byte) []byte {
	return a.aead.Seal(dst, a.nonce(pn), src, ad)
}

func (a *xorNonceAEAD) open(dst, src []byte, pn protocol.PacketNumber, ad []byte) ([]byte, error) {
	dec, err := a.aead.Open(dst, a.nonce(pn), src, ad)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return dec, nil
}

func (a *xorNonceAEAD) Overhead() int { return a.aead.Overhead() }

type sealer struct {
	aead *xorNonceAEAD
}

var _ Sealer = &sealer{}

// NewSealer creates a sealer for a long header encryption level from a traffic secret.
func NewSealer(trafficSecret []byte) Sealer {
	return &sealer{aead: newXorNonceAEAD(trafficSecret)}
}

func (s *sealer) Seal(dst, src []byte, pn protocol.PacketNumber, ad []byte) []byte {
	return s.aead.seal(dst, src, pn, ad)
}

func (s *sealer) Overhead() int { return s.aead.Overhead() }

type opener struct {
	aead *xorNonceAEAD
}

var _ Opener = &opener{}

// NewOpener creates an opener for a long header encryption level from a traffic secret.
func NewOpener(trafficSecret []byte) Opener {
	return &opener{aead: newXorNonceAEAD(trafficSecret)}
}

func (o *opener) Open(dst, src []byte, pn protocol.PacketNumber, ad []byte) ([]byte, error) {
	return o.aead.open(dst, src, pn, ad)
}
