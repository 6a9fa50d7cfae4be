package handshake

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/crypto/cryptobyte"
)

const (
	// TokenTypeSourceAddress is a source address token sent in a rejection.
	TokenTypeSourceAddress uint8 = iota
	// TokenTypeNewToken is a token sent in a NEW_TOKEN frame.
	TokenTypeNewToken
)

var (
	errTokenAddressMismatch = errors.New("token was issued for a different address")
	errTokenExpired         = errors.New("token expired")
	errTokenType            = errors.New("unexpected token type")
)

// A Token is derived from the client address and can be used to verify the ownership of this address.
type Token struct {
	Type       uint8
	RemoteAddr netip.Addr
	SentTime   time.Time
}

// A TokenGenerator generates tokens
type TokenGenerator struct {
	tokenProtector *tokenProtector
}

// NewTokenGenerator initializes a new TokenGenerator
func NewTokenGenerator(key TokenProtectorKey) *TokenGenerator {
	return &TokenGenerator{tokenProtector: newTokenProtector(key)}
}

// NewToken generates a new token for a given source address.
// Only the IP is bound, so that the token stays valid when the client port changes.
func (g *TokenGenerator) NewToken(typ uint8, raddr netip.AddrPort, now time.Time) ([]byte, error) {
	var b cryptobyte.Builder
	b.AddUint8(typ)
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddBytes(raddr.Addr().Unmap().AsSlice())
	})
	b.AddUint64(uint64(now.UnixNano()))
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return g.tokenProtector.NewToken(data)
}

// DecodeToken decodes a token
func (g *TokenGenerator) DecodeToken(encrypted []byte) (*Token, error) {
	// if the client didn't send any token, DecodeToken will be called with a nil-slice
	if len(encrypted) == 0 {
		return nil, nil
	}
	data, err := g.tokenProtector.DecodeToken(encrypted)
	if err != nil {
		return nil, err
	}
	s := cryptobyte.String(data)
	var typ uint8
	var addr cryptobyte.String
	var ts uint64
	if !s.ReadUint8(&typ) || !s.ReadUint8LengthPrefixed(&addr) || !s.ReadUint64(&ts) {
		return nil, errors.New("malformed token")
	}
	if !s.Empty() {
		return nil, fmt.Errorf("rest when unpacking token: %d", len(s))
	}
	ip, ok := netip.AddrFromSlice(addr)
	if !ok {
		return nil, fmt.Errorf("invalid address length: %d", len(addr))
	}
	return &Token{
		Type:       typ,
		RemoteAddr: ip,
		SentTime:   time.Unix(0, int64(ts)),
	}, nil
}

// ValidateToken checks that a token was issued by this generator for the given address,
// and that it is not older than maxAge.
func (g *TokenGenerator) ValidateToken(encrypted []byte, typ uint8, raddr netip.AddrPort, now time.Time, maxAge time.Duration) error {
	token, err := g.DecodeToken(encrypted)
	if err != nil {
		return err
	}
	if token == nil {
		return errors.New("no token")
	}
	if token.Type != typ {
		return errTokenType
	}
	if token.RemoteAddr != raddr.Addr().Unmap() {
		return errTokenAddressMismatch
	}
	if now.Sub(token.SentTime) > maxAge {
		return errTokenExpired
	}
	return nil
}
