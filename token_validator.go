package quicconn

import (
	"crypto/rand"
	"net/netip"
	"time"

	"github.com/quic-go/quicconn/internal/handshake"
)

// NewTokenValidator creates a TokenValidator that issues tokens sent in NEW_TOKEN frames.
// Tokens are bound to the IP address of the client and expire after maxAge.
func NewTokenValidator(key handshake.TokenProtectorKey, maxAge time.Duration) TokenValidator {
	if maxAge == 0 {
		maxAge = handshake.DefaultTokenMaxAge
	}
	return &tokenValidator{
		generator: handshake.NewTokenGenerator(key),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

func newTokenValidator() *tokenValidator {
	var key handshake.TokenProtectorKey
	rand.Read(key[:])
	return NewTokenValidator(key, 0).(*tokenValidator)
}

type tokenValidator struct {
	generator *handshake.TokenGenerator
	maxAge    time.Duration
	now       func() time.Time
}

var _ TokenValidator = &tokenValidator{}

func (v *tokenValidator) ValidateToken(token []byte, peer netip.AddrPort) bool {
	return v.generator.ValidateToken(token, handshake.TokenTypeNewToken, peer, v.now(), v.maxAge) == nil
}

func (v *tokenValidator) IssueAddressToken(peer netip.AddrPort) []byte {
	token, err := v.generator.NewToken(handshake.TokenTypeNewToken, peer, v.now())
	if err != nil {
		return nil
	}
	return token
}
