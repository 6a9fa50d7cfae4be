package handshake

import (
	"crypto/sha256"

	"github.com/quic-go/quicconn/internal/protocol"

	"golang.org/x/crypto/hkdf"
)

var (
	quicSaltV1     = []byte{0x38, 0x76, 0x2c, 0xf7, 0xf5, 0x59, 0x34, 0xb3, 0x4d, 0x17, 0x9a, 0xe6, 0xa4, 0xc8, 0x0c, 0xad, 0xcc, 0xbb, 0x7f, 0x0a}
	quicSaltV2     = []byte{0x0d, 0xed, 0xe3, 0xde, 0xf7, 0x00, 0xa6, 0xdb, 0x81, 0x93, 0x81, 0xbe, 0x6e, 0x26, 0x9d, 0xcb, 0xf9, 0xbd, 0x2e, 0xd9}
	quicSaltLegacy = []byte{0x50, 0x45, 0x74, 0xef, 0xd0, 0x66, 0xfe, 0x2f, 0x9d, 0x94, 0x5c, 0xfc, 0xdb, 0xd3, 0xa7, 0xf0, 0xd3, 0xb5, 0x6b, 0x45}
)

func getSalt(v protocol.Version) []byte {
	switch v {
	case protocol.Version2:
		return quicSaltV2
	case protocol.VersionLegacy:
		return quicSaltLegacy
	default:
		return quicSaltV1
	}
}

// NewInitialAEAD creates a new AEAD for Initial encryption / decryption.
func NewInitialAEAD(connID protocol.ConnectionID, pers protocol.Perspective, v protocol.Version) (Sealer, Opener) {
	clientSecret, serverSecret := computeSecrets(connID, v)
	var mySecret, otherSecret []byte
	if pers == protocol.PerspectiveClient {
		mySecret = clientSecret
		otherSecret = serverSecret
	} else {
		mySecret = serverSecret
		otherSecret = clientSecret
	}
	return NewSealer(mySecret), NewOpener(otherSecret)
}

func computeSecrets(connID protocol.ConnectionID, v protocol.Version) (clientSecret, serverSecret []byte) {
	initialSecret := hkdf.Extract(sha256.New, connID.Bytes(), getSalt(v))
	clientSecret = hkdfExpandLabel(sha256.New, initialSecret, nil, "client in", sha256.Size)
	serverSecret = hkdfExpandLabel(sha256.New, initialSecret, nil, "server in", sha256.Size)
	return
}
