package qlog

import (
	"fmt"

	"github.com/quic-go/quicconn/logging"
)

type versionNumber logging.Version

func (v versionNumber) String() string {
	return fmt.Sprintf("%x", uint32(v))
}

type connectionID logging.ConnectionID

func (c connectionID) String() string {
	return fmt.Sprintf("%x", logging.ConnectionID(c).Bytes())
}

// category is the qlog event category.
type category uint8

const (
	categoryConnectivity category = iota
	categoryTransport
	categorySecurity
	categoryRecovery
)

func (c category) String() string {
	switch c {
	case categoryConnectivity:
		return "connectivity"
	case categoryTransport:
		return "transport"
	case categorySecurity:
		return "security"
	case categoryRecovery:
		return "recovery"
	default:
		panic("unknown category")
	}
}

type packetType logging.PacketType

func (t packetType) String() string {
	switch logging.PacketType(t) {
	case logging.PacketTypeInitial:
		return "initial"
	case logging.PacketTypeHandshake:
		return "handshake"
	case logging.PacketType0RTT:
		return "0RTT"
	case logging.PacketType1RTT:
		return "1RTT"
	case logging.PacketTypeStatelessReset:
		return "stateless_reset"
	default:
		return "unknown"
	}
}

func packetTypeFromEncryptionLevel(encLevel logging.EncryptionLevel) packetType {
	return packetType(logging.PacketTypeFromEncryptionLevel(encLevel))
}

type encryptionLevel logging.EncryptionLevel

func (e encryptionLevel) String() string {
	switch logging.EncryptionLevel(e) {
	case logging.EncryptionInitial:
		return "initial"
	case logging.EncryptionHandshake:
		return "handshake"
	case logging.Encryption0RTT:
		return "0RTT"
	case logging.Encryption1RTT:
		return "1RTT"
	default:
		return "unknown"
	}
}

type keyType uint8

const (
	keyTypeServerInitial keyType = 1 + iota
	keyTypeClientInitial
	keyTypeServerHandshake
	keyTypeClientHandshake
	keyTypeServer0RTT
	keyTypeClient0RTT
	keyTypeServer1RTT
	keyTypeClient1RTT
)

func encLevelToKeyType(encLevel logging.EncryptionLevel, pers logging.Perspective) keyType {
	if pers == logging.PerspectiveServer {
		switch encLevel {
		case logging.EncryptionInitial:
			return keyTypeServerInitial
		case logging.EncryptionHandshake:
			return keyTypeServerHandshake
		case logging.Encryption0RTT:
			return keyTypeServer0RTT
		case logging.Encryption1RTT:
			return keyTypeServer1RTT
		default:
			return 0
		}
	}
	switch encLevel {
	case logging.EncryptionInitial:
		return keyTypeClientInitial
	case logging.EncryptionHandshake:
		return keyTypeClientHandshake
	case logging.Encryption0RTT:
		return keyTypeClient0RTT
	case logging.Encryption1RTT:
		return keyTypeClient1RTT
	default:
		return 0
	}
}

func (t keyType) String() string {
	switch t {
	case keyTypeServerInitial:
		return "server_initial_secret"
	case keyTypeClientInitial:
		return "client_initial_secret"
	case keyTypeServerHandshake:
		return "server_handshake_secret"
	case keyTypeClientHandshake:
		return "client_handshake_secret"
	case keyTypeServer0RTT:
		return "server_0rtt_secret"
	case keyTypeClient0RTT:
		return "client_0rtt_secret"
	case keyTypeServer1RTT:
		return "server_1rtt_secret"
	case keyTypeClient1RTT:
		return "client_1rtt_secret"
	default:
		return "unknown"
	}
}

type keyUpdateTrigger uint8

const (
	keyUpdateHandshake keyUpdateTrigger = iota
	keyUpdateRemote
	keyUpdateLocal
)

func (t keyUpdateTrigger) String() string {
	switch t {
	case keyUpdateHandshake:
		return "handshake"
	case keyUpdateRemote:
		return "remote_update"
	case keyUpdateLocal:
		return "local_update"
	default:
		panic("unknown key update trigger")
	}
}

type ecnState logging.ECNState

func (s ecnState) String() string {
	return logging.ECNState(s).String()
}

type ecn logging.ECN

func (e ecn) String() string {
	switch logging.ECN(e) {
	case logging.ECTNot:
		return "Not-ECT"
	case logging.ECT0:
		return "ECT(0)"
	case logging.ECT1:
		return "ECT(1)"
	case logging.ECNCE:
		return "CE"
	default:
		return ""
	}
}
