package logging

// PacketType is the packet type of a QUIC packet
type PacketType uint8

const (
	// PacketTypeInitial is the packet type of an Initial packet
	PacketTypeInitial PacketType = iota
	// PacketTypeHandshake is the packet type of a Handshake packet
	PacketTypeHandshake
	// PacketType0RTT is the packet type of a 0-RTT packet
	PacketType0RTT
	// PacketType1RTT is a 1-RTT packet
	PacketType1RTT
	// PacketTypeStatelessReset is a stateless reset
	PacketTypeStatelessReset
	// PacketTypeNotDetermined is the packet type when it could not be determined
	PacketTypeNotDetermined
)

// PacketTypeFromEncryptionLevel determines the packet type from the encryption level.
func PacketTypeFromEncryptionLevel(encLevel EncryptionLevel) PacketType {
	switch encLevel {
	case EncryptionInitial:
		return PacketTypeInitial
	case EncryptionHandshake:
		return PacketTypeHandshake
	case Encryption0RTT:
		return PacketType0RTT
	case Encryption1RTT:
		return PacketType1RTT
	default:
		return PacketTypeNotDetermined
	}
}

func (t PacketType) String() string {
	switch t {
	case PacketTypeInitial:
		return "initial"
	case PacketTypeHandshake:
		return "handshake"
	case PacketType0RTT:
		return "0RTT"
	case PacketType1RTT:
		return "1RTT"
	case PacketTypeStatelessReset:
		return "stateless_reset"
	default:
		return ""
	}
}

type PacketDropReason uint8

const (
	// PacketDropKeyUnavailable is used when a packet is dropped because keys are unavailable
	PacketDropKeyUnavailable PacketDropReason = iota
	// PacketDropUnknownConnectionID is used when a packet is dropped because the connection ID is unknown
	PacketDropUnknownConnectionID
	// PacketDropHeaderParseError is used when a packet is dropped because header parsing failed
	PacketDropHeaderParseError
	// PacketDropPayloadDecryptError is used when a packet is dropped because decrypting the payload failed
	PacketDropPayloadDecryptError
	// PacketDropUnsupportedVersion is used when a packet is dropped because the version is not supported
	PacketDropUnsupportedVersion
	// PacketDropUnexpectedPacket is used when an unexpected packet is received
	PacketDropUnexpectedPacket
	// PacketDropDuplicate is used when a duplicate packet is received
	PacketDropDuplicate
	// PacketDropDOSPrevention is used when a packet is dropped because the undecryptable queue is full
	PacketDropDOSPrevention
	// PacketDropConnectionClosed is used when a packet arrives after the connection was closed
	PacketDropConnectionClosed
)

func (r PacketDropReason) String() string {
	switch r {
	case PacketDropKeyUnavailable:
		return "key_unavailable"
	case PacketDropUnknownConnectionID:
		return "unknown_connection_id"
	case PacketDropHeaderParseError:
		return "header_parse_error"
	case PacketDropPayloadDecryptError:
		return "payload_decrypt_error"
	case PacketDropUnsupportedVersion:
		return "unsupported_version"
	case PacketDropUnexpectedPacket:
		return "unexpected_packet"
	case PacketDropDuplicate:
		return "duplicate"
	case PacketDropDOSPrevention:
		return "dos_prevention"
	case PacketDropConnectionClosed:
		return "connection_closed"
	default:
		return "unknown"
	}
}

// PathValidationReason says why a path is being validated.
type PathValidationReason uint8

const (
	PathValidationReasonUnknown PathValidationReason = iota
	// PathValidationReasonMultiPort is a client probing an additional port
	PathValidationReasonMultiPort
	// PathValidationReasonReversePath is a server validating the peer address after a migration
	PathValidationReasonReversePath
	// PathValidationReasonPeerChallenge is a server validating an address it received a PATH_CHALLENGE from
	PathValidationReasonPeerChallenge
	// PathValidationReasonConnectionMigration is a client validating a path before migrating to it
	PathValidationReasonConnectionMigration
)

func (r PathValidationReason) String() string {
	switch r {
	case PathValidationReasonMultiPort:
		return "multi_port"
	case PathValidationReasonReversePath:
		return "reverse_path"
	case PathValidationReasonPeerChallenge:
		return "peer_challenge"
	case PathValidationReasonConnectionMigration:
		return "connection_migration"
	default:
		return "unknown"
	}
}

// ECNState is the state of the ECN state machine (see Appendix B of RFC 9000)
type ECNState uint8

const (
	// ECNStateTesting is the testing state
	ECNStateTesting ECNState = 1 + iota
	// ECNStateUnknown is the unknown state
	ECNStateUnknown
	// ECNStateFailed is the failed state
	ECNStateFailed
	// ECNStateCapable is the capable state
	ECNStateCapable
)

func (s ECNState) String() string {
	switch s {
	case ECNStateTesting:
		return "testing"
	case ECNStateUnknown:
		return "unknown"
	case ECNStateFailed:
		return "failed"
	case ECNStateCapable:
		return "capable"
	default:
		return "invalid"
	}
}
