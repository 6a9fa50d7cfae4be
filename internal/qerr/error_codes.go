package qerr

import "fmt"

// TransportErrorCode is a QUIC transport error.
type TransportErrorCode uint64

// The error codes defined by QUIC
const (
	NoError                   TransportErrorCode = 0x0
	InternalError             TransportErrorCode = 0x1
	ConnectionRefused         TransportErrorCode = 0x2
	FlowControlError          TransportErrorCode = 0x3
	StreamLimitError          TransportErrorCode = 0x4
	StreamStateError          TransportErrorCode = 0x5
	FinalSizeError            TransportErrorCode = 0x6
	FrameEncodingError        TransportErrorCode = 0x7
	TransportParameterError   TransportErrorCode = 0x8
	ConnectionIDLimitError    TransportErrorCode = 0x9
	ProtocolViolation         TransportErrorCode = 0xa
	InvalidToken              TransportErrorCode = 0xb
	ApplicationErrorErrorCode TransportErrorCode = 0xc
	CryptoBufferExceeded      TransportErrorCode = 0xd
	KeyUpdateError            TransportErrorCode = 0xe
	AEADLimitReached          TransportErrorCode = 0xf
	NoViablePathError         TransportErrorCode = 0x10
)

func (e TransportErrorCode) IsCryptoError() bool {
	return e >= 0x100 && e < 0x200
}

func (e TransportErrorCode) String() string {
	switch e {
	case NoError:
		return "NO_ERROR"
	case InternalError:
		return "INTERNAL_ERROR"
	case ConnectionRefused:
		return "CONNECTION_REFUSED"
	case FlowControlError:
		return "FLOW_CONTROL_ERROR"
	case StreamLimitError:
		return "STREAM_LIMIT_ERROR"
	case StreamStateError:
		return "STREAM_STATE_ERROR"
	case FinalSizeError:
		return "FINAL_SIZE_ERROR"
	case FrameEncodingError:
		return "FRAME_ENCODING_ERROR"
	case TransportParameterError:
		return "TRANSPORT_PARAMETER_ERROR"
	case ConnectionIDLimitError:
		return "CONNECTION_ID_LIMIT_ERROR"
	case ProtocolViolation:
		return "PROTOCOL_VIOLATION"
	case InvalidToken:
		return "INVALID_TOKEN"
	case ApplicationErrorErrorCode:
		return "APPLICATION_ERROR"
	case CryptoBufferExceeded:
		return "CRYPTO_BUFFER_EXCEEDED"
	case KeyUpdateError:
		return "KEY_UPDATE_ERROR"
	case AEADLimitReached:
		return "AEAD_LIMIT_REACHED"
	case NoViablePathError:
		return "NO_VIABLE_PATH"
	default:
		if e.IsCryptoError() {
			return fmt.Sprintf("CRYPTO_ERROR %#x", uint16(e))
		}
		return fmt.Sprintf("unknown error code: %#x", uint16(e))
	}
}

// ErrorCode is the reason a connection was closed, as seen by this endpoint.
// It is finer-grained than the TransportErrorCode sent on the wire.
type ErrorCode uint32

// The connection error codes
const (
	ErrNoError ErrorCode = iota
	ErrInternalError
	ErrPeerGoingAway
	ErrInvalidFrameData
	ErrProtocolViolation
	ErrInvalidCryptoMessageType
	ErrCryptoMessageParameterNotFound
	ErrCryptoTooManyRejects
	ErrCryptoBufferExceeded
	ErrMaybeCorruptedMemory
	ErrUnencryptedStreamData
	ErrPacketWriteError
	ErrFailedToSerializePacket
	ErrAEADLimitReached
	ErrKeyUpdateError
	ErrTooManyOutstandingSentPackets
	ErrPublicReset
	ErrNetworkIdleTimeout
	ErrHandshakeTimeout
	ErrTooManyRTOs
	ErrInvalidNewToken
	ErrInvalidHandshakeDone
	ErrPeerPortChangeHandshakeUnconfirmed
	ErrConnectionMigrationHandshakeUnconfirmed
	ErrConnectionIDLimitError
	ErrInvalidToken
)

var errorCodeNames = map[ErrorCode]string{
	ErrNoError:                                 "QUIC_NO_ERROR",
	ErrInternalError:                           "QUIC_INTERNAL_ERROR",
	ErrPeerGoingAway:                           "QUIC_PEER_GOING_AWAY",
	ErrInvalidFrameData:                        "QUIC_INVALID_FRAME_DATA",
	ErrProtocolViolation:                       "QUIC_PROTOCOL_VIOLATION",
	ErrInvalidCryptoMessageType:                "QUIC_INVALID_CRYPTO_MESSAGE_TYPE",
	ErrCryptoMessageParameterNotFound:          "QUIC_CRYPTO_MESSAGE_PARAMETER_NOT_FOUND",
	ErrCryptoTooManyRejects:                    "QUIC_CRYPTO_TOO_MANY_REJECTS",
	ErrCryptoBufferExceeded:                    "QUIC_CRYPTO_BUFFER_EXCEEDED",
	ErrMaybeCorruptedMemory:                    "QUIC_MAYBE_CORRUPTED_MEMORY",
	ErrUnencryptedStreamData:                   "QUIC_UNENCRYPTED_STREAM_DATA",
	ErrPacketWriteError:                        "QUIC_PACKET_WRITE_ERROR",
	ErrFailedToSerializePacket:                 "QUIC_FAILED_TO_SERIALIZE_PACKET",
	ErrAEADLimitReached:                        "QUIC_AEAD_LIMIT_REACHED",
	ErrKeyUpdateError:                          "QUIC_KEY_UPDATE_ERROR",
	ErrTooManyOutstandingSentPackets:           "QUIC_TOO_MANY_OUTSTANDING_SENT_PACKETS",
	ErrPublicReset:                             "QUIC_PUBLIC_RESET",
	ErrNetworkIdleTimeout:                      "QUIC_NETWORK_IDLE_TIMEOUT",
	ErrHandshakeTimeout:                        "QUIC_HANDSHAKE_TIMEOUT",
	ErrTooManyRTOs:                             "QUIC_TOO_MANY_RTOS",
	ErrInvalidNewToken:                         "QUIC_INVALID_NEW_TOKEN",
	ErrInvalidHandshakeDone:                    "QUIC_HANDSHAKE_DONE_RECEIVED_BY_SERVER",
	ErrPeerPortChangeHandshakeUnconfirmed:      "QUIC_PEER_PORT_CHANGE_HANDSHAKE_UNCONFIRMED",
	ErrConnectionMigrationHandshakeUnconfirmed: "QUIC_CONNECTION_MIGRATION_HANDSHAKE_UNCONFIRMED",
	ErrConnectionIDLimitError:                  "QUIC_CONNECTION_ID_LIMIT_ERROR",
	ErrInvalidToken:                            "QUIC_INVALID_TOKEN",
}

func (e ErrorCode) String() string {
	if name, ok := errorCodeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code: %d", uint32(e))
}

func (e ErrorCode) Error() string {
	return e.String()
}

// TransportErrorCode returns the error code sent in a CONNECTION_CLOSE frame.
func (e ErrorCode) TransportErrorCode() TransportErrorCode {
	switch e {
	case ErrNoError, ErrPeerGoingAway, ErrNetworkIdleTimeout:
		return NoError
	case ErrInvalidFrameData:
		return FrameEncodingError
	case ErrProtocolViolation, ErrUnencryptedStreamData, ErrMaybeCorruptedMemory,
		ErrInvalidNewToken, ErrInvalidHandshakeDone,
		ErrPeerPortChangeHandshakeUnconfirmed, ErrConnectionMigrationHandshakeUnconfirmed:
		return ProtocolViolation
	case ErrCryptoBufferExceeded:
		return CryptoBufferExceeded
	case ErrAEADLimitReached:
		return AEADLimitReached
	case ErrKeyUpdateError:
		return KeyUpdateError
	case ErrConnectionIDLimitError:
		return ConnectionIDLimitError
	case ErrInvalidToken:
		return InvalidToken
	case ErrCryptoTooManyRejects, ErrInvalidCryptoMessageType, ErrCryptoMessageParameterNotFound:
		return ConnectionRefused
	default:
		return InternalError
	}
}
