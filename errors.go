package quicconn

import (
	"errors"

	"github.com/quic-go/quicconn/internal/qerr"
)

type (
	// A ConnectionError is the error a connection was closed with.
	ConnectionError = qerr.ConnectionError
	// ErrorCode is the internal error code of a connection error.
	ErrorCode = qerr.ErrorCode
	// CloseSource says which endpoint closed the connection.
	CloseSource = qerr.CloseSource
	// TransportErrorCode is the error code sent in CONNECTION_CLOSE frames.
	TransportErrorCode = qerr.TransportErrorCode
)

const (
	CloseSourceSelf     = qerr.CloseSourceSelf
	CloseSourceFromPeer = qerr.CloseSourceFromPeer
)

const (
	ErrNoError                                 = qerr.ErrNoError
	ErrInternalError                           = qerr.ErrInternalError
	ErrPeerGoingAway                           = qerr.ErrPeerGoingAway
	ErrInvalidFrameData                        = qerr.ErrInvalidFrameData
	ErrProtocolViolation                       = qerr.ErrProtocolViolation
	ErrInvalidCryptoMessageType                = qerr.ErrInvalidCryptoMessageType
	ErrCryptoMessageParameterNotFound          = qerr.ErrCryptoMessageParameterNotFound
	ErrCryptoTooManyRejects                    = qerr.ErrCryptoTooManyRejects
	ErrCryptoBufferExceeded                    = qerr.ErrCryptoBufferExceeded
	ErrMaybeCorruptedMemory                    = qerr.ErrMaybeCorruptedMemory
	ErrUnencryptedStreamData                   = qerr.ErrUnencryptedStreamData
	ErrPacketWriteError                        = qerr.ErrPacketWriteError
	ErrFailedToSerializePacket                 = qerr.ErrFailedToSerializePacket
	ErrAEADLimitReached                        = qerr.ErrAEADLimitReached
	ErrKeyUpdateError                          = qerr.ErrKeyUpdateError
	ErrTooManyOutstandingSentPackets           = qerr.ErrTooManyOutstandingSentPackets
	ErrPublicReset                             = qerr.ErrPublicReset
	ErrNetworkIdleTimeout                      = qerr.ErrNetworkIdleTimeout
	ErrHandshakeTimeout                        = qerr.ErrHandshakeTimeout
	ErrTooManyRTOs                             = qerr.ErrTooManyRTOs
	ErrInvalidNewToken                         = qerr.ErrInvalidNewToken
	ErrInvalidHandshakeDone                    = qerr.ErrInvalidHandshakeDone
	ErrPeerPortChangeHandshakeUnconfirmed      = qerr.ErrPeerPortChangeHandshakeUnconfirmed
	ErrConnectionMigrationHandshakeUnconfirmed = qerr.ErrConnectionMigrationHandshakeUnconfirmed
	ErrConnectionIDLimitError                  = qerr.ErrConnectionIDLimitError
	ErrInvalidToken                            = qerr.ErrInvalidToken
)

// toConnectionError converts an error returned while processing a packet
// into the error the connection is closed with.
func toConnectionError(err error) *qerr.ConnectionError {
	var connErr *qerr.ConnectionError
	if errors.As(err, &connErr) {
		return connErr
	}
	var code qerr.ErrorCode
	if errors.As(err, &code) {
		return qerr.NewError(code, "")
	}
	var transportErr *qerr.TransportError
	if errors.As(err, &transportErr) {
		switch transportErr.ErrorCode {
		case qerr.FrameEncodingError:
			return qerr.NewError(qerr.ErrInvalidFrameData, transportErr.ErrorMessage)
		case qerr.ProtocolViolation:
			return qerr.NewError(qerr.ErrProtocolViolation, transportErr.ErrorMessage)
		}
	}
	return qerr.NewError(qerr.ErrInternalError, err.Error())
}
