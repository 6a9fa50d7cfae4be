package metrics

import (
	"errors"

	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/logging"
)

func direction(p logging.Perspective) string {
	if p == logging.PerspectiveClient {
		return "outgoing"
	}
	return "incoming"
}

func initiator(remote bool) string {
	if remote {
		return "remote"
	}
	return "local"
}

func closeReason(err error) string {
	var connErr *qerr.ConnectionError
	if !errors.As(err, &connErr) {
		return "unknown"
	}
	//nolint:exhaustive // Only a few error codes are interesting on their own.
	switch connErr.Code {
	case qerr.ErrNoError, qerr.ErrPeerGoingAway:
		return "graceful"
	case qerr.ErrNetworkIdleTimeout:
		return "idle_timeout"
	case qerr.ErrHandshakeTimeout:
		return "handshake_timeout"
	case qerr.ErrPublicReset:
		return "stateless_reset"
	case qerr.ErrPacketWriteError:
		return "write_error"
	}
	if connErr.Source == qerr.CloseSourceFromPeer {
		return "remote_error"
	}
	return "local_error"
}
