//go:build !linux

package transport

import (
	"errors"
	"net/netip"
	"syscall"

	"github.com/quic-go/quicconn/internal/protocol"
)

func setReceiveOptions(syscall.RawConn, bool) (bool, error) {
	return false, errors.New("not supported on this platform")
}

func setDF(syscall.RawConn) error { return nil }

func parseControlMessages([]byte) (protocol.ECN, netip.Addr, error) {
	return protocol.ECNUnsupported, netip.Addr{}, nil
}

func isMsgSizeErr(error) bool { return false }

func isWouldBlock(error) bool { return false }
