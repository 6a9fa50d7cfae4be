// Package transport runs a quicconn.Connection on top of UDP sockets.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync/atomic"

	"github.com/quic-go/quicconn"
	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/protocol"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// A ReceivedPacket is a UDP datagram read from a Conn.
type ReceivedPacket struct {
	// Self is the address the datagram was sent to.
	// If the socket is bound to an unspecified address, it is taken from the packet info.
	Self    netip.AddrPort
	Peer    netip.AddrPort
	Data    []byte
	ECN     quicconn.ECN
	RcvTime monotime.Time
}

// A Conn is a UDP socket.
// It implements quicconn.PacketWriter.
type Conn struct {
	conn   *net.UDPConn
	local  netip.AddrPort
	logger *slog.Logger

	oobCapable bool
	oobBuffer  []byte

	ipv4Conn *ipv4.Conn
	ipv6Conn *ipv6.Conn
	// the ECN codepoint currently set on the socket
	ecn         protocol.ECN
	ecnDisabled bool

	writeBlocked atomic.Bool
}

var _ quicconn.PacketWriter = &Conn{}

// Listen opens a UDP socket on addr.
func Listen(addr netip.AddrPort, logger *slog.Logger) (*Conn, error) {
	network := "udp4"
	if addr.Addr().Is6() && !addr.Addr().Is4In6() {
		network = "udp6"
	}
	c, err := net.ListenUDP(network, net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, err
	}
	conn, err := NewConn(c, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	return conn, nil
}

// NewConn wraps a UDP socket.
// It enables reading of ECN bits and packet info, and sets the DF bit where supported.
func NewConn(c *net.UDPConn, logger *slog.Logger) (*Conn, error) {
	local, ok := c.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected local address type %T", c.LocalAddr())
	}
	logger = logutils.Component(logger, logutils.ComponentTransport)
	conn := &Conn{
		conn:      c,
		local:     local.AddrPort(),
		logger:    logger,
		oobBuffer: make([]byte, 128),
		ipv4Conn:  ipv4.NewConn(c),
		ipv6Conn:  ipv6.NewConn(c),
		ecn:       protocol.ECNUnsupported,
	}
	rawConn, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("couldn't get syscall.RawConn: %w", err)
	}
	needsPacketInfo := local.IP.IsUnspecified()
	oobCapable, err := setReceiveOptions(rawConn, needsPacketInfo)
	if err != nil {
		logger.Debug("reading of ECN bits and packet info not supported", "error", err)
	}
	conn.oobCapable = oobCapable
	if err := setDF(rawConn); err != nil {
		logger.Debug("setting DF failed", "error", err)
	}
	return conn, nil
}

// LocalAddr is the address the socket is bound to.
func (c *Conn) LocalAddr() netip.AddrPort { return c.local }

// ReadPacket reads the next datagram.
// It blocks until a datagram arrives or the Conn is closed.
func (c *Conn) ReadPacket() (*ReceivedPacket, error) {
	buf := make([]byte, protocol.MaxPacketBufferSize)
	c.oobBuffer = c.oobBuffer[:cap(c.oobBuffer)]
	n, oobn, _, peer, err := c.conn.ReadMsgUDPAddrPort(buf, c.oobBuffer)
	if err != nil {
		return nil, err
	}
	p := &ReceivedPacket{
		Self:    c.local,
		Peer:    normalizeAddrPort(peer),
		Data:    buf[:n],
		ECN:     protocol.ECNUnsupported,
		RcvTime: monotime.Now(),
	}
	if c.oobCapable && oobn > 0 {
		ecn, dest, err := parseControlMessages(c.oobBuffer[:oobn])
		if err != nil {
			c.logger.Debug("parsing control messages failed", "error", err)
		} else {
			p.ECN = ecn
			if dest.IsValid() && c.local.Addr().IsUnspecified() {
				p.Self = netip.AddrPortFrom(dest.Unmap(), c.local.Port())
			}
		}
	}
	return p, nil
}

// WritePacket sends a datagram to peer.
// The source address is the address the socket is bound to.
func (c *Conn) WritePacket(b []byte, self, peer netip.AddrPort, ecn quicconn.ECN) error {
	if c.local.Addr().IsValid() && !c.local.Addr().IsUnspecified() && self.IsValid() && self != c.local {
		c.logger.Debug("writing packet from unexpected address", "self", self, "local", c.local)
	}
	c.setECN(ecn, peer)
	_, err := c.conn.WriteToUDPAddrPort(b, peer)
	if err == nil {
		return nil
	}
	switch {
	case isWouldBlock(err):
		c.writeBlocked.Store(true)
		return quicconn.ErrWriteBlocked
	case isMsgSizeErr(err):
		return fmt.Errorf("%w: %w", quicconn.ErrMessageTooBig, err)
	default:
		return err
	}
}

// IsWriteBlocked says if the last write failed because the socket buffer was full.
func (c *Conn) IsWriteBlocked() bool { return c.writeBlocked.Load() }

// SetWritable clears the write-blocked state.
func (c *Conn) SetWritable() { c.writeBlocked.Store(false) }

// Close closes the socket.
// A blocked ReadPacket returns net.ErrClosed.
func (c *Conn) Close() error { return c.conn.Close() }

func (c *Conn) setECN(ecn protocol.ECN, peer netip.AddrPort) {
	if c.ecnDisabled || ecn == c.ecn || ecn == protocol.ECNUnsupported {
		return
	}
	tos := int(ecn.ToHeaderBits())
	var err error
	if peer.Addr().Is4() || peer.Addr().Is4In6() {
		err = c.ipv4Conn.SetTOS(tos)
	} else {
		err = c.ipv6Conn.SetTrafficClass(tos)
	}
	if err != nil {
		c.logger.Debug("setting ECN codepoint failed, disabling ECN marking", "ecn", ecn, "error", err)
		c.ecnDisabled = true
		return
	}
	c.ecn = ecn
}

func normalizeAddrPort(a netip.AddrPort) netip.AddrPort {
	if a.Addr().Is4In6() {
		return netip.AddrPortFrom(a.Addr().Unmap(), a.Port())
	}
	return a
}

// isClosed says if err was returned by a read on a closed Conn.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
