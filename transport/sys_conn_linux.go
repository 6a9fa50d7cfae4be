//go:build linux

package transport

import (
	"errors"
	"net/netip"
	"syscall"

	"github.com/quic-go/quicconn/internal/protocol"

	"golang.org/x/sys/unix"
)

const ecnMask uint8 = 0x3

func setReceiveOptions(rawConn syscall.RawConn, needsPacketInfo bool) (bool, error) {
	// We don't know if this a IPv4-only, IPv6-only or a IPv4-and-IPv6 connection.
	// Try enabling receiving of ECN and packet info for both IP versions.
	var errECNIPv4, errECNIPv6, errPIIPv4, errPIIPv6 error
	if err := rawConn.Control(func(fd uintptr) {
		errECNIPv4 = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_RECVTOS, 1)
		errECNIPv6 = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_RECVTCLASS, 1)
		if needsPacketInfo {
			errPIIPv4 = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_PKTINFO, 1)
			errPIIPv6 = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_RECVPKTINFO, 1)
		}
	}); err != nil {
		return false, err
	}
	if errECNIPv4 != nil && errECNIPv6 != nil {
		return false, errors.New("activating ECN failed for both IPv4 and IPv6")
	}
	if needsPacketInfo && errPIIPv4 != nil && errPIIPv6 != nil {
		return false, errors.New("activating packet info failed for both IPv4 and IPv6")
	}
	return true, nil
}

func setDF(rawConn syscall.RawConn) error {
	// Enabling IP_MTU_DISCOVER will force the kernel to return "sendto: message too long"
	// and the datagram will not be fragmented
	var errDFIPv4, errDFIPv6 error
	if err := rawConn.Control(func(fd uintptr) {
		errDFIPv4 = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, unix.IP_PMTUDISC_DO)
		errDFIPv6 = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_MTU_DISCOVER, unix.IPV6_PMTUDISC_DO)
	}); err != nil {
		return err
	}
	if errDFIPv4 != nil && errDFIPv6 != nil {
		return errors.New("setting DF failed for both IPv4 and IPv6")
	}
	return nil
}

// parseControlMessages extracts the ECN bits and the destination address of a received datagram.
func parseControlMessages(oob []byte) (protocol.ECN, netip.Addr, error) {
	ctrlMsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return protocol.ECNUnsupported, netip.Addr{}, err
	}
	ecn := protocol.ECNUnsupported
	var dest netip.Addr
	for _, ctrlMsg := range ctrlMsgs {
		switch ctrlMsg.Header.Level {
		case unix.IPPROTO_IP:
			switch ctrlMsg.Header.Type {
			case unix.IP_TOS:
				if len(ctrlMsg.Data) > 0 {
					ecn = protocol.ParseECNHeaderBits(ctrlMsg.Data[0] & ecnMask)
				}
			case unix.IP_PKTINFO:
				// struct in_pktinfo {
				// 	unsigned int   ipi_ifindex;  /* Interface index */
				// 	struct in_addr ipi_spec_dst; /* Local address */
				// 	struct in_addr ipi_addr;     /* Header Destination address */
				// };
				if len(ctrlMsg.Data) == 12 {
					dest = netip.AddrFrom4([4]byte(ctrlMsg.Data[8:12]))
				}
			}
		case unix.IPPROTO_IPV6:
			switch ctrlMsg.Header.Type {
			case unix.IPV6_TCLASS:
				if len(ctrlMsg.Data) > 0 {
					ecn = protocol.ParseECNHeaderBits(ctrlMsg.Data[0] & ecnMask)
				}
			case unix.IPV6_PKTINFO:
				// struct in6_pktinfo {
				// 	struct in6_addr ipi6_addr;    /* src/dst IPv6 address */
				// 	unsigned int    ipi6_ifindex; /* send/recv interface index */
				// };
				if len(ctrlMsg.Data) == 20 {
					dest = netip.AddrFrom16([16]byte(ctrlMsg.Data[:16]))
				}
			}
		}
	}
	return ecn, dest, nil
}

func isMsgSizeErr(err error) bool {
	// https://man7.org/linux/man-pages/man7/udp.7.html
	return errors.Is(err, unix.EMSGSIZE)
}

func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}
