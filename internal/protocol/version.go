package protocol

import (
	"fmt"
	"slices"
)

// Version is a version number as int
type Version uint32

// gquicVersion0 is the "base" for gQUIC versions
// e.g. version 50 is gquicVersion0 + 0x3530
const gquicVersion0 = 0x51300000

// The version numbers, making grepping easier
const (
	VersionUnknown Version = 0
	Version1       Version = 0x1
	Version2       Version = 0x6b3343cf
	// VersionLegacy predates address validation and coalescing.
	VersionLegacy Version = gquicVersion0 + 0x3530
)

// SupportedVersions lists the versions that the server supports
// must be in sorted descending order
var SupportedVersions = []Version{Version1, Version2, VersionLegacy}

// IsValidVersion says if the version is known to quic-go
func IsValidVersion(v Version) bool {
	return slices.Contains(SupportedVersions, v)
}

func (vn Version) String() string {
	switch vn {
	case VersionUnknown:
		return "unknown"
	case Version1:
		return "v1"
	case Version2:
		return "v2"
	case VersionLegacy:
		return "gQUIC 50"
	default:
		return fmt.Sprintf("%#x", uint32(vn))
	}
}

func (vn Version) isLegacy() bool {
	return vn&0xffff0000 == gquicVersion0
}

// SupportsAntiAmplificationLimit says if a server must not send more than
// the anti-amplification factor times the bytes received from an unvalidated address.
func (vn Version) SupportsAntiAmplificationLimit() bool {
	return !vn.isLegacy()
}

// CanSendCoalescedPackets says if packets of different encryption levels
// can share one UDP datagram.
func (vn Version) CanSendCoalescedPackets() bool {
	return !vn.isLegacy()
}

// RequiresConnectionIDsOnMigration says if a client has to switch to unused
// connection IDs when it moves to a new path.
func (vn Version) RequiresConnectionIDsOnMigration() bool {
	return !vn.isLegacy()
}
