package protocol

// EncryptionLevel is the encryption level
// Default value is Unencrypted
type EncryptionLevel uint8

const (
	// EncryptionInitial is the Initial encryption level
	EncryptionInitial EncryptionLevel = 1 + iota
	// Encryption0RTT is the 0-RTT encryption level
	Encryption0RTT
	// EncryptionHandshake is the Handshake encryption level
	EncryptionHandshake
	// Encryption1RTT is the 1-RTT encryption level
	Encryption1RTT
)

// EncryptionLevels lists the levels in the order CONNECTION_CLOSE frames are sent on close.
var EncryptionLevels = [...]EncryptionLevel{EncryptionInitial, EncryptionHandshake, Encryption0RTT, Encryption1RTT}

func (e EncryptionLevel) String() string {
	switch e {
	case EncryptionInitial:
		return "Initial"
	case EncryptionHandshake:
		return "Handshake"
	case Encryption0RTT:
		return "0-RTT"
	case Encryption1RTT:
		return "1-RTT"
	}
	return "unknown"
}

// PacketNumberSpace returns the packet number space this level sends in.
// 0-RTT and 1-RTT share the application data space.
func (e EncryptionLevel) PacketNumberSpace() PacketNumberSpace {
	switch e {
	case EncryptionInitial:
		return PacketNumberSpaceInitial
	case EncryptionHandshake:
		return PacketNumberSpaceHandshake
	default:
		return PacketNumberSpaceApplicationData
	}
}

// A PacketNumberSpace is one of the three independent packet number spaces.
type PacketNumberSpace uint8

const (
	PacketNumberSpaceInitial PacketNumberSpace = iota
	PacketNumberSpaceHandshake
	PacketNumberSpaceApplicationData

	NumPacketNumberSpaces = 3
)

func (s PacketNumberSpace) String() string {
	switch s {
	case PacketNumberSpaceInitial:
		return "initial"
	case PacketNumberSpaceHandshake:
		return "handshake"
	case PacketNumberSpaceApplicationData:
		return "application_data"
	}
	return "unknown"
}
