package quicconn

import (
	"github.com/quic-go/quicconn/internal/protocol"
)

// The coalescer collects the packets of different encryption levels
// that are sent in the same datagram.
type coalescer struct {
	packets []*packedPacket
	length  protocol.ByteCount
}

func (c *coalescer) IsEmpty() bool { return len(c.packets) == 0 }

// Len is the size of the datagram, without padding.
func (c *coalescer) Len() protocol.ByteCount { return c.length }

func (c *coalescer) Add(p *packedPacket) {
	c.packets = append(c.packets, p)
	c.length += p.Len()
}

// Contains says if the datagram contains a packet of encLevel.
func (c *coalescer) Contains(encLevel protocol.EncryptionLevel) bool {
	for _, p := range c.packets {
		if p.EncryptionLevel == encLevel {
			return true
		}
	}
	return false
}

func (c *coalescer) IsAckEliciting() bool {
	for _, p := range c.packets {
		if p.IsAckEliciting() {
			return true
		}
	}
	return false
}

func (c *coalescer) Packets() []*packedPacket { return c.packets }

func (c *coalescer) Reset() {
	clear(c.packets)
	c.packets = c.packets[:0]
	c.length = 0
}

// Assemble seals all packets and appends them to buf.
// If minSize is set, the first Initial packet is padded so that the datagram is at least minSize bytes long.
func (c *coalescer) Assemble(buf *packetBuffer, minSize protocol.ByteCount) error {
	padding := max(0, minSize-c.length)
	for _, p := range c.packets {
		if !p.IsSealed() {
			var pad protocol.ByteCount
			if p.EncryptionLevel == protocol.EncryptionInitial {
				pad = padding
				padding = 0
			}
			if err := p.Seal(p.Len() + pad); err != nil {
				return err
			}
		}
		buf.Data = append(buf.Data, p.raw...)
	}
	return nil
}
