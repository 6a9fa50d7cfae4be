package wire

import (
	"encoding/binary"
	"io"

	"github.com/quic-go/quicconn/internal/protocol"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Header", func() {
	var (
		destConnID = protocol.ParseConnectionID([]byte{0xde, 0xca, 0xfb, 0xad, 0x13, 0x37, 0xbe, 0xef})
		srcConnID  = protocol.ParseConnectionID([]byte{1, 2, 3, 4, 5, 6})
	)

	appendLongHeader := func(hdr *Header, payloadLen int) []byte {
		hdr.Length = protocol.ByteCount(payloadLen) + protocol.ByteCount(hdr.PacketNumberLen)
		b, err := hdr.Append(nil, protocol.Version1)
		Expect(err).ToNot(HaveOccurred())
		Expect(protocol.ByteCount(len(b))).To(Equal(hdr.GetLength(protocol.Version1)))
		return append(b, make([]byte, payloadLen)...)
	}

	Context("Long Header", func() {
		It("writes and parses an Initial header with a token", func() {
			data := appendLongHeader(&Header{
				Type:             protocol.PacketTypeInitial,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				SrcConnectionID:  srcConnID,
				Token:            []byte("foobar"),
				PacketNumber:     0x1337,
				PacketNumberLen:  protocol.PacketNumberLen4,
			}, 100)
			Expect(IsLongHeaderPacket(data[0])).To(BeTrue())
			hdr, packet, rest, err := ParseLongHeaderPacket(data)
			Expect(err).ToNot(HaveOccurred())
			Expect(hdr.Type).To(Equal(protocol.PacketTypeInitial))
			Expect(hdr.EncryptionLevel()).To(Equal(protocol.EncryptionInitial))
			Expect(hdr.Version).To(Equal(protocol.Version1))
			Expect(hdr.DestConnectionID).To(Equal(destConnID))
			Expect(hdr.SrcConnectionID).To(Equal(srcConnID))
			Expect(hdr.Token).To(Equal([]byte("foobar")))
			Expect(hdr.PacketNumber).To(Equal(protocol.PacketNumber(0x1337)))
			Expect(hdr.PacketNumberLen).To(Equal(protocol.PacketNumberLen4))
			Expect(packet).To(HaveLen(len(data)))
			Expect(rest).To(BeEmpty())
			Expect(hdr.ParsedLen()).To(BeEquivalentTo(len(data) - 100))
		})

		It("splits coalesced packets", func() {
			first := appendLongHeader(&Header{
				Type:             protocol.PacketTypeInitial,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				SrcConnectionID:  srcConnID,
				PacketNumber:     1,
				PacketNumberLen:  protocol.PacketNumberLen2,
			}, 50)
			second := appendLongHeader(&Header{
				Type:             protocol.PacketTypeHandshake,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				SrcConnectionID:  srcConnID,
				PacketNumber:     2,
				PacketNumberLen:  protocol.PacketNumberLen2,
			}, 30)
			data := append(append([]byte{}, first...), second...)
			hdr, packet, rest, err := ParseLongHeaderPacket(data)
			Expect(err).ToNot(HaveOccurred())
			Expect(hdr.Type).To(Equal(protocol.PacketTypeInitial))
			Expect(packet).To(Equal(first))
			Expect(rest).To(Equal(second))
			hdr, packet, rest, err = ParseLongHeaderPacket(rest)
			Expect(err).ToNot(HaveOccurred())
			Expect(hdr.Type).To(Equal(protocol.PacketTypeHandshake))
			Expect(hdr.PacketNumber).To(Equal(protocol.PacketNumber(2)))
			Expect(packet).To(Equal(second))
			Expect(rest).To(BeEmpty())
		})

		It("reports unsupported versions", func() {
			data := appendLongHeader(&Header{
				Type:             protocol.PacketTypeHandshake,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				PacketNumberLen:  protocol.PacketNumberLen2,
			}, 10)
			binary.BigEndian.PutUint32(data[1:5], 0xdeadbeef)
			hdr, _, _, err := ParseLongHeaderPacket(data)
			Expect(err).To(MatchError(ErrUnsupportedVersion))
			Expect(hdr.Version).To(Equal(protocol.Version(0xdeadbeef)))
		})

		It("parses the version", func() {
			data := appendLongHeader(&Header{
				Type:             protocol.PacketTypeHandshake,
				Version:          protocol.VersionLegacy,
				DestConnectionID: destConnID,
				PacketNumberLen:  protocol.PacketNumberLen2,
			}, 10)
			v, err := ParseVersion(data)
			Expect(err).ToNot(HaveOccurred())
			Expect(v).To(Equal(protocol.VersionLegacy))
			_, err = ParseVersion(data[:4])
			Expect(err).To(MatchError(io.EOF))
		})

		It("errors when the packet is shorter than the length field", func() {
			data := appendLongHeader(&Header{
				Type:             protocol.PacketTypeHandshake,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				PacketNumberLen:  protocol.PacketNumberLen2,
			}, 10)
			_, _, _, err := ParseLongHeaderPacket(data[:len(data)-1])
			Expect(err).To(MatchError(ContainSubstring("smaller than the expected length")))
		})

		It("errors on EOF", func() {
			data := appendLongHeader(&Header{
				Type:             protocol.PacketTypeInitial,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				SrcConnectionID:  srcConnID,
				Token:            []byte("token"),
				PacketNumberLen:  protocol.PacketNumberLen4,
			}, 0)
			for i := range len(data) {
				_, _, _, err := ParseLongHeaderPacket(data[:i])
				Expect(err).To(HaveOccurred())
			}
		})

		It("refuses to write Retry packets", func() {
			_, err := (&Header{Type: protocol.PacketTypeRetry, Version: protocol.Version1}).Append(nil, protocol.Version1)
			Expect(err).To(HaveOccurred())
		})
	})

	Context("Short Header", func() {
		It("writes and parses", func() {
			b, err := AppendShortHeader(nil, destConnID, 0x42, protocol.PacketNumberLen2, protocol.KeyPhaseOne)
			Expect(err).ToNot(HaveOccurred())
			Expect(protocol.ByteCount(len(b))).To(Equal(ShortHeaderLen(destConnID, protocol.PacketNumberLen2)))
			Expect(IsLongHeaderPacket(b[0])).To(BeFalse())
			hdr, err := ParseShortHeader(append(b, 0xff), destConnID.Len())
			Expect(err).ToNot(HaveOccurred())
			Expect(hdr.DestConnectionID).To(Equal(destConnID))
			Expect(hdr.PacketNumber).To(Equal(protocol.PacketNumber(0x42)))
			Expect(hdr.PacketNumberLen).To(Equal(protocol.PacketNumberLen2))
			Expect(hdr.KeyPhase).To(Equal(protocol.KeyPhaseOne))
			Expect(hdr.Len()).To(BeEquivalentTo(len(b)))
		})

		It("reports reserved bits", func() {
			b, err := AppendShortHeader(nil, destConnID, 1, protocol.PacketNumberLen1, protocol.KeyPhaseZero)
			Expect(err).ToNot(HaveOccurred())
			b[0] |= 0x10
			hdr, err := ParseShortHeader(b, destConnID.Len())
			Expect(err).To(MatchError(ErrInvalidReservedBits))
			Expect(hdr).ToNot(BeNil())
		})

		It("rejects packets without the fixed bit", func() {
			_, err := ParseShortHeader([]byte{0x0, 1, 2, 3}, 2)
			Expect(err).To(MatchError(errNotQUICPacket))
		})

		It("errors on EOF", func() {
			b, err := AppendShortHeader(nil, destConnID, 1, protocol.PacketNumberLen4, protocol.KeyPhaseZero)
			Expect(err).ToNot(HaveOccurred())
			for i := range len(b) {
				_, err := ParseShortHeader(b[:i], destConnID.Len())
				Expect(err).To(MatchError(io.EOF))
			}
		})
	})

	Context("connection ID parsing", func() {
		It("parses the destination connection ID of long header packets", func() {
			data := appendLongHeader(&Header{
				Type:             protocol.PacketTypeHandshake,
				Version:          protocol.Version1,
				DestConnectionID: destConnID,
				SrcConnectionID:  srcConnID,
				PacketNumberLen:  protocol.PacketNumberLen2,
			}, 0)
			c, err := ParseConnectionID(data, 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(c).To(Equal(destConnID))
		})

		It("parses the destination connection ID of short header packets", func() {
			b, err := AppendShortHeader(nil, srcConnID, 1, protocol.PacketNumberLen1, protocol.KeyPhaseZero)
			Expect(err).ToNot(HaveOccurred())
			c, err := ParseConnectionID(b, srcConnID.Len())
			Expect(err).ToNot(HaveOccurred())
			Expect(c).To(Equal(srcConnID))
		})

		It("rejects too long connection IDs", func() {
			b := []byte{0xc0, 0, 0, 0, 1, 21}
			b = append(b, make([]byte, 21)...)
			_, err := ParseConnectionID(b, 4)
			Expect(err).To(MatchError(ContainSubstring("invalid connection ID length")))
		})

		It("errors on EOF", func() {
			_, err := ParseConnectionID(nil, 4)
			Expect(err).To(MatchError(io.EOF))
			_, err = ParseConnectionID([]byte{0x40, 1}, 4)
			Expect(err).To(MatchError(io.EOF))
		})
	})
})
