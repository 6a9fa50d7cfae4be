package protocol

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Protocol", func() {
	Context("Long Header Packet Types", func() {
		It("has the correct string representation", func() {
			Expect(PacketTypeInitial.String()).To(Equal("Initial"))
			Expect(PacketTypeRetry.String()).To(Equal("Retry"))
			Expect(PacketTypeHandshake.String()).To(Equal("Handshake"))
			Expect(PacketType0RTT.String()).To(Equal("0-RTT Protected"))
			Expect(PacketType(10).String()).To(Equal("unknown packet type"))
		})

		It("maps packet types to encryption levels", func() {
			Expect(PacketTypeInitial.EncryptionLevel()).To(Equal(EncryptionInitial))
			Expect(PacketTypeHandshake.EncryptionLevel()).To(Equal(EncryptionHandshake))
			Expect(PacketType0RTT.EncryptionLevel()).To(Equal(Encryption0RTT))
			Expect(PacketTypeRetry.EncryptionLevel()).To(BeZero())
		})
	})

	Context("Encryption Levels", func() {
		It("has the correct string representation", func() {
			Expect(EncryptionInitial.String()).To(Equal("Initial"))
			Expect(EncryptionHandshake.String()).To(Equal("Handshake"))
			Expect(Encryption0RTT.String()).To(Equal("0-RTT"))
			Expect(Encryption1RTT.String()).To(Equal("1-RTT"))
			Expect(EncryptionLevel(0).String()).To(Equal("unknown"))
		})

		It("shares the application data space between 0-RTT and 1-RTT", func() {
			Expect(EncryptionInitial.PacketNumberSpace()).To(Equal(PacketNumberSpaceInitial))
			Expect(EncryptionHandshake.PacketNumberSpace()).To(Equal(PacketNumberSpaceHandshake))
			Expect(Encryption0RTT.PacketNumberSpace()).To(Equal(PacketNumberSpaceApplicationData))
			Expect(Encryption1RTT.PacketNumberSpace()).To(Equal(PacketNumberSpaceApplicationData))
		})
	})

	Context("Key Phases", func() {
		It("has the correct string representation", func() {
			Expect(KeyPhaseZero.String()).To(Equal("0"))
			Expect(KeyPhaseOne.String()).To(Equal("1"))
			Expect(KeyPhaseUndefined.String()).To(Equal("undefined"))
		})

		It("converts the key phase to the key phase bit", func() {
			Expect(KeyPhase(0).Bit()).To(Equal(KeyPhaseZero))
			Expect(KeyPhase(2).Bit()).To(Equal(KeyPhaseZero))
			Expect(KeyPhase(4).Bit()).To(Equal(KeyPhaseZero))
			Expect(KeyPhase(1).Bit()).To(Equal(KeyPhaseOne))
			Expect(KeyPhase(3).Bit()).To(Equal(KeyPhaseOne))
		})
	})

	Context("ECN", func() {
		It("converts to and from IP header bits", func() {
			for _, e := range []ECN{ECNNon, ECT0, ECT1, ECNCE} {
				Expect(ParseECNHeaderBits(e.ToHeaderBits())).To(Equal(e))
			}
		})
	})

	Context("Perspective", func() {
		It("has a string representation", func() {
			Expect(PerspectiveClient.String()).To(Equal("client"))
			Expect(PerspectiveServer.String()).To(Equal("server"))
			Expect(Perspective(0).String()).To(Equal("invalid perspective"))
		})

		It("returns the opposite", func() {
			Expect(PerspectiveClient.Opposite()).To(Equal(PerspectiveServer))
			Expect(PerspectiveServer.Opposite()).To(Equal(PerspectiveClient))
		})
	})

	Context("Versions", func() {
		It("only lets IETF versions enforce the amplification limit", func() {
			Expect(Version1.SupportsAntiAmplificationLimit()).To(BeTrue())
			Expect(Version2.SupportsAntiAmplificationLimit()).To(BeTrue())
			Expect(VersionLegacy.SupportsAntiAmplificationLimit()).To(BeFalse())
			Expect(VersionLegacy.CanSendCoalescedPackets()).To(BeFalse())
		})

		It("has the right string representation", func() {
			Expect(Version1.String()).To(Equal("v1"))
			Expect(VersionLegacy.String()).To(Equal("gQUIC 50"))
			Expect(Version(0x1234).String()).To(Equal("0x1234"))
		})
	})

	Context("Connection IDs", func() {
		It("generates random connection IDs", func() {
			c1, err := GenerateConnectionID(8)
			Expect(err).ToNot(HaveOccurred())
			c2, err := GenerateConnectionID(8)
			Expect(err).ToNot(HaveOccurred())
			Expect(c1.Len()).To(Equal(8))
			Expect(c1.Equal(c2)).To(BeFalse())
		})

		It("reads connection IDs", func() {
			c, err := ReadConnectionID(bytes.NewReader([]byte{0xde, 0xad, 0xbe, 0xef}), 4)
			Expect(err).ToNot(HaveOccurred())
			Expect(c.Bytes()).To(Equal([]byte{0xde, 0xad, 0xbe, 0xef}))
			Expect(c.String()).To(Equal("deadbeef"))
			_, err = ReadConnectionID(bytes.NewReader([]byte{0xde, 0xad}), 4)
			Expect(err).To(MatchError("EOF"))
		})

		It("compares connection IDs", func() {
			Expect(ParseConnectionID([]byte{1, 2, 3})).To(Equal(ParseConnectionID([]byte{1, 2, 3})))
			Expect(ParseConnectionID([]byte{1, 2, 3}).Equal(ParseConnectionID([]byte{1, 2}))).To(BeFalse())
			Expect(ParseConnectionID(nil).String()).To(Equal("(empty)"))
		})
	})

	Context("packet numbers", func() {
		It("decodes truncated packet numbers", func() {
			Expect(DecodePacketNumber(PacketNumberLen2, 0xa82f30ea, 0x9b32)).To(Equal(PacketNumber(0xa82f9b32)))
			Expect(DecodePacketNumber(PacketNumberLen1, 10, 11)).To(Equal(PacketNumber(11)))
			Expect(DecodePacketNumber(PacketNumberLen1, 0xff, 0x01)).To(Equal(PacketNumber(0x101)))
			Expect(DecodePacketNumber(PacketNumberLen4, InvalidPacketNumber, 0)).To(Equal(PacketNumber(0)))
		})

		It("chooses the packet number length for the header", func() {
			Expect(PacketNumberLengthForHeader(1, InvalidPacketNumber)).To(Equal(PacketNumberLen2))
			Expect(PacketNumberLengthForHeader(1<<15+10, 10)).To(Equal(PacketNumberLen3))
			Expect(PacketNumberLengthForHeader(1<<23+10, 10)).To(Equal(PacketNumberLen4))
		})
	})
})
