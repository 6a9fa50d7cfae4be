package handshake

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"golang.org/x/crypto/cryptobyte"
)

// A Tag identifies a crypto handshake message, or a value inside of it.
type Tag uint32

func makeTag(s string) Tag {
	var t Tag
	for i := range 4 {
		t <<= 8
		if i < len(s) {
			t |= Tag(s[i])
		}
	}
	return t
}

// message tags
var (
	TagCHLO = makeTag("CHLO")
	TagREJ  = makeTag("REJ\x00")
	TagSHLO = makeTag("SHLO")
)

// value tags
var (
	// TagVER is the version
	TagVER = makeTag("VER\x00")
	// TagNONC is the client nonce
	TagNONC = makeTag("NONC")
	// TagSNO is the server nonce
	TagSNO = makeTag("SNO\x00")
	// TagSTK is the source address token
	TagSTK = makeTag("STK\x00")
	// TagPUBS is a public key
	TagPUBS = makeTag("PUBS")
	// TagPAD is padding
	TagPAD = makeTag("PAD\x00")
)

func (t Tag) String() string {
	b := []byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	return strings.TrimRight(string(b), "\x00")
}

const maxMessageSize = 1 << 16

var errInvalidMessage = errors.New("invalid crypto message")

// A Message is a tag/value crypto handshake message.
type Message struct {
	Tag    Tag
	Values map[Tag][]byte
}

// Append serializes the message.
// Values are written sorted by tag.
func (m *Message) Append(b []byte) []byte {
	builder := cryptobyte.NewBuilder(b)
	builder.AddUint32(uint32(m.Tag))
	builder.AddUint16(uint16(len(m.Values)))
	builder.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
		for _, t := range slices.Sorted(maps.Keys(m.Values)) {
			b.AddUint32(uint32(t))
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {
				b.AddBytes(m.Values[t])
			})
		}
	})
	return builder.BytesOrPanic()
}

// ParseMessage parses a message from the beginning of data.
// It returns io.ErrUnexpectedEOF if data doesn't contain the complete message yet.
func ParseMessage(data []byte) (*Message, int, error) {
	s := cryptobyte.String(data)
	var tag uint32
	var numValues uint16
	var length uint32
	if !s.ReadUint32(&tag) || !s.ReadUint16(&numValues) || !s.ReadUint24(&length) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	if length > maxMessageSize {
		return nil, 0, fmt.Errorf("%w: message too large (%d bytes)", errInvalidMessage, length)
	}
	var body cryptobyte.String
	if !s.ReadBytes((*[]byte)(&body), int(length)) {
		return nil, 0, io.ErrUnexpectedEOF
	}
	m := &Message{Tag: Tag(tag), Values: make(map[Tag][]byte, numValues)}
	var prev uint32
	for i := range int(numValues) {
		var t uint32
		var v cryptobyte.String
		if !body.ReadUint32(&t) || !body.ReadUint16LengthPrefixed(&v) {
			return nil, 0, fmt.Errorf("%w: truncated value", errInvalidMessage)
		}
		if i > 0 && t <= prev {
			return nil, 0, fmt.Errorf("%w: tags not sorted", errInvalidMessage)
		}
		prev = t
		m.Values[Tag(t)] = []byte(v)
	}
	if !body.Empty() {
		return nil, 0, fmt.Errorf("%w: %d trailing bytes", errInvalidMessage, len(body))
	}
	return m, len(data) - len(s), nil
}

func (m *Message) String() string {
	var sb strings.Builder
	sb.WriteString(m.Tag.String())
	sb.WriteString("{")
	for i, t := range slices.Sorted(maps.Keys(m.Values)) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %d bytes", t, len(m.Values[t]))
	}
	sb.WriteString("}")
	return sb.String()
}

// LooksLikeHandshakeMessage says if data starts with the tag of a client hello,
// a rejection or a server hello.
func LooksLikeHandshakeMessage(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	t := Tag(uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3]))
	return t == TagCHLO || t == TagREJ || t == TagSHLO
}
