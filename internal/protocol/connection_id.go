package protocol

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// MaxConnIDLen is the maximum length of a connection ID in QUIC v1.
const MaxConnIDLen = 20

// MinConnectionIDLenInitial is the minimum length of the destination connection ID on an Initial packet.
const MinConnectionIDLenInitial = 8

// DefaultConnectionIDLength is the length of connection IDs generated by this implementation.
const DefaultConnectionIDLength = 8

var errConnectionIDTooLong = errors.New("connection ID too long")

// A ConnectionID in QUIC
type ConnectionID struct {
	b [MaxConnIDLen]byte
	l uint8
}

// GenerateConnectionID generates a connection ID using cryptographic random
func GenerateConnectionID(l int) (ConnectionID, error) {
	var c ConnectionID
	c.l = uint8(l)
	_, err := rand.Read(c.b[:l])
	return c, err
}

// ParseConnectionID interprets b as a Connection ID.
// It panics if b is longer than 20 bytes.
func ParseConnectionID(b []byte) ConnectionID {
	if len(b) > MaxConnIDLen {
		panic("invalid conn id length")
	}
	var c ConnectionID
	c.l = uint8(len(b))
	copy(c.b[:c.l], b)
	return c
}

// ReadConnectionID reads a connection ID of length l from the given io.Reader.
// It returns io.EOF if there are not enough bytes to read.
func ReadConnectionID(r io.Reader, l int) (ConnectionID, error) {
	var c ConnectionID
	if l == 0 {
		return c, nil
	}
	if l > MaxConnIDLen {
		return c, errConnectionIDTooLong
	}
	c.l = uint8(l)
	_, err := io.ReadFull(r, c.b[:l])
	if err == io.ErrUnexpectedEOF {
		return c, io.EOF
	}
	return c, err
}

// Len returns the length of the connection ID in bytes
func (c ConnectionID) Len() int {
	return int(c.l)
}

// Bytes returns the byte representation
func (c ConnectionID) Bytes() []byte {
	return c.b[:c.l]
}

// Equal says if two connection IDs are equal
func (c ConnectionID) Equal(other ConnectionID) bool {
	return c.l == other.l && bytes.Equal(c.Bytes(), other.Bytes())
}

func (c ConnectionID) String() string {
	if c.Len() == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("%x", c.Bytes())
}

// A ConnectionIDGenerator generates connection IDs of a fixed length.
type ConnectionIDGenerator interface {
	GenerateConnectionID() (ConnectionID, error)
	ConnectionIDLen() int
}

// DefaultConnectionIDGenerator generates random connection IDs.
type DefaultConnectionIDGenerator struct {
	ConnLen int
}

func (d *DefaultConnectionIDGenerator) GenerateConnectionID() (ConnectionID, error) {
	return GenerateConnectionID(d.ConnLen)
}

func (d *DefaultConnectionIDGenerator) ConnectionIDLen() int {
	return d.ConnLen
}
