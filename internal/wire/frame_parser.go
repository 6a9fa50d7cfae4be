package wire

import (
	"errors"
	"fmt"
	"io"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/quicvarint"
)

var errUnknownFrameType = errors.New("unknown frame type")

// The FrameParser parses QUIC frames, one by one.
type FrameParser struct {
	ackDelayExponent uint8
}

// NewFrameParser creates a new frame parser.
func NewFrameParser() *FrameParser {
	return &FrameParser{ackDelayExponent: protocol.DefaultAckDelayExponent}
}

// ParseNext parses the next frame.
// PADDING frames are skipped. It returns a nil frame once the end of the payload is reached.
func (p *FrameParser) ParseNext(data []byte, encLevel protocol.EncryptionLevel, v protocol.Version) (int, Frame, error) {
	var parsed int
	for len(data) != 0 {
		typ, l, err := quicvarint.Parse(data)
		parsed += l
		if err != nil {
			return parsed, nil, &qerr.TransportError{
				ErrorCode:    qerr.FrameEncodingError,
				ErrorMessage: err.Error(),
			}
		}
		data = data[l:]
		if typ == 0x0 { // skip PADDING frames
			continue
		}

		frameType := FrameType(typ)
		if !frameType.isAllowedAtEncLevel(encLevel) {
			return parsed, nil, &qerr.TransportError{
				ErrorCode:    qerr.FrameEncodingError,
				FrameType:    typ,
				ErrorMessage: fmt.Sprintf("%#x not allowed at encryption level %s", typ, encLevel),
			}
		}
		f, l, err := p.parseFrame(data, frameType, encLevel, v)
		parsed += l
		if err != nil {
			return parsed, nil, &qerr.TransportError{
				FrameType:    typ,
				ErrorCode:    qerr.FrameEncodingError,
				ErrorMessage: err.Error(),
			}
		}
		return parsed, f, nil
	}
	return parsed, nil, nil
}

func (p *FrameParser) parseFrame(b []byte, typ FrameType, encLevel protocol.EncryptionLevel, v protocol.Version) (Frame, int, error) {
	if typ.IsStreamFrameType() {
		return parseStreamFrame(b, typ, v)
	}
	switch typ {
	case PingFrameType:
		return &PingFrame{}, 0, nil
	case AckFrameType, AckECNFrameType:
		ackDelayExponent := p.ackDelayExponent
		if encLevel != protocol.Encryption1RTT {
			ackDelayExponent = protocol.DefaultAckDelayExponent
		}
		return parseAckFrame(b, typ, ackDelayExponent, v)
	case CryptoFrameType:
		return parseCryptoFrame(b, v)
	case NewTokenFrameType:
		return parseNewTokenFrame(b, v)
	case NewConnectionIDFrameType:
		return parseNewConnectionIDFrame(b, v)
	case RetireConnectionIDFrameType:
		return parseRetireConnectionIDFrame(b, v)
	case PathChallengeFrameType:
		return parsePathChallengeFrame(b, v)
	case PathResponseFrameType:
		return parsePathResponseFrame(b, v)
	case ConnectionCloseFrameType, ApplicationCloseFrameType:
		return parseConnectionCloseFrame(b, typ, v)
	case HandshakeDoneFrameType:
		return &HandshakeDoneFrame{}, 0, nil
	default:
		return nil, 0, errUnknownFrameType
	}
}

// SetAckDelayExponent sets the acknowledgment delay exponent (sent in the transport parameters).
// This value is used to scale the ACK Delay field in the ACK frame.
func (p *FrameParser) SetAckDelayExponent(exp uint8) {
	p.ackDelayExponent = exp
}

func replaceUnexpectedEOF(e error) error {
	if e == io.ErrUnexpectedEOF {
		return io.EOF
	}
	return e
}
