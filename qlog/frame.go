package qlog

import (
	"encoding/hex"

	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"

	"github.com/francoispqt/gojay"
)

type frame struct {
	Frame logging.Frame
}

var _ gojay.MarshalerJSONObject = frame{}

type frames []frame

var _ gojay.MarshalerJSONArray = frames{}

func (fs frames) IsNil() bool { return fs == nil }
func (fs frames) MarshalJSONArray(enc *gojay.Encoder) {
	for _, f := range fs {
		enc.Object(f)
	}
}

func transformFrames(fs []logging.Frame) frames {
	if len(fs) == 0 {
		return nil
	}
	out := make(frames, 0, len(fs))
	for _, f := range fs {
		out = append(out, frame{Frame: f})
	}
	return out
}

func (f frame) IsNil() bool { return false }
func (f frame) MarshalJSONObject(enc *gojay.Encoder) {
	switch frame := f.Frame.(type) {
	case *wire.PingFrame:
		enc.StringKey("frame_type", "ping")
	case *wire.AckFrame:
		marshalAckFrame(enc, frame)
	case *wire.CryptoFrame:
		enc.StringKey("frame_type", "crypto")
		enc.Int64Key("offset", int64(frame.Offset))
		enc.Int64Key("length", int64(len(frame.Data)))
	case *wire.StreamFrame:
		enc.StringKey("frame_type", "stream")
		enc.Uint64Key("stream_id", frame.StreamID)
		enc.Int64Key("offset", int64(frame.Offset))
		enc.IntKey("length", len(frame.Data))
		enc.BoolKeyOmitEmpty("fin", frame.Fin)
	case *wire.NewTokenFrame:
		enc.StringKey("frame_type", "new_token")
		enc.ObjectKey("token", &token{Raw: frame.Token})
	case *wire.NewConnectionIDFrame:
		enc.StringKey("frame_type", "new_connection_id")
		enc.Uint64Key("sequence_number", frame.SequenceNumber)
		enc.Uint64Key("retire_prior_to", frame.RetirePriorTo)
		enc.IntKey("length", frame.ConnectionID.Len())
		enc.StringKey("connection_id", connectionID(frame.ConnectionID).String())
		enc.StringKey("stateless_reset_token", hex.EncodeToString(frame.StatelessResetToken[:]))
	case *wire.RetireConnectionIDFrame:
		enc.StringKey("frame_type", "retire_connection_id")
		enc.Uint64Key("sequence_number", frame.SequenceNumber)
	case *wire.PathChallengeFrame:
		enc.StringKey("frame_type", "path_challenge")
		enc.StringKey("data", hex.EncodeToString(frame.Data[:]))
	case *wire.PathResponseFrame:
		enc.StringKey("frame_type", "path_response")
		enc.StringKey("data", hex.EncodeToString(frame.Data[:]))
	case *wire.ConnectionCloseFrame:
		marshalConnectionCloseFrame(enc, frame)
	case *wire.HandshakeDoneFrame:
		enc.StringKey("frame_type", "handshake_done")
	default:
		enc.StringKey("frame_type", "unknown")
	}
}

type ackRanges []wire.AckRange

func (ars ackRanges) IsNil() bool { return false }
func (ars ackRanges) MarshalJSONArray(enc *gojay.Encoder) {
	for _, r := range ars {
		enc.Array(ackRange(r))
	}
}

type ackRange wire.AckRange

func (ar ackRange) IsNil() bool { return false }
func (ar ackRange) MarshalJSONArray(enc *gojay.Encoder) {
	enc.Int64(int64(ar.Smallest))
	if ar.Smallest != ar.Largest {
		enc.Int64(int64(ar.Largest))
	}
}

func marshalAckFrame(enc *gojay.Encoder, f *wire.AckFrame) {
	enc.StringKey("frame_type", "ack")
	enc.Float64KeyOmitEmpty("ack_delay", milliseconds(f.DelayTime))
	enc.ArrayKey("acked_ranges", ackRanges(f.AckRanges))
	if hasECN := f.ECT0 > 0 || f.ECT1 > 0 || f.ECNCE > 0; hasECN {
		enc.Uint64Key("ect0", f.ECT0)
		enc.Uint64Key("ect1", f.ECT1)
		enc.Uint64Key("ce", f.ECNCE)
	}
}

func marshalConnectionCloseFrame(enc *gojay.Encoder, f *wire.ConnectionCloseFrame) {
	errorSpace := "transport"
	if f.IsApplicationError {
		errorSpace = "application"
	}
	enc.StringKey("frame_type", "connection_close")
	enc.StringKey("error_space", errorSpace)
	enc.Uint64Key("error_code", f.ErrorCode)
	if !f.IsApplicationError && f.FrameType != 0 {
		enc.Uint64Key("trigger_frame_type", f.FrameType)
	}
	enc.StringKey("reason", f.ReasonPhrase)
}

type token struct {
	Raw []byte
}

var _ gojay.MarshalerJSONObject = &token{}

func (t token) IsNil() bool { return false }
func (t token) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("data", hex.EncodeToString(t.Raw))
}
