package wire

import (
	"encoding/hex"
	"log/slog"
)

// FrameAttr returns a slog attribute describing a frame.
func FrameAttr(f Frame) slog.Attr {
	switch f := f.(type) {
	case *CryptoFrame:
		return slog.Group("crypto", "offset", f.Offset, "len", len(f.Data))
	case *StreamFrame:
		return slog.Group("stream", "id", f.StreamID, "offset", f.Offset, "len", len(f.Data), "fin", f.Fin)
	case *AckFrame:
		return slog.Group("ack",
			"largest", f.LargestAcked(),
			"lowest", f.LowestAcked(),
			"ranges", len(f.AckRanges),
			"delay", f.DelayTime,
		)
	case *NewConnectionIDFrame:
		return slog.Group("new_connection_id",
			"seq", f.SequenceNumber,
			"retire_prior_to", f.RetirePriorTo,
			"connection_id", f.ConnectionID,
		)
	case *RetireConnectionIDFrame:
		return slog.Group("retire_connection_id", "seq", f.SequenceNumber)
	case *PathChallengeFrame:
		return slog.String("path_challenge", hex.EncodeToString(f.Data[:]))
	case *PathResponseFrame:
		return slog.String("path_response", hex.EncodeToString(f.Data[:]))
	case *NewTokenFrame:
		return slog.Int("new_token", len(f.Token))
	case *ConnectionCloseFrame:
		return slog.Group("connection_close",
			"application", f.IsApplicationError,
			"code", f.ErrorCode,
			"reason", f.ReasonPhrase,
		)
	case *PingFrame:
		return slog.Bool("ping", true)
	case *HandshakeDoneFrame:
		return slog.Bool("handshake_done", true)
	default:
		return slog.Any("frame", f)
	}
}
