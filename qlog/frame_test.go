package qlog

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"

	"github.com/francoispqt/gojay"
	"github.com/stretchr/testify/require"
)

func checkFrameEncoding(t *testing.T, f logging.Frame, expected map[string]any) {
	t.Helper()
	buf := &bytes.Buffer{}
	enc := gojay.NewEncoder(buf)
	require.NoError(t, enc.Encode(frame{Frame: f}))
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	require.Equal(t, expected, m)
}

func TestFrameEncoding(t *testing.T) {
	for _, tc := range []struct {
		name     string
		frame    logging.Frame
		expected map[string]any
	}{
		{
			name:     "PING",
			frame:    &wire.PingFrame{},
			expected: map[string]any{"frame_type": "ping"},
		},
		{
			name:  "ACK with ECN counts",
			frame: &wire.AckFrame{AckRanges: []wire.AckRange{{Smallest: 10, Largest: 10}}, DelayTime: 86 * time.Millisecond, ECT0: 10, ECNCE: 1},
			expected: map[string]any{
				"frame_type":   "ack",
				"ack_delay":    float64(86),
				"acked_ranges": []any{[]any{float64(10)}},
				"ect0":         float64(10),
				"ect1":         float64(0),
				"ce":           float64(1),
			},
		},
		{
			name:  "CRYPTO",
			frame: &wire.CryptoFrame{Offset: 1337, Data: make([]byte, 6)},
			expected: map[string]any{
				"frame_type": "crypto",
				"offset":     float64(1337),
				"length":     float64(6),
			},
		},
		{
			name:  "NEW_TOKEN",
			frame: &wire.NewTokenFrame{Token: []byte{0xde, 0xad}},
			expected: map[string]any{
				"frame_type": "new_token",
				"token":      map[string]any{"data": "dead"},
			},
		},
		{
			name: "NEW_CONNECTION_ID",
			frame: &wire.NewConnectionIDFrame{
				SequenceNumber:      42,
				RetirePriorTo:       24,
				ConnectionID:        protocol.ParseConnectionID([]byte{0xde, 0xad, 0xbe, 0xef}),
				StatelessResetToken: protocol.StatelessResetToken{0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7, 0x8, 0x9, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf, 0x0},
			},
			expected: map[string]any{
				"frame_type":            "new_connection_id",
				"sequence_number":       float64(42),
				"retire_prior_to":       float64(24),
				"length":                float64(4),
				"connection_id":         "deadbeef",
				"stateless_reset_token": "0102030405060708090a0b0c0d0e0f00",
			},
		},
		{
			name:  "RETIRE_CONNECTION_ID",
			frame: &wire.RetireConnectionIDFrame{SequenceNumber: 1337},
			expected: map[string]any{
				"frame_type":      "retire_connection_id",
				"sequence_number": float64(1337),
			},
		},
		{
			name:  "PATH_CHALLENGE",
			frame: &wire.PathChallengeFrame{Data: [8]byte{0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xc0, 0x01}},
			expected: map[string]any{
				"frame_type": "path_challenge",
				"data":       "deadbeefcafec001",
			},
		},
		{
			name:  "PATH_RESPONSE",
			frame: &wire.PathResponseFrame{Data: [8]byte{0xde, 0xad, 0xbe, 0xef, 0xca, 0xfe, 0xc0, 0x01}},
			expected: map[string]any{
				"frame_type": "path_response",
				"data":       "deadbeefcafec001",
			},
		},
		{
			name:  "transport CONNECTION_CLOSE",
			frame: &wire.ConnectionCloseFrame{ErrorCode: 0xa, FrameType: 0x1a, ReasonPhrase: "lorem ipsum"},
			expected: map[string]any{
				"frame_type":         "connection_close",
				"error_space":        "transport",
				"error_code":         float64(0xa),
				"trigger_frame_type": float64(0x1a),
				"reason":             "lorem ipsum",
			},
		},
		{
			name:  "application CONNECTION_CLOSE",
			frame: &wire.ConnectionCloseFrame{IsApplicationError: true, ErrorCode: 0x1337, ReasonPhrase: "bye"},
			expected: map[string]any{
				"frame_type":  "connection_close",
				"error_space": "application",
				"error_code":  float64(0x1337),
				"reason":      "bye",
			},
		},
		{
			name:     "HANDSHAKE_DONE",
			frame:    &wire.HandshakeDoneFrame{},
			expected: map[string]any{"frame_type": "handshake_done"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			checkFrameEncoding(t, tc.frame, tc.expected)
		})
	}
}
