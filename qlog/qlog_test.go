package qlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quic-go/quicconn/internal/protocol"
	"github.com/quic-go/quicconn/internal/qerr"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"

	"github.com/stretchr/testify/require"
)

type limitedWriter struct {
	bytes.Buffer
	closed bool
}

func (w *limitedWriter) Close() error {
	w.closed = true
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }
func (failingWriter) Close() error              { return nil }

type entry struct {
	Time  float64
	Name  string
	Event map[string]any
}

func parseRecords(t *testing.T, data []byte) (map[string]any, []entry) {
	t.Helper()
	records := bytes.Split(data, []byte{recordSeparator})
	require.Empty(t, records[0])
	records = records[1:]
	require.NotEmpty(t, records)

	var header map[string]any
	require.NoError(t, json.Unmarshal(records[0], &header))
	var entries []entry
	for _, r := range records[1:] {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(r, &ev))
		require.Len(t, ev, 3)
		require.Contains(t, ev, "time")
		entries = append(entries, entry{
			Time:  ev["time"].(float64),
			Name:  ev["name"].(string),
			Event: ev["data"].(map[string]any),
		})
	}
	return header, entries
}

func newTestTracer(t *testing.T) (*logging.ConnectionTracer, *limitedWriter) {
	t.Helper()
	buf := &limitedWriter{}
	odcid := protocol.ParseConnectionID([]byte{0xde, 0xad, 0xbe, 0xef})
	return NewConnectionTracer(buf, logging.PerspectiveServer, odcid), buf
}

func TestQlogHeader(t *testing.T) {
	tracer, buf := newTestTracer(t)
	tracer.Close()
	require.True(t, buf.closed)

	header, entries := parseRecords(t, buf.Bytes())
	require.Empty(t, entries)
	require.Equal(t, "JSON-SEQ", header["qlog_format"])
	require.Equal(t, "0.3", header["qlog_version"])
	tr := header["trace"].(map[string]any)
	require.Equal(t, map[string]any{"type": "server"}, tr["vantage_point"])
	commonFields := tr["common_fields"].(map[string]any)
	require.Equal(t, "deadbeef", commonFields["ODCID"])
	require.Equal(t, "deadbeef", commonFields["group_id"])
	require.Equal(t, "relative", commonFields["time_format"])
	refTime := time.UnixMilli(int64(commonFields["reference_time"].(float64)))
	require.WithinDuration(t, time.Now(), refTime, 10*time.Second)
}

func TestQlogConnectionEvents(t *testing.T) {
	tracer, buf := newTestTracer(t)
	local := netip.MustParseAddrPort("192.0.2.1:443")
	remote := netip.MustParseAddrPort("198.51.100.1:1234")
	tracer.StartedConnection(local, remote, protocol.ParseConnectionID([]byte{1, 2, 3, 4}), protocol.ParseConnectionID([]byte{5, 6, 7, 8}))
	tracer.ClosedConnection(&qerr.ConnectionError{Code: qerr.ErrNetworkIdleTimeout, Details: "no recent network activity", Source: qerr.CloseSourceSelf})
	tracer.Close()

	_, entries := parseRecords(t, buf.Bytes())
	require.Len(t, entries, 2)
	require.Equal(t, "transport:connection_started", entries[0].Name)
	ev := entries[0].Event
	require.Equal(t, "ipv4", ev["ip_version"])
	require.Equal(t, "192.0.2.1", ev["src_ip"])
	require.Equal(t, float64(443), ev["src_port"])
	require.Equal(t, "198.51.100.1", ev["dst_ip"])
	require.Equal(t, float64(1234), ev["dst_port"])
	require.Equal(t, "01020304", ev["src_cid"])
	require.Equal(t, "05060708", ev["dst_cid"])

	require.Equal(t, "transport:connection_closed", entries[1].Name)
	require.Equal(t, "local", entries[1].Event["owner"])
	require.Contains(t, entries[1].Event["reason"], "no recent network activity")
}

func TestQlogPacketEvents(t *testing.T) {
	tracer, buf := newTestTracer(t)
	tracer.SentPacket(logging.Encryption1RTT, 42, 1234, logging.ECT0, []logging.Frame{
		&wire.AckFrame{AckRanges: []wire.AckRange{{Smallest: 3, Largest: 7}, {Smallest: 1, Largest: 1}}},
		&wire.StreamFrame{StreamID: 4, Offset: 100, Data: []byte("foobar"), Fin: true},
	})
	tracer.ReceivedPacket(logging.EncryptionInitial, 0, 1200, logging.ECTNot, []logging.Frame{
		&wire.CryptoFrame{Offset: 10, Data: []byte("hello")},
	})
	tracer.BufferedPacket(logging.PacketTypeHandshake, 100)
	tracer.DroppedPacket(logging.PacketType1RTT, 3, 50, logging.PacketDropDuplicate)
	tracer.Close()

	_, entries := parseRecords(t, buf.Bytes())
	require.Len(t, entries, 4)

	require.Equal(t, "transport:packet_sent", entries[0].Name)
	sent := entries[0].Event
	require.Equal(t, map[string]any{"packet_type": "1RTT", "packet_number": float64(42)}, sent["header"])
	require.Equal(t, map[string]any{"length": float64(1234)}, sent["raw"])
	require.Equal(t, "ECT(0)", sent["ecn"])
	frames := sent["frames"].([]any)
	require.Len(t, frames, 2)
	ack := frames[0].(map[string]any)
	require.Equal(t, "ack", ack["frame_type"])
	require.Equal(t, []any{[]any{float64(3), float64(7)}, []any{float64(1)}}, ack["acked_ranges"])
	stream := frames[1].(map[string]any)
	require.Equal(t, "stream", stream["frame_type"])
	require.Equal(t, float64(6), stream["length"])
	require.Equal(t, true, stream["fin"])

	require.Equal(t, "transport:packet_received", entries[1].Name)
	received := entries[1].Event
	require.Equal(t, "initial", received["header"].(map[string]any)["packet_type"])
	require.Equal(t, "Not-ECT", received["ecn"])

	require.Equal(t, "transport:packet_buffered", entries[2].Name)
	require.Equal(t, "keys_unavailable", entries[2].Event["trigger"])

	require.Equal(t, "transport:packet_dropped", entries[3].Name)
	require.Equal(t, "duplicate", entries[3].Event["trigger"])
	require.Equal(t, float64(3), entries[3].Event["header"].(map[string]any)["packet_number"])
}

func TestQlogPathEvents(t *testing.T) {
	tracer, buf := newTestTracer(t)
	local := netip.MustParseAddrPort("192.0.2.1:443")
	remote := netip.MustParseAddrPort("198.51.100.1:1234")
	newRemote := netip.MustParseAddrPort("198.51.100.2:1234")
	tracer.StartedPathValidation(local, newRemote, logging.PathValidationReasonReversePath)
	tracer.CompletedPathValidation(local, newRemote, true)
	tracer.MigratedPath(remote, newRemote, true)
	tracer.UpdatedMTU(1400, true)
	tracer.ECNStateUpdated(logging.ECNStateCapable)
	tracer.Close()

	_, entries := parseRecords(t, buf.Bytes())
	require.Len(t, entries, 5)
	require.Equal(t, "connectivity:path_validation_started", entries[0].Name)
	require.Equal(t, "reverse_path", entries[0].Event["reason"])
	require.Equal(t, "198.51.100.2", entries[0].Event["remote_ip"])
	require.Equal(t, "connectivity:path_validation_completed", entries[1].Name)
	require.Equal(t, true, entries[1].Event["success"])
	require.Equal(t, "connectivity:connection_migrated", entries[2].Name)
	require.Equal(t, "remote", entries[2].Event["owner"])
	require.Equal(t, "198.51.100.1", entries[2].Event["old_ip"])
	require.Equal(t, "198.51.100.2", entries[2].Event["new_ip"])
	require.Equal(t, "connectivity:mtu_updated", entries[3].Name)
	require.Equal(t, float64(1400), entries[3].Event["mtu"])
	require.Equal(t, "recovery:ecn_state_updated", entries[4].Name)
	require.Equal(t, "capable", entries[4].Event["new"])
}

func TestQlogKeyEvents(t *testing.T) {
	tracer, buf := newTestTracer(t)
	tracer.UpdatedKeyFromHandshake(logging.EncryptionHandshake, logging.PerspectiveClient)
	tracer.UpdatedKey(1, true)
	tracer.DroppedEncryptionLevel(logging.EncryptionInitial)
	tracer.DroppedKey(0)
	tracer.Close()

	_, entries := parseRecords(t, buf.Bytes())
	require.Len(t, entries, 7)
	require.Equal(t, "security:key_updated", entries[0].Name)
	require.Equal(t, "handshake", entries[0].Event["trigger"])
	require.Equal(t, "client_handshake_secret", entries[0].Event["key_type"])
	require.NotContains(t, entries[0].Event, "generation")

	for _, e := range entries[1:3] {
		require.Equal(t, "security:key_updated", e.Name)
		require.Equal(t, "remote_update", e.Event["trigger"])
		require.Equal(t, float64(1), e.Event["generation"])
	}
	require.Equal(t, "security:key_discarded", entries[3].Name)
	require.Equal(t, "server_initial_secret", entries[3].Event["key_type"])
	require.Equal(t, "client_initial_secret", entries[4].Event["key_type"])
	require.Equal(t, "server_1rtt_secret", entries[5].Event["key_type"])
	require.Equal(t, float64(0), entries[5].Event["generation"])
}

func TestQlogMetricsUpdatedOnlyOnChange(t *testing.T) {
	tracer, buf := newTestTracer(t)
	rttStats := utils.NewRTTStats()
	rttStats.UpdateRTT(20*time.Millisecond, 0)
	tracer.UpdatedMetrics(rttStats, 12000, 3000)
	tracer.UpdatedMetrics(rttStats, 12000, 3000)
	tracer.UpdatedMetrics(rttStats, 12000, 4000)
	tracer.Close()

	_, entries := parseRecords(t, buf.Bytes())
	require.Len(t, entries, 2)
	require.Equal(t, "recovery:metrics_updated", entries[0].Name)
	require.Equal(t, float64(20), entries[0].Event["latest_rtt"])
	require.Equal(t, float64(3000), entries[0].Event["bytes_in_flight"])
	require.Equal(t, float64(4000), entries[1].Event["bytes_in_flight"])
}

func TestQlogEventTimes(t *testing.T) {
	tracer, buf := newTestTracer(t)
	tracer.Debug("foo", "bar")
	time.Sleep(5 * time.Millisecond)
	tracer.Debug("foo", "baz")
	tracer.Close()

	_, entries := parseRecords(t, buf.Bytes())
	require.Len(t, entries, 2)
	require.Equal(t, "transport:foo", entries[0].Name)
	require.Equal(t, "bar", entries[0].Event["details"])
	require.GreaterOrEqual(t, entries[1].Time-entries[0].Time, float64(5))
}

func TestQlogWriteError(t *testing.T) {
	tracer := NewConnectionTracer(failingWriter{}, logging.PerspectiveClient, protocol.ParseConnectionID([]byte{1}))
	// events are drained even though writing fails
	for range 2 * eventChanSize {
		tracer.Debug("foo", "bar")
	}
	tracer.Close()
}

func TestQlogDirTracer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "qlogs")
	t.Setenv(DirEnv, dir)
	connID := protocol.ParseConnectionID([]byte{0xca, 0xfe})
	tracer, err := DefaultConnectionTracer(logging.PerspectiveClient, connID)
	require.NoError(t, err)
	require.NotNil(t, tracer)
	tracer.Debug("foo", "bar")
	tracer.Close()

	data, err := os.ReadFile(filepath.Join(dir, "cafe_client.sqlog"))
	require.NoError(t, err)
	_, entries := parseRecords(t, data)
	require.Len(t, entries, 1)
}

func TestQlogDirNotSet(t *testing.T) {
	t.Setenv(DirEnv, "")
	tracer, err := DefaultConnectionTracer(logging.PerspectiveServer, protocol.ParseConnectionID([]byte{1}))
	require.NoError(t, err)
	require.Nil(t, tracer)
}
