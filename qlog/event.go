package qlog

import (
	"net/netip"
	"time"

	"github.com/quic-go/quicconn/logging"

	"github.com/francoispqt/gojay"
)

func milliseconds(dur time.Duration) float64 { return float64(dur.Nanoseconds()) / 1e6 }

type eventDetails interface {
	Category() category
	Name() string
	gojay.MarshalerJSONObject
}

type event struct {
	RelativeTime time.Duration
	eventDetails
}

var _ gojay.MarshalerJSONObject = event{}

func (e event) IsNil() bool { return false }
func (e event) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Float64Key("time", milliseconds(e.RelativeTime))
	enc.StringKey("name", e.Category().String()+":"+e.Name())
	enc.ObjectKey("data", e.eventDetails)
}

func marshalAddr(enc *gojay.Encoder, prefix string, addr netip.AddrPort) {
	enc.StringKey(prefix+"_ip", addr.Addr().String())
	enc.IntKey(prefix+"_port", int(addr.Port()))
}

type eventConnectionStarted struct {
	SrcAddr  netip.AddrPort
	DestAddr netip.AddrPort

	SrcConnectionID  logging.ConnectionID
	DestConnectionID logging.ConnectionID
}

var _ eventDetails = &eventConnectionStarted{}

func (e eventConnectionStarted) Category() category { return categoryTransport }
func (e eventConnectionStarted) Name() string       { return "connection_started" }
func (e eventConnectionStarted) IsNil() bool        { return false }

func (e eventConnectionStarted) MarshalJSONObject(enc *gojay.Encoder) {
	if e.SrcAddr.Addr().Unmap().Is4() {
		enc.StringKey("ip_version", "ipv4")
	} else {
		enc.StringKey("ip_version", "ipv6")
	}
	marshalAddr(enc, "src", e.SrcAddr)
	marshalAddr(enc, "dst", e.DestAddr)
	enc.StringKey("src_cid", connectionID(e.SrcConnectionID).String())
	enc.StringKey("dst_cid", connectionID(e.DestConnectionID).String())
}

type eventConnectionClosed struct {
	Reason string
	Owner  string
}

func (e eventConnectionClosed) Category() category { return categoryTransport }
func (e eventConnectionClosed) Name() string       { return "connection_closed" }
func (e eventConnectionClosed) IsNil() bool        { return false }

func (e eventConnectionClosed) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKeyOmitEmpty("owner", e.Owner)
	enc.StringKey("reason", e.Reason)
}

type packetHeader struct {
	PacketType   packetType
	PacketNumber logging.PacketNumber
}

func (h packetHeader) IsNil() bool { return false }
func (h packetHeader) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("packet_type", h.PacketType.String())
	enc.Int64Key("packet_number", int64(h.PacketNumber))
}

type eventPacketSent struct {
	Header packetHeader
	Length logging.ByteCount
	ECN    logging.ECN
	Frames frames
}

var _ eventDetails = eventPacketSent{}

func (e eventPacketSent) Category() category { return categoryTransport }
func (e eventPacketSent) Name() string       { return "packet_sent" }
func (e eventPacketSent) IsNil() bool        { return false }

func (e eventPacketSent) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ObjectKey("header", e.Header)
	enc.ObjectKey("raw", rawInfo{Length: e.Length})
	enc.ArrayKeyOmitEmpty("frames", e.Frames)
	enc.StringKeyOmitEmpty("ecn", ecn(e.ECN).String())
}

type eventPacketReceived struct {
	Header packetHeader
	Length logging.ByteCount
	ECN    logging.ECN
	Frames frames
}

func (e eventPacketReceived) Category() category { return categoryTransport }
func (e eventPacketReceived) Name() string       { return "packet_received" }
func (e eventPacketReceived) IsNil() bool        { return false }

func (e eventPacketReceived) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ObjectKey("header", e.Header)
	enc.ObjectKey("raw", rawInfo{Length: e.Length})
	enc.ArrayKeyOmitEmpty("frames", e.Frames)
	enc.StringKeyOmitEmpty("ecn", ecn(e.ECN).String())
}

type rawInfo struct {
	Length logging.ByteCount
}

func (i rawInfo) IsNil() bool { return false }
func (i rawInfo) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("length", uint64(i.Length))
}

type eventPacketBuffered struct {
	PacketType packetType
	Length     logging.ByteCount
}

func (e eventPacketBuffered) Category() category { return categoryTransport }
func (e eventPacketBuffered) Name() string       { return "packet_buffered" }
func (e eventPacketBuffered) IsNil() bool        { return false }

func (e eventPacketBuffered) MarshalJSONObject(enc *gojay.Encoder) {
	enc.ObjectKey("header", packetHeaderWithType{PacketType: e.PacketType})
	enc.ObjectKey("raw", rawInfo{Length: e.Length})
	enc.StringKey("trigger", "keys_unavailable")
}

type packetHeaderWithType struct {
	PacketType packetType
}

func (h packetHeaderWithType) IsNil() bool { return false }
func (h packetHeaderWithType) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("packet_type", h.PacketType.String())
}

type eventPacketDropped struct {
	PacketType   packetType
	PacketNumber logging.PacketNumber
	Length       logging.ByteCount
	Trigger      logging.PacketDropReason
}

func (e eventPacketDropped) Category() category { return categoryTransport }
func (e eventPacketDropped) Name() string       { return "packet_dropped" }
func (e eventPacketDropped) IsNil() bool        { return false }

func (e eventPacketDropped) MarshalJSONObject(enc *gojay.Encoder) {
	if e.PacketNumber >= 0 {
		enc.ObjectKey("header", packetHeader{PacketType: e.PacketType, PacketNumber: e.PacketNumber})
	} else {
		enc.ObjectKey("header", packetHeaderWithType{PacketType: e.PacketType})
	}
	enc.ObjectKey("raw", rawInfo{Length: e.Length})
	enc.StringKey("trigger", e.Trigger.String())
}

type eventMetricsUpdated struct {
	MinRTT      time.Duration
	SmoothedRTT time.Duration
	LatestRTT   time.Duration
	RTTVariance time.Duration

	CongestionWindow logging.ByteCount
	BytesInFlight    logging.ByteCount
}

func (e eventMetricsUpdated) Category() category { return categoryRecovery }
func (e eventMetricsUpdated) Name() string       { return "metrics_updated" }
func (e eventMetricsUpdated) IsNil() bool        { return false }

func (e eventMetricsUpdated) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Float64Key("min_rtt", milliseconds(e.MinRTT))
	enc.Float64Key("smoothed_rtt", milliseconds(e.SmoothedRTT))
	enc.Float64Key("latest_rtt", milliseconds(e.LatestRTT))
	enc.Float64Key("rtt_variance", milliseconds(e.RTTVariance))

	enc.Uint64Key("congestion_window", uint64(e.CongestionWindow))
	enc.Uint64Key("bytes_in_flight", uint64(e.BytesInFlight))
}

type eventKeyUpdated struct {
	Trigger    keyUpdateTrigger
	KeyType    keyType
	Generation logging.KeyPhase
	// we don't log the keys here, so we don't need `old` and `new`.
}

func (e eventKeyUpdated) Category() category { return categorySecurity }
func (e eventKeyUpdated) Name() string       { return "key_updated" }
func (e eventKeyUpdated) IsNil() bool        { return false }

func (e eventKeyUpdated) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("trigger", e.Trigger.String())
	enc.StringKey("key_type", e.KeyType.String())
	if e.KeyType == keyTypeClient1RTT || e.KeyType == keyTypeServer1RTT {
		enc.Uint64Key("generation", uint64(e.Generation))
	}
}

type eventKeyDiscarded struct {
	KeyType    keyType
	Generation logging.KeyPhase
}

func (e eventKeyDiscarded) Category() category { return categorySecurity }
func (e eventKeyDiscarded) Name() string       { return "key_discarded" }
func (e eventKeyDiscarded) IsNil() bool        { return false }

func (e eventKeyDiscarded) MarshalJSONObject(enc *gojay.Encoder) {
	if e.KeyType != keyTypeClient1RTT && e.KeyType != keyTypeServer1RTT {
		enc.StringKey("trigger", "tls")
	}
	enc.StringKey("key_type", e.KeyType.String())
	if e.KeyType == keyTypeClient1RTT || e.KeyType == keyTypeServer1RTT {
		enc.Uint64Key("generation", uint64(e.Generation))
	}
}

type eventPathValidation struct {
	Local   netip.AddrPort
	Remote  netip.AddrPort
	Reason  logging.PathValidationReason
	Done    bool
	Success bool
}

func (e eventPathValidation) Category() category { return categoryConnectivity }
func (e eventPathValidation) Name() string {
	if e.Done {
		return "path_validation_completed"
	}
	return "path_validation_started"
}
func (e eventPathValidation) IsNil() bool { return false }

func (e eventPathValidation) MarshalJSONObject(enc *gojay.Encoder) {
	marshalAddr(enc, "local", e.Local)
	marshalAddr(enc, "remote", e.Remote)
	if e.Done {
		enc.BoolKey("success", e.Success)
	} else {
		enc.StringKey("reason", e.Reason.String())
	}
}

type eventPathMigrated struct {
	From          netip.AddrPort
	To            netip.AddrPort
	PeerInitiated bool
}

func (e eventPathMigrated) Category() category { return categoryConnectivity }
func (e eventPathMigrated) Name() string       { return "connection_migrated" }
func (e eventPathMigrated) IsNil() bool        { return false }

func (e eventPathMigrated) MarshalJSONObject(enc *gojay.Encoder) {
	marshalAddr(enc, "old", e.From)
	marshalAddr(enc, "new", e.To)
	if e.PeerInitiated {
		enc.StringKey("owner", "remote")
	} else {
		enc.StringKey("owner", "local")
	}
}

type eventMTUUpdated struct {
	MTU  logging.ByteCount
	Done bool
}

func (e eventMTUUpdated) Category() category { return categoryConnectivity }
func (e eventMTUUpdated) Name() string       { return "mtu_updated" }
func (e eventMTUUpdated) IsNil() bool        { return false }

func (e eventMTUUpdated) MarshalJSONObject(enc *gojay.Encoder) {
	enc.Uint64Key("mtu", uint64(e.MTU))
	enc.BoolKey("done", e.Done)
}

type eventECNStateUpdated struct {
	State logging.ECNState
}

func (e eventECNStateUpdated) Category() category { return categoryRecovery }
func (e eventECNStateUpdated) Name() string       { return "ecn_state_updated" }
func (e eventECNStateUpdated) IsNil() bool        { return false }

func (e eventECNStateUpdated) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("new", ecnState(e.State).String())
}

type eventGeneric struct {
	name string
	msg  string
}

func (e eventGeneric) Category() category { return categoryTransport }
func (e eventGeneric) Name() string       { return e.name }
func (e eventGeneric) IsNil() bool        { return false }

func (e eventGeneric) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("details", e.msg)
}
