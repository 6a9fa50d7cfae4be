package metrics

import (
	"net/netip"
	"time"

	"github.com/quic-go/quicconn/logging"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultConnectionTracer creates a metrics ConnectionTracer using the default Prometheus registerer.
// The ConnectionTracer returned can be set on the Config of a new connection.
func DefaultConnectionTracer(p logging.Perspective) *logging.ConnectionTracer {
	return NewConnectionTracerWithRegisterer(prometheus.DefaultRegisterer, p)
}

// NewClientConnectionTracerWithRegisterer creates a new connection tracer for a client connection
// with a given Prometheus registerer.
func NewClientConnectionTracerWithRegisterer(registerer prometheus.Registerer) *logging.ConnectionTracer {
	return NewConnectionTracerWithRegisterer(registerer, logging.PerspectiveClient)
}

// NewServerConnectionTracerWithRegisterer creates a new connection tracer for a server connection
// with a given Prometheus registerer.
func NewServerConnectionTracerWithRegisterer(registerer prometheus.Registerer) *logging.ConnectionTracer {
	return NewConnectionTracerWithRegisterer(registerer, logging.PerspectiveServer)
}

// NewConnectionTracerWithRegisterer creates a new connection tracer.
// A tracer must only be used for a single connection.
func NewConnectionTracerWithRegisterer(registerer prometheus.Registerer, p logging.Perspective) *logging.ConnectionTracer {
	register(registerer)

	dir := direction(p)
	var (
		startTime         time.Time
		handshakeComplete bool
		// only one path is validated at a time
		validationReason logging.PathValidationReason
	)
	return &logging.ConnectionTracer{
		StartedConnection: func(local, _ netip.AddrPort, _, _ logging.ConnectionID) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			startTime = time.Now()

			*tags = append(*tags, dir, getIPVersion(local))
			connStarted.WithLabelValues(*tags...).Inc()
		},
		ClosedConnection: func(err error) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			*tags = append(*tags, dir, closeReason(err))
			connClosed.WithLabelValues(*tags...).Inc()
			if handshakeComplete {
				connDuration.WithLabelValues(dir).Observe(time.Since(startTime).Seconds())
			}
		},
		UpdatedKeyFromHandshake: func(l logging.EncryptionLevel, p logging.Perspective) {
			// The client installs its 1-RTT write key when the handshake completes.
			// The server installs the client's 1-RTT key when the handshake completes.
			if l != logging.Encryption1RTT || p != logging.PerspectiveClient || handshakeComplete {
				return
			}
			handshakeComplete = true
			connHandshakeDuration.WithLabelValues(dir).Observe(time.Since(startTime).Seconds())
		},
		DroppedPacket: func(pt logging.PacketType, _ logging.PacketNumber, _ logging.ByteCount, reason logging.PacketDropReason) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			*tags = append(*tags, dir, pt.String(), reason.String())
			packetsDropped.WithLabelValues(*tags...).Inc()
		},
		StartedPathValidation: func(_, _ netip.AddrPort, reason logging.PathValidationReason) {
			validationReason = reason
		},
		CompletedPathValidation: func(_, _ netip.AddrPort, success bool) {
			tags := getStringSlice()
			defer putStringSlice(tags)

			result := "failure"
			if success {
				result = "success"
			}
			*tags = append(*tags, dir, validationReason.String(), result)
			pathValidations.WithLabelValues(*tags...).Inc()
		},
		MigratedPath: func(_, _ netip.AddrPort, peerInitiated bool) {
			pathMigrations.WithLabelValues(dir, initiator(peerInitiated)).Inc()
		},
		UpdatedKey: func(_ logging.KeyPhase, remote bool) {
			keyUpdates.WithLabelValues(dir, initiator(remote)).Inc()
		},
		UpdatedMTU: func(mtu logging.ByteCount, done bool) {
			if done {
				pathMTU.WithLabelValues(dir).Observe(float64(mtu))
			}
		},
	}
}
