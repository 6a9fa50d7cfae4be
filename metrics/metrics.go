// Package metrics exports connection events as Prometheus metrics.
package metrics

import (
	"errors"
	"net/netip"

	"github.com/prometheus/client_golang/prometheus"
)

const metricNamespace = "quicconn"

func getIPVersion(addr netip.AddrPort) string {
	if !addr.IsValid() {
		return ""
	}
	if addr.Addr().Unmap().Is4() {
		return "ipv4"
	}
	return "ipv6"
}

var (
	connStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "connections_started_total",
			Help:      "Connections Started",
		},
		[]string{"dir", "ip_version"},
	)
	connClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "connections_closed_total",
			Help:      "Connections Closed",
		},
		[]string{"dir", "reason"},
	)
	connDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "connection_duration_seconds",
			Help:      "Duration of a Connection",
			Buckets:   prometheus.ExponentialBuckets(1.0/16, 2, 25), // up to 24 days
		},
		[]string{"dir"},
	)
	connHandshakeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "handshake_duration_seconds",
			Help:      "Duration of the Handshake",
			Buckets:   prometheus.ExponentialBuckets(0.001, 1.3, 35),
		},
		[]string{"dir"},
	)
	packetsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "received_packets_dropped_total",
			Help:      "Packets dropped",
		},
		[]string{"dir", "packet_type", "reason"},
	)
	pathValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "path_validations_total",
			Help:      "Path validations, by reason and result",
		},
		[]string{"dir", "reason", "result"},
	)
	pathMigrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "path_migrations_total",
			Help:      "Migrations of the default path",
		},
		[]string{"dir", "initiator"},
	)
	keyUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "key_updates_total",
			Help:      "1-RTT key updates",
		},
		[]string{"dir", "initiator"},
	)
	pathMTU = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "path_mtu_bytes",
			Help:      "Path MTU when discovery finished",
			Buckets:   prometheus.LinearBuckets(1200, 50, 10),
		},
		[]string{"dir"},
	)
)

func register(registerer prometheus.Registerer) {
	for _, c := range [...]prometheus.Collector{
		connStarted,
		connClosed,
		connDuration,
		connHandshakeDuration,
		packetsDropped,
		pathValidations,
		pathMigrations,
		keyUpdates,
		pathMTU,
	} {
		if err := registerer.Register(c); err != nil {
			if ok := errors.As(err, &prometheus.AlreadyRegisteredError{}); !ok {
				panic(err)
			}
		}
	}
}
