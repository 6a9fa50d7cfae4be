package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"github.com/quic-go/quicconn"
	"github.com/quic-go/quicconn/logging"
	"github.com/quic-go/quicconn/metrics"
	"github.com/quic-go/quicconn/qlog"
	"github.com/quic-go/quicconn/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const (
	// the server issues new connection IDs after the handshake
	migrationAttempts     = 50
	migrationRetryBackoff = 20 * time.Millisecond
)

// simEvents forwards the connection events to the goroutine driving the simulation.
type simEvents struct {
	logger  *slog.Logger
	streams chan []byte
}

func newSimEvents(logger *slog.Logger) *simEvents {
	return &simEvents{logger: logger, streams: make(chan []byte, 16)}
}

func (e *simEvents) OnHandshakeComplete() { e.logger.Info("handshake complete") }

func (e *simEvents) OnStreamFrame(streamID uint64, offset quicconn.ByteCount, data []byte, fin bool) {
	e.logger.Debug("received stream data", "stream_id", streamID, "offset", offset, "len", len(data), "fin", fin)
	select {
	case e.streams <- data:
	default:
	}
}

func (e *simEvents) OnNewToken(token []byte) {
	e.logger.Debug("received address token", "len", len(token))
}

func (e *simEvents) OnConnectionMigration(from, to netip.AddrPort) {
	e.logger.Info("connection migrated", "from", from, "to", to)
}

func (e *simEvents) OnConnectionClosed(err error) {
	e.logger.Info("connection closed", "error", err)
}

// newTracer creates the tracer for each connection: Prometheus metrics, and qlog if dir is set.
func newTracer(reg prometheus.Registerer, dir string, logger *slog.Logger) func(context.Context, quicconn.Perspective, quicconn.ConnectionID) *logging.ConnectionTracer {
	return func(_ context.Context, p quicconn.Perspective, connID quicconn.ConnectionID) *logging.ConnectionTracer {
		tracers := []*logging.ConnectionTracer{metrics.NewConnectionTracerWithRegisterer(reg, p)}
		if dir != "" {
			t, err := qlog.NewDirConnectionTracer(dir, p, connID)
			if err != nil {
				logger.Warn("creating qlog tracer failed", "error", err)
			} else {
				tracers = append(tracers, t)
			}
		}
		return logging.NewMultiplexedConnectionTracer(tracers...)
	}
}

// run runs a client and a server connection over UDP.
// The client sends a message, migrates to a new socket, sends the message again and closes the connection.
func run(ctx context.Context, cfg *Config, logger *slog.Logger, out io.Writer) error {
	reg := prometheus.NewRegistry()
	tracer := newTracer(reg, cfg.Qlog.Dir, logger)

	g, ctx := errgroup.WithContext(ctx)
	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		ln, err := net.Listen("tcp", cfg.Metrics.Addr)
		if err != nil {
			return fmt.Errorf("metrics listener: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		fmt.Fprintf(out, "metrics: http://%s%s\n", ln.Addr(), cfg.Metrics.Path)
		g.Go(func() error {
			if err := metricsServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		if metricsServer != nil {
			defer metricsServer.Close()
		}
		return simulate(ctx, cfg, tracer, logger, out)
	})
	return g.Wait()
}

func simulate(
	ctx context.Context,
	cfg *Config,
	tracer func(context.Context, quicconn.Perspective, quicconn.ConnectionID) *logging.ConnectionTracer,
	logger *slog.Logger,
	out io.Writer,
) error {
	serverSocket, err := transport.Listen(netip.MustParseAddrPort(cfg.Server.Addr), logger)
	if err != nil {
		return fmt.Errorf("server socket: %w", err)
	}
	clientSocket, err := transport.Listen(netip.MustParseAddrPort(cfg.Client.Addr), logger)
	if err != nil {
		serverSocket.Close()
		return fmt.Errorf("client socket: %w", err)
	}

	serverConf := cfg.QuicConfig()
	serverConf.Tracer = tracer
	serverConf.Logger = logger.With("perspective", quicconn.PerspectiveServer)
	serverEvents := newSimEvents(serverConf.Logger)
	server := transport.NewServerEndpoint(serverConf, serverSocket, serverEvents)

	clientConf := cfg.QuicConfig()
	clientConf.Tracer = tracer
	clientConf.Logger = logger.With("perspective", quicconn.PerspectiveClient)
	client, err := transport.NewClientEndpoint(clientConf, clientSocket, serverSocket.LocalAddr(), newSimEvents(clientConf.Logger))
	if err != nil {
		serverSocket.Close()
		clientSocket.Close()
		return fmt.Errorf("client connection: %w", err)
	}
	fmt.Fprintf(out, "server listening on %s, client on %s\n", serverSocket.LocalAddr(), clientSocket.LocalAddr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return client.Run(ctx) })
	// an error cancels ctx, which closes both connections
	g.Go(func() error { return drive(ctx, cfg, client, serverEvents, logger, out) })
	if err := g.Wait(); err != nil {
		return err
	}

	stats := client.Connection().Stats()
	fmt.Fprintf(out, "client: sent %d packets (%d bytes), received %d packets, smoothed RTT %s, %d migration(s)\n",
		stats.PacketsSent, stats.BytesSent, stats.PacketsReceived, stats.SmoothedRTT, stats.Migrations)
	if conn := server.Connection(); conn != nil {
		stats := conn.Stats()
		fmt.Fprintf(out, "server: sent %d packets (%d bytes), received %d packets, %d path validation(s)\n",
			stats.PacketsSent, stats.BytesSent, stats.PacketsReceived, stats.PathValidations)
	}
	return nil
}

// drive waits for the handshake, sends the message on both paths, and closes the connection.
func drive(ctx context.Context, cfg *Config, client *transport.Endpoint, serverEvents *simEvents, logger *slog.Logger, out io.Writer) error {
	start := time.Now()
	select {
	case <-client.HandshakeConfirmed():
	case <-client.Done():
		return errors.New("connection closed before the handshake was confirmed")
	case <-ctx.Done():
		return ctx.Err()
	}
	fmt.Fprintf(out, "handshake confirmed after %s\n", time.Since(start).Round(time.Microsecond))

	var offset quicconn.ByteCount
	send := func() error {
		var sendErr error
		if err := client.Do(ctx, func(c *quicconn.Connection) {
			sendErr = c.SendStreamData(0, offset, []byte(cfg.Message), false)
		}); err != nil {
			return err
		}
		if sendErr != nil {
			return sendErr
		}
		offset += quicconn.ByteCount(len(cfg.Message))
		select {
		case data := <-serverEvents.streams:
			fmt.Fprintf(out, "server received %q\n", data)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := send(); err != nil {
		return err
	}

	if cfg.Client.Migrate {
		socket, err := transport.Listen(netip.MustParseAddrPort(cfg.Client.MigrateAddr), logger)
		if err != nil {
			return fmt.Errorf("migration socket: %w", err)
		}
		if err := migrate(ctx, client, socket, logger); err != nil {
			return err
		}
		fmt.Fprintf(out, "client migrated to %s\n", socket.LocalAddr())
		if err := send(); err != nil {
			return err
		}
	}

	return client.Close(ctx, quicconn.ErrNoError, "simulation done")
}

func migrate(ctx context.Context, client *transport.Endpoint, socket *transport.Conn, logger *slog.Logger) error {
	for i := range migrationAttempts {
		err := client.Migrate(ctx, socket)
		if err == nil {
			return nil
		}
		if !errors.Is(err, transport.ErrMigrationFailed) {
			socket.Close()
			return err
		}
		logger.Debug("migration failed, retrying", "attempt", i+1)
		select {
		case <-time.After(migrationRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return transport.ErrMigrationFailed
}
