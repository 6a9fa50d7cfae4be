package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"slices"
	"time"

	"github.com/quic-go/quicconn"
	"github.com/quic-go/quicconn/internal/logutils"
	"github.com/quic-go/quicconn/internal/monotime"
	"github.com/quic-go/quicconn/internal/utils"
	"github.com/quic-go/quicconn/internal/wire"
	"github.com/quic-go/quicconn/logging"

	"golang.org/x/sync/errgroup"
)

// ErrEndpointClosed is returned by Do when the event loop has stopped.
var ErrEndpointClosed = errors.New("endpoint closed")

// ErrMigrationFailed is returned by Migrate if the connection could not be moved to the new path.
var ErrMigrationFailed = errors.New("migration failed")

// the time after which a blocked write is retried
const writeRetryInterval = time.Millisecond

// An Endpoint runs a single connection.
// All calls into the connection happen on the event loop goroutine started by Run.
type Endpoint struct {
	config      *quicconn.Config
	perspective quicconn.Perspective
	peer        netip.AddrPort
	logger      *slog.Logger

	conn   *quicconn.Connection
	events *endpointEvents

	sockets []*Conn
	packets chan *ReceivedPacket
	ops     chan func()
	// deferred is run after the current event is handled
	deferred []func()

	group  *errgroup.Group
	runCtx context.Context

	handshakeConfirmed chan struct{}
	done               chan struct{}
}

// NewClientEndpoint creates the client connection to peer.
// The handshake starts when Run is called.
func NewClientEndpoint(config *quicconn.Config, socket *Conn, peer netip.AddrPort, events quicconn.ConnectionEvents) (*Endpoint, error) {
	e := newEndpoint(config, quicconn.PerspectiveClient, socket, events)
	e.peer = peer
	conn, err := quicconn.NewClientConnection(config, socket.LocalAddr(), peer, socket, e.events)
	if err != nil {
		return nil, err
	}
	e.conn = conn
	return e, nil
}

// NewServerEndpoint creates an endpoint that accepts one connection.
// The connection is created when the first Initial packet arrives.
func NewServerEndpoint(config *quicconn.Config, socket *Conn, events quicconn.ConnectionEvents) *Endpoint {
	return newEndpoint(config, quicconn.PerspectiveServer, socket, events)
}

func newEndpoint(config *quicconn.Config, pers quicconn.Perspective, socket *Conn, events quicconn.ConnectionEvents) *Endpoint {
	var logger *slog.Logger
	if config != nil {
		logger = config.Logger
	}
	if logger == nil {
		logger = logutils.DefaultLogger()
	}
	if events == nil {
		events = noopEvents{}
	}
	return &Endpoint{
		config:             config,
		perspective:        pers,
		logger:             logutils.Component(logger, logutils.ComponentTransport).With("perspective", pers),
		events:             newEndpointEvents(events),
		sockets:            []*Conn{socket},
		packets:            make(chan *ReceivedPacket, 64),
		ops:                make(chan func()),
		handshakeConfirmed: make(chan struct{}),
		done:               make(chan struct{}),
	}
}

// Run runs the event loop until the connection is closed or ctx is cancelled.
// When ctx is cancelled, the connection is closed with a CONNECTION_CLOSE frame.
// All sockets are closed when Run returns.
func (e *Endpoint) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	e.group = g
	e.runCtx = ctx
	for _, s := range e.sockets {
		e.startReader(s)
	}
	g.Go(func() error {
		defer close(e.done)
		defer e.closeSockets()
		return e.loop(ctx)
	})
	return g.Wait()
}

func (e *Endpoint) startReader(s *Conn) {
	e.group.Go(func() error {
		for {
			p, err := s.ReadPacket()
			if err != nil {
				if isClosed(err) {
					return nil
				}
				return err
			}
			select {
			case e.packets <- p:
			case <-e.runCtx.Done():
				return nil
			case <-e.done:
				return nil
			}
		}
	})
}

func (e *Endpoint) closeSockets() {
	for _, s := range e.sockets {
		if err := s.Close(); err != nil {
			e.logger.Debug("closing socket failed", "local", s.LocalAddr(), "error", err)
		}
	}
}

func (e *Endpoint) loop(ctx context.Context) error {
	timer := utils.NewTimer()
	defer timer.Stop()
	var writeRetry <-chan time.Time

	if e.conn != nil && !e.conn.Connect() {
		return e.closeError()
	}
	for {
		select {
		case <-ctx.Done():
			if e.conn != nil && e.conn.Connected() {
				e.conn.Close(quicconn.ErrPeerGoingAway, "endpoint shut down", quicconn.SendConnectionClosePacket)
			}
			return ctx.Err()
		case p := <-e.packets:
			e.handlePacket(p)
		case <-timer.Chan():
			timer.SetRead()
			if e.conn != nil {
				e.conn.OnAlarm(monotime.Now())
			}
		case <-writeRetry:
			writeRetry = nil
			for _, s := range e.sockets {
				s.SetWritable()
			}
			if e.conn != nil {
				e.conn.OnCanWrite()
			}
		case op := <-e.ops:
			op()
		}
		for len(e.deferred) > 0 {
			fn := e.deferred[0]
			e.deferred = e.deferred[1:]
			fn()
		}

		if e.conn == nil {
			continue
		}
		if e.events.isClosed() {
			return e.closeError()
		}
		if e.conn.IsHandshakeConfirmed() {
			select {
			case <-e.handshakeConfirmed:
			default:
				close(e.handshakeConfirmed)
			}
		}
		if writeRetry == nil && e.isWriteBlocked() {
			writeRetry = time.After(writeRetryInterval)
		}
		timer.Reset(e.conn.NextAlarm())
	}
}

func (e *Endpoint) handlePacket(p *ReceivedPacket) {
	if e.conn == nil {
		if !e.acceptConnection(p) {
			return
		}
	}
	e.conn.ProcessPacket(p.Self, p.Peer, p.Data, p.ECN)
}

// acceptConnection creates the server connection for the first Initial packet.
func (e *Endpoint) acceptConnection(p *ReceivedPacket) bool {
	if len(p.Data) == 0 || !wire.IsLongHeaderPacket(p.Data[0]) {
		e.logger.Debug("dropping packet for unknown connection", "peer", p.Peer, "size", len(p.Data))
		return false
	}
	if len(p.Data) < 1200 {
		e.logger.Debug("dropping too small Initial packet", "peer", p.Peer, "size", len(p.Data))
		return false
	}
	destConnID, err := wire.ParseConnectionID(p.Data, 0)
	if err != nil {
		e.logger.Debug("parsing connection ID failed", "peer", p.Peer, "error", err)
		return false
	}
	conn, err := quicconn.NewServerConnection(e.config, destConnID, p.Self, p.Peer, e.socketFor(p.Self), e.events)
	if err != nil {
		e.logger.Debug("creating connection failed", "peer", p.Peer, "error", err)
		return false
	}
	e.logger.Debug("accepted connection", "peer", p.Peer, "orig_dest_conn_id", destConnID)
	e.conn = conn
	e.peer = p.Peer
	return true
}

func (e *Endpoint) socketFor(self netip.AddrPort) *Conn {
	for _, s := range e.sockets {
		if s.LocalAddr() == self {
			return s
		}
	}
	return e.sockets[0]
}

func (e *Endpoint) isWriteBlocked() bool {
	for _, s := range e.sockets {
		if s.IsWriteBlocked() {
			return true
		}
	}
	return false
}

func (e *Endpoint) closeError() error {
	if err := e.events.closeErr; err != nil {
		var connErr *quicconn.ConnectionError
		if errors.As(err, &connErr) && (connErr.Code == quicconn.ErrNoError || connErr.Code == quicconn.ErrPeerGoingAway) {
			return nil
		}
		return err
	}
	return nil
}

// Do runs fn on the event loop goroutine, and waits for it to return.
// The connection passed to fn is nil on a server endpoint that hasn't accepted a connection yet.
func (e *Endpoint) Do(ctx context.Context, fn func(*quicconn.Connection)) error {
	done := make(chan struct{})
	op := func() {
		defer close(done)
		fn(e.conn)
	}
	select {
	case e.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEndpointClosed
	}
	select {
	case <-done:
		return nil
	case <-e.done:
		return ErrEndpointClosed
	}
}

// Migrate moves the client connection to socket.
// The new path is validated first. Migrate returns once the connection uses the new path.
func (e *Endpoint) Migrate(ctx context.Context, socket *Conn) error {
	if e.perspective != quicconn.PerspectiveClient {
		return errors.New("only clients can migrate")
	}
	result := make(chan error, 1)
	if err := e.Do(ctx, func(c *quicconn.Connection) {
		if !slices.Contains(e.sockets, socket) {
			e.sockets = append(e.sockets, socket)
			e.startReader(socket)
		}
		pathCtx := &quicconn.PathValidationContext{Self: socket.LocalAddr(), Peer: e.peer, Writer: socket}
		if !c.ValidatePath(pathCtx, &migrationResult{e: e, result: result}, logging.PathValidationReasonConnectionMigration) {
			result <- ErrMigrationFailed
		}
	}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEndpointClosed
	}
}

// Close closes the connection with a CONNECTION_CLOSE frame.
// Run returns after the connection was closed.
func (e *Endpoint) Close(ctx context.Context, code quicconn.ErrorCode, reason string) error {
	return e.Do(ctx, func(c *quicconn.Connection) {
		if c != nil {
			c.Close(code, reason, quicconn.SendConnectionClosePacket)
		}
	})
}

// HandshakeConfirmed is closed when the handshake is confirmed.
func (e *Endpoint) HandshakeConfirmed() <-chan struct{} { return e.handshakeConfirmed }

// Done is closed when the event loop has stopped.
func (e *Endpoint) Done() <-chan struct{} { return e.done }

// Connection returns the connection.
// It must not be used while the event loop is running, use Do instead.
func (e *Endpoint) Connection() *quicconn.Connection { return e.conn }

type migrationResult struct {
	e      *Endpoint
	result chan<- error
}

var _ quicconn.PathValidationResult = &migrationResult{}

func (r *migrationResult) OnPathValidationSuccess(ctx *quicconn.PathValidationContext, startTime monotime.Time) {
	e := r.e
	e.logger.Debug("path validated", "self", ctx.Self, "peer", ctx.Peer, "duration", monotime.Since(startTime))
	// the connection is still processing the PATH_RESPONSE
	e.deferred = append(e.deferred, func() {
		if e.conn.MigratePath(ctx.Self, ctx.Peer, ctx.Writer) {
			r.result <- nil
		} else {
			r.result <- ErrMigrationFailed
		}
	})
}

func (r *migrationResult) OnPathValidationFailure(ctx *quicconn.PathValidationContext) {
	r.e.logger.Debug("path validation failed", "self", ctx.Self, "peer", ctx.Peer)
	r.result <- ErrMigrationFailed
}

type endpointEvents struct {
	quicconn.ConnectionEvents

	closed   bool
	closeErr error
}

func newEndpointEvents(events quicconn.ConnectionEvents) *endpointEvents {
	return &endpointEvents{ConnectionEvents: events}
}

func (ev *endpointEvents) OnConnectionClosed(err error) {
	ev.closed = true
	ev.closeErr = err
	ev.ConnectionEvents.OnConnectionClosed(err)
}

func (ev *endpointEvents) isClosed() bool { return ev.closed }

type noopEvents struct{}

func (noopEvents) OnHandshakeComplete()                                   {}
func (noopEvents) OnStreamFrame(uint64, quicconn.ByteCount, []byte, bool) {}
func (noopEvents) OnNewToken([]byte)                                      {}
func (noopEvents) OnConnectionMigration(netip.AddrPort, netip.AddrPort)   {}
func (noopEvents) OnConnectionClosed(error)                               {}
