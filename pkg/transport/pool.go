// Package transport implements the connection pool: acquiring and
// releasing multiplexed gRPC channels keyed by server address, with an
// idle-connection sweeper and a bounded grace-period shutdown
// (spec.md §4.4).
package transport

import (
	"context"
	"time"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/runtime/timeutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// ErrPoolClosed is returned by Acquire after Shutdown has completed.
var ErrPoolClosed = ierrors.New("transport: connection pool is shut down")

// Params configures how a Pool dials a server.
type Params struct {
	Addr string
	TLS  credentials.TransportCredentials
}

// Pool is the connection-pool contract: Acquire returns a multiplexed
// transport keyed by server address, Release returns it. Implementations
// enforce MaxConnectionsPerServer, sweep idle connections, and drain
// in-flight work on Shutdown within a grace period.
type Pool interface {
	Acquire(ctx context.Context, params Params) (Connection, error)
	Release(conn Connection)
	Shutdown(ctx context.Context) error
}

// perServerState tracks the live connections dialed to one server address.
// slots is a buffered channel acting as a counting semaphore: capacity
// equals MaxConnectionsPerServer, and a token sits in it for every slot not
// currently checked out. Acquire blocks on a channel receive rather than a
// condition variable so it composes with ctx cancellation through select.
type perServerState struct {
	mu    syncutils.Mutex
	idle  []*grpcConnection
	slots chan struct{}
}

// pool is the default Pool implementation, constructed explicitly via New.
// There is no process-wide shared instance: each call to New, including the
// one in client.Builder.Open, creates an independent pool.
type pool struct {
	log.Logger

	mu      syncutils.Mutex
	servers map[string]*perServerState
	closed  bool

	optsMaxConnectionsPerServer int
	optsIdleCheckInterval       time.Duration
	optsIdleTimeout             time.Duration

	stopSweeper func()
}

// WithMaxConnectionsPerServer bounds how many concurrent channels the pool
// opens to a single server address.
func WithMaxConnectionsPerServer(n int) options.Option[pool] {
	return func(p *pool) { p.optsMaxConnectionsPerServer = n }
}

// WithIdleConnectionCheckInterval sets how often the background sweeper
// scans for idle connections.
func WithIdleConnectionCheckInterval(d time.Duration) options.Option[pool] {
	return func(p *pool) { p.optsIdleCheckInterval = d }
}

// WithTerminateIdleConnectionTimeout sets how long a released connection may
// sit idle before the sweeper closes it.
func WithTerminateIdleConnectionTimeout(d time.Duration) options.Option[pool] {
	return func(p *pool) { p.optsIdleTimeout = d }
}

// New constructs a connection pool. A background sweeper goroutine starts
// immediately and runs until Shutdown.
func New(logger log.Logger, opts ...options.Option[pool]) Pool {
	p := options.Apply(&pool{
		Logger:                      logger,
		servers:                     make(map[string]*perServerState),
		optsMaxConnectionsPerServer: 4,
		optsIdleCheckInterval:       30 * time.Second,
		optsIdleTimeout:             2 * time.Minute,
	}, opts)

	ctx, cancel := context.WithCancel(context.Background())
	ticker := timeutil.NewTicker(p.sweep, p.optsIdleCheckInterval, ctx)
	p.stopSweeper = lo.Batch(cancel, ticker.WaitForGracefulShutdown)

	return p
}

func (p *pool) serverState(addr string) *perServerState {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.servers[addr]
	if !ok {
		st = &perServerState{slots: make(chan struct{}, p.optsMaxConnectionsPerServer)}
		for i := 0; i < p.optsMaxConnectionsPerServer; i++ {
			st.slots <- struct{}{}
		}
		p.servers[addr] = st
	}
	return st
}

// Acquire returns a multiplexed connection to params.Addr, reusing an idle
// one if the server already has one sitting released, or dialing a new
// channel otherwise. Once MaxConnectionsPerServer channels are checked out,
// further callers block on the semaphore until a slot frees or ctx is done.
func (p *pool) Acquire(ctx context.Context, params Params) (Connection, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	st := p.serverState(params.Addr)

	select {
	case <-st.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	st.mu.Lock()
	if n := len(st.idle); n > 0 {
		gc := st.idle[n-1]
		st.idle = st.idle[:n-1]
		st.mu.Unlock()
		gc.touch()
		return gc, nil
	}
	st.mu.Unlock()

	creds := params.TLS
	if creds == nil {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(params.Addr, grpc.WithTransportCredentials(creds))
	if err != nil {
		st.slots <- struct{}{}
		return nil, ierrors.Wrap(err, "transport: dialing server")
	}

	gc := newGRPCConnection(params.Addr, conn)
	return gc, nil
}

// Release returns conn to its server's idle pool, making it eligible for
// reuse or, after sitting idle past the configured timeout, teardown by the
// sweeper. Releasing the sentinel is a no-op. After Shutdown, Release closes
// conn instead of pooling it.
func (p *pool) Release(conn Connection) {
	gc, ok := conn.(*grpcConnection)
	if !ok {
		return
	}

	gc.touch()

	st := p.serverState(gc.addr)
	st.mu.Lock()
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		st.mu.Unlock()
		_ = gc.conn.Close()
		return
	}
	st.idle = append(st.idle, gc)
	st.mu.Unlock()

	st.slots <- struct{}{}
}

// sweep closes idle connections that have sat released longer than
// TerminateIdleConnectionTimeout. Closing an idle connection does not touch
// slots: the slot was already returned when the connection was released.
func (p *pool) sweep() {
	p.mu.Lock()
	servers := make([]*perServerState, 0, len(p.servers))
	for _, st := range p.servers {
		servers = append(servers, st)
	}
	p.mu.Unlock()

	for _, st := range servers {
		st.mu.Lock()
		kept := st.idle[:0]
		for _, gc := range st.idle {
			if gc.idleSince() > p.optsIdleTimeout {
				p.LogDebug("closing idle connection", "addr", gc.addr)
				_ = gc.conn.Close()
				continue
			}
			kept = append(kept, gc)
		}
		st.idle = kept
		st.mu.Unlock()
	}
}

// Shutdown closes every idle pooled connection, waiting up to the context's
// deadline before giving up. Connections still checked out by callers are
// closed when those callers Release them after Shutdown, since Release
// checks whether the pool is shut down and closes rather than pools them.
func (p *pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	servers := make([]*perServerState, 0, len(p.servers))
	for _, st := range p.servers {
		servers = append(servers, st)
	}
	p.mu.Unlock()

	p.stopSweeper()

	done := make(chan struct{})
	go func() {
		for _, st := range servers {
			st.mu.Lock()
			for _, gc := range st.idle {
				_ = gc.conn.Close()
			}
			st.idle = nil
			st.mu.Unlock()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
