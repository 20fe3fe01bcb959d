// Package client implements the verification core's public facade: a
// builder that collects connection settings and opens a session, and the
// verified/non-verified operations that sequence pool, session, proof, and
// state-holder calls (spec.md §4.5, §4.6).
package client

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/options"

	"github.com/ledgerdb/ledgerdb-go/pkg/schema"
	"github.com/ledgerdb/ledgerdb-go/pkg/session"
	"github.com/ledgerdb/ledgerdb-go/pkg/state"
	"github.com/ledgerdb/ledgerdb-go/pkg/transport"
)

// DialFunc opens a schema.ServiceClient over a live transport.Connection.
// The core has no dependency on generated gRPC stubs (spec.md §1); a caller
// supplies this to bridge a transport.Connection to its own generated
// client type.
type DialFunc func(conn transport.Connection) (schema.ServiceClient, error)

// Builder collects the settings a Client needs and constructs it. Use
// NewBuilder, pass With* options to Apply, then Open.
type Builder struct {
	logger log.Logger

	optsAddr                           string
	optsTLSCreds                       transport.Params
	optsServerSigningKey               *ecdsa.PublicKey
	optsStateHolder                    state.Holder
	optsCheckDeploymentInfo            bool
	optsHeartbeatInterval              time.Duration
	optsShutdownGracePeriod            time.Duration
	optsMaxConnectionsPerServer        int
	optsIdleConnectionCheckInterval    time.Duration
	optsTerminateIdleConnectionTimeout time.Duration

	dial DialFunc
}

// NewBuilder returns a Builder with the defaults spec.md §4.4/§5 describes:
// deployment-info checking on, a four-connection-per-server pool, and
// conservative idle/heartbeat timings.
func NewBuilder(logger log.Logger, addr string, dial DialFunc) *Builder {
	return &Builder{
		logger:                             logger,
		optsAddr:                           addr,
		optsTLSCreds:                       transport.Params{Addr: addr},
		optsStateHolder:                    state.NewMemoryHolder(),
		optsCheckDeploymentInfo:            true,
		optsHeartbeatInterval:              60 * time.Second,
		optsShutdownGracePeriod:            5 * time.Second,
		optsMaxConnectionsPerServer:        4,
		optsIdleConnectionCheckInterval:    30 * time.Second,
		optsTerminateIdleConnectionTimeout: 2 * time.Minute,
		dial:                               dial,
	}
}

// WithServerSigningKey sets the server's public signing key; when set,
// every trusted-state update must carry a valid signature (spec.md §3).
func WithServerSigningKey(pubKey *ecdsa.PublicKey) options.Option[Builder] {
	return func(b *Builder) { b.optsServerSigningKey = pubKey }
}

// WithStateHolder overrides the default in-memory state.Holder, e.g. with
// state.NewFileHolder for state that survives a restart.
func WithStateHolder(h state.Holder) options.Option[Builder] {
	return func(b *Builder) { b.optsStateHolder = h }
}

// WithDeploymentInfoCheck toggles the deployment-UUID mismatch guard
// (spec.md §4.3). On by default.
func WithDeploymentInfoCheck(enabled bool) options.Option[Builder] {
	return func(b *Builder) { b.optsCheckDeploymentInfo = enabled }
}

// WithHeartbeatInterval sets the session keepalive interval.
func WithHeartbeatInterval(d time.Duration) options.Option[Builder] {
	return func(b *Builder) { b.optsHeartbeatInterval = d }
}

// WithShutdownGracePeriod bounds how long Close waits for in-flight calls
// before forcing connection teardown.
func WithShutdownGracePeriod(d time.Duration) options.Option[Builder] {
	return func(b *Builder) { b.optsShutdownGracePeriod = d }
}

// WithMaxConnectionsPerServer bounds the pool's concurrent channels per
// server address.
func WithMaxConnectionsPerServer(n int) options.Option[Builder] {
	return func(b *Builder) { b.optsMaxConnectionsPerServer = n }
}

// WithIdleConnectionCheckInterval sets how often the pool's sweeper scans
// for idle connections.
func WithIdleConnectionCheckInterval(d time.Duration) options.Option[Builder] {
	return func(b *Builder) { b.optsIdleConnectionCheckInterval = d }
}

// WithTerminateIdleConnectionTimeout sets how long a released connection
// may sit idle before the sweeper closes it.
func WithTerminateIdleConnectionTimeout(d time.Duration) options.Option[Builder] {
	return func(b *Builder) { b.optsTerminateIdleConnectionTimeout = d }
}

// WithTLS sets the transport credentials dialed for this server. Insecure
// credentials are used if never called.
func WithTLS(params transport.Params) options.Option[Builder] {
	return func(b *Builder) { b.optsTLSCreds = params }
}

// Apply applies opts to b and returns b. NewBuilder takes no options, so
// Apply is how With* options are set on a Builder.
func (b *Builder) Apply(opts ...options.Option[Builder]) *Builder {
	return options.Apply(b, opts)
}

// Open acquires a connection, opens an authenticated session against db,
// and returns a ready-to-use Client. The returned Client owns the pool and
// must be closed with Client.Close.
func (b *Builder) Open(ctx context.Context, user, password []byte, db string) (*Client, error) {
	pool := transport.New(b.logger.NewChildLogger("pool"),
		transport.WithMaxConnectionsPerServer(b.optsMaxConnectionsPerServer),
		transport.WithIdleConnectionCheckInterval(b.optsIdleConnectionCheckInterval),
		transport.WithTerminateIdleConnectionTimeout(b.optsTerminateIdleConnectionTimeout),
	)

	conn, err := pool.Acquire(ctx, b.optsTLSCreds)
	if err != nil {
		return nil, err
	}

	svc, err := b.dial(conn)
	if err != nil {
		pool.Release(conn)
		return nil, err
	}

	sessionMgr := session.NewManager(b.logger.NewChildLogger("session"), b.optsHeartbeatInterval)

	sess, err := sessionMgr.Open(ctx, svc, user, password, db)
	if err != nil {
		pool.Release(conn)
		return nil, err
	}

	c := &Client{
		Logger:              b.logger.NewChildLogger("client"),
		pool:                pool,
		conn:                conn,
		session:             sessionMgr,
		holder:              b.optsStateHolder,
		deploymentKey:       state.NewDeploymentKey(b.optsAddr),
		serverSigningKey:    b.optsServerSigningKey,
		checkDeploymentInfo: b.optsCheckDeploymentInfo,
		shutdownGracePeriod: b.optsShutdownGracePeriod,
		db:                  db,
	}

	if b.optsCheckDeploymentInfo {
		if mismatchErr := c.holder.CheckAndSetDeploymentUUID(c.deploymentKey, sess.ServerUUID); mismatchErr != nil {
			_ = sessionMgr.Close(ctx)
			pool.Release(conn)
			return nil, mismatchErr
		}
	}

	return c, nil
}
