package transport

import (
	"time"

	"go.uber.org/atomic"
	"google.golang.org/grpc"
)

// Connection is a sum type over "a live multiplexed transport" and "no
// transport held", replacing the nullable-connection branches in the
// facade with an explicit type switch (spec.md DESIGN NOTES §9).
type Connection interface {
	isConnection()
	// Addr returns the server address this connection multiplexes, or ""
	// for the released sentinel.
	Addr() string
}

// grpcConnection is a live gRPC channel multiplexed across callers.
type grpcConnection struct {
	addr     string
	conn     *grpc.ClientConn
	lastUsed atomic.Int64 // unix nanos
}

func newGRPCConnection(addr string, conn *grpc.ClientConn) *grpcConnection {
	c := &grpcConnection{addr: addr, conn: conn}
	c.touch()
	return c
}

func (c *grpcConnection) isConnection() {}

func (c *grpcConnection) Addr() string { return c.addr }

// ClientConn exposes the underlying channel for constructing a
// schema.ServiceClient. The core never constructs generated stubs itself
// (spec.md §1); callers that own the generated client code do.
func (c *grpcConnection) ClientConn() *grpc.ClientConn { return c.conn }

func (c *grpcConnection) touch() {
	c.lastUsed.Store(time.Now().UnixNano())
}

func (c *grpcConnection) idleSince() time.Duration {
	return time.Since(time.Unix(0, c.lastUsed.Load()))
}

// releasedConnection is the distinguished "no transport held" sentinel. Any
// RPC issued against it must fail with ErrConnectionReleased instead of
// panicking on a nil pointer.
type releasedConnection struct{}

func (releasedConnection) isConnection() {}
func (releasedConnection) Addr() string  { return "" }

// Released is the singleton "connection released" sentinel value.
var Released Connection = releasedConnection{}

// IsReleased reports whether conn is the released sentinel.
func IsReleased(conn Connection) bool {
	_, ok := conn.(releasedConnection)
	return ok || conn == nil
}

// AsGRPC extracts the underlying *grpc.ClientConn from a live Connection,
// or ok=false if conn is the released sentinel.
func AsGRPC(conn Connection) (*grpc.ClientConn, bool) {
	g, ok := conn.(*grpcConnection)
	if !ok {
		return nil, false
	}
	return g.conn, true
}
