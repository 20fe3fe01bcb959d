package transport

import (
	"context"
	"testing"
	"time"

	"github.com/iotaledger/hive.go/log"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) log.Logger {
	t.Helper()
	return log.NewLogger().NewChildLogger(t.Name())
}

// grpc.NewClient never dials synchronously, so an unreachable-but-
// syntactically-valid target lets these tests exercise pool bookkeeping
// without a real server.
const testAddr = "127.0.0.1:1"

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := New(testLogger(t), WithMaxConnectionsPerServer(2))
	defer func() { _ = p.Shutdown(context.Background()) }()

	conn, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)
	require.False(t, IsReleased(conn))
	require.Equal(t, testAddr, conn.Addr())

	p.Release(conn)
}

func TestAcquireReusesReleasedConnection(t *testing.T) {
	p := New(testLogger(t), WithMaxConnectionsPerServer(1))
	defer func() { _ = p.Shutdown(context.Background()) }()

	first, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)
	p.Release(first)

	second, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)

	require.Same(t, first.(*grpcConnection), second.(*grpcConnection))
}

func TestAcquireBlocksUntilSlotFrees(t *testing.T) {
	p := New(testLogger(t), WithMaxConnectionsPerServer(1))
	defer func() { _ = p.Shutdown(context.Background()) }()

	first, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = p.Acquire(ctx, Params{Addr: testAddr})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release(first)

	second, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)
	require.Same(t, first.(*grpcConnection), second.(*grpcConnection))
}

func TestAcquireDoesNotLeakASlotWhenCanceled(t *testing.T) {
	p := New(testLogger(t), WithMaxConnectionsPerServer(1))
	defer func() { _ = p.Shutdown(context.Background()) }()

	first, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)

	canceledCtx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Acquire(canceledCtx, Params{Addr: testAddr})
	require.ErrorIs(t, err, context.Canceled)

	p.Release(first)

	// The slot consumed by first must be the only one available: a second
	// concurrent acquirer should not find a phantom extra slot.
	third, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)

	ctx, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = p.Acquire(ctx, Params{Addr: testAddr})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.Release(third)
}

func TestAcquireAfterShutdownFails(t *testing.T) {
	p := New(testLogger(t))
	require.NoError(t, p.Shutdown(context.Background()))

	_, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.ErrorIs(t, err, ErrPoolClosed)
}

func TestReleaseOfReleasedSentinelIsNoop(t *testing.T) {
	p := New(testLogger(t))
	defer func() { _ = p.Shutdown(context.Background()) }()

	require.NotPanics(t, func() { p.Release(Released) })
}

func TestShutdownClosesIdleConnections(t *testing.T) {
	p := New(testLogger(t))

	conn, err := p.Acquire(context.Background(), Params{Addr: testAddr})
	require.NoError(t, err)
	p.Release(conn)

	require.NoError(t, p.Shutdown(context.Background()))
}
