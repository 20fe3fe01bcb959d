// Package session implements the session manager named in spec.md §4.4:
// open/close of an authenticated session against a schema.ServiceClient,
// and a supervised keepalive worker that heartbeats the server at a fixed
// interval for as long as the session stays open.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/lo"
	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/syncutils"
	"github.com/iotaledger/hive.go/runtime/timeutil"

	"github.com/ledgerdb/ledgerdb-go/pkg/ledgerdberr"
	"github.com/ledgerdb/ledgerdb-go/pkg/model"
	"github.com/ledgerdb/ledgerdb-go/pkg/schema"
)

// ErrAlreadyOpen and ErrNotOpen are the session-setup errors named in
// spec.md §4.4 DESIGN NOTES: illegal state transitions (Open → Opening,
// an operation against a Closed session) are rejected rather than silently
// tolerated.
var (
	ErrAlreadyOpen = ledgerdberr.ErrAlreadyOpen
	ErrNotOpen     = ledgerdberr.ErrNotOpen
)

// Manager guards a single active session behind a typed state machine
// (model.SessionClosed → Opening → Open → Closing), replacing the
// busy-wait/flag pattern spec.md DESIGN NOTES §9 asks to retire. Open and
// Close hold mu for their entire duration, including the login/logout RPC,
// which is exactly the serialization spec.md §4.4 requires: concurrent
// open/close calls must not interleave.
type Manager struct {
	log.Logger

	mu    syncutils.Mutex
	state model.SessionState

	session *model.Session
	client  schema.ServiceClient

	heartbeatInterval time.Duration
	stopKeepalive     func()
}

// NewManager returns a Manager with no active session. heartbeatInterval
// configures the keepalive loop started by Open.
func NewManager(logger log.Logger, heartbeatInterval time.Duration) *Manager {
	return &Manager{
		Logger:            logger,
		state:             model.SessionClosed,
		heartbeatInterval: heartbeatInterval,
	}
}

// Open authenticates against client and starts the keepalive loop. It fails
// with ErrAlreadyOpen if a session is already open, opening, or closing.
func (m *Manager) Open(ctx context.Context, client schema.ServiceClient, user, password []byte, db string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.SessionClosed {
		return nil, ierrors.Wrapf(ErrAlreadyOpen, "session is %s", m.state)
	}
	m.state = model.SessionOpening

	resp, err := client.Login(ctx, schema.LoginRequest{User: user, Password: password, Database: db})
	if err != nil {
		m.state = model.SessionClosed
		return nil, ledgerdberr.MapServerError(err)
	}

	sess := &model.Session{
		ID:         uuid.NewString(),
		Token:      resp.Token,
		ServerUUID: resp.ServerUUID,
		Db:         db,
	}

	m.session = sess
	m.client = client
	m.state = model.SessionOpen
	m.startKeepalive(client)

	m.LogInfo("session opened", "sessionID", sess.ID, "db", db)

	return sess, nil
}

// Close invalidates the session's token and stops the keepalive loop. It
// fails with ErrNotOpen if no session is open.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.SessionOpen {
		return ierrors.Wrapf(ErrNotOpen, "session is %s", m.state)
	}
	m.state = model.SessionClosing

	if m.stopKeepalive != nil {
		m.stopKeepalive()
		m.stopKeepalive = nil
	}

	err := m.client.Logout(ctx)

	m.session = nil
	m.client = nil
	m.state = model.SessionClosed

	if err != nil {
		return ledgerdberr.MapServerError(err)
	}
	return nil
}

// Session returns the active session, or ok=false if none is open.
func (m *Manager) Session() (*model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.SessionOpen {
		return nil, false
	}
	return m.session, true
}

// Client returns the ServiceClient bound to the active session, or
// ok=false if none is open.
func (m *Manager) Client() (schema.ServiceClient, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != model.SessionOpen {
		return nil, false
	}
	return m.client, true
}

// startKeepalive launches a background heartbeat loop, same ticker helper
// the teacher uses for its own periodic workers. Keepalive transport
// failures are logged and dropped per spec.md §4.4: the next real RPC
// surfaces the actual error, keepalive never tears the session down.
func (m *Manager) startKeepalive(client schema.ServiceClient) {
	ctx, cancel := context.WithCancel(context.Background())

	heartbeat := func() {
		hbCtx, hbCancel := context.WithTimeout(ctx, m.heartbeatInterval)
		defer hbCancel()

		if err := client.Keepalive(hbCtx); err != nil {
			m.LogWarn("keepalive failed", "err", err)
		}
	}

	ticker := timeutil.NewTicker(heartbeat, m.heartbeatInterval, ctx)
	m.stopKeepalive = lo.Batch(cancel, ticker.WaitForGracefulShutdown)
}
