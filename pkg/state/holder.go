// Package state implements the persistent last-trusted state holder: one
// ImmuState per (session deployment, db), safe for concurrent access, with
// pluggable in-memory and file-backed persistence (spec.md §4.3).
package state

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/kvstore"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/ledgerdb/ledgerdb-go/pkg/ledgerdberr"
	"github.com/ledgerdb/ledgerdb-go/pkg/model"
)

// ErrDeploymentMismatch is returned by CheckAndSetDeploymentUUID when the server's
// reported UUID disagrees with the one already recorded for this
// deployment key.
var ErrDeploymentMismatch = ledgerdberr.ErrDeploymentMismatch

// DeploymentKey is a short, stable hash of a server address, scoping all
// trusted state and deployment-info records to the server the client last
// talked to.
type DeploymentKey [16]byte

// NewDeploymentKey derives a DeploymentKey from a server address (host:port
// as dialed, including scheme if any).
func NewDeploymentKey(serverAddr string) DeploymentKey {
	sum := sha256.Sum256([]byte(serverAddr))
	var key DeploymentKey
	copy(key[:], sum[:16])
	return key
}

func (k DeploymentKey) String() string {
	return hex.EncodeToString(k[:])
}

// Holder is the state-holder contract: Get returns a read-only snapshot
// (the zero ImmuState and false if absent), Set atomically publishes a new
// trusted state.
// Implementations must be safe for concurrent use.
type Holder interface {
	Get(key DeploymentKey, db string) (model.ImmuState, bool)
	Set(key DeploymentKey, state model.ImmuState) error

	// DeploymentUUID returns the UUID previously recorded for key, if any.
	DeploymentUUID(key DeploymentKey) (string, bool)

	// CheckAndSetDeploymentUUID records serverUUID as first-seen for key, or
	// returns ErrDeploymentMismatch if a different UUID was already
	// recorded.
	CheckAndSetDeploymentUUID(key DeploymentKey, serverUUID string) error
}

// kvHolder implements Holder on top of any hive.go/kvstore.KVStore,
// matching the teacher's use of kvstore as the uniform storage interface
// (pkg/model/pruning_index.go) regardless of backend.
type kvHolder struct {
	mu syncutils.RWMutex
	kv kvstore.KVStore
}

func newKVHolder(kv kvstore.KVStore) *kvHolder {
	return &kvHolder{kv: kv}
}

func stateRealm(key DeploymentKey, db string) kvstore.Realm {
	return kvstore.Realm(append([]byte(key.String()+"/state/"), db...))
}

func deploymentRealm(key DeploymentKey) kvstore.Realm {
	return kvstore.Realm(append([]byte(key.String()+"/deployment/"), 'u'))
}

func (h *kvHolder) Get(key DeploymentKey, db string) (model.ImmuState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	raw, err := h.kv.Get(stateRealm(key, db))
	if err != nil || raw == nil {
		return model.ImmuState{}, false
	}

	st, err := decodeState(raw)
	if err != nil {
		return model.ImmuState{}, false
	}

	return st, true
}

func (h *kvHolder) Set(key DeploymentKey, st model.ImmuState) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.kv.Set(stateRealm(key, st.Db), encodeState(st))
}

func (h *kvHolder) DeploymentUUID(key DeploymentKey) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	raw, err := h.kv.Get(deploymentRealm(key))
	if err != nil || raw == nil {
		return "", false
	}

	return string(raw), true
}

func (h *kvHolder) CheckAndSetDeploymentUUID(key DeploymentKey, serverUUID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	raw, err := h.kv.Get(deploymentRealm(key))
	if err == nil && raw != nil {
		if string(raw) != serverUUID {
			return ierrors.Wrapf(ErrDeploymentMismatch, "stored=%q server=%q", string(raw), serverUUID)
		}
		return nil
	}

	return h.kv.Set(deploymentRealm(key), []byte(serverUUID))
}
