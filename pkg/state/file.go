package state

import (
	"os"
	"path/filepath"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/ledgerdb/ledgerdb-go/pkg/model"
)

// fileHolder persists one small fixed-width record per (deploymentKey, db)
// under baseDir, and one deployment-info record per deploymentKey. Writes
// go to a temp file in the same directory followed by os.Rename, so a
// reader never observes a partially written record.
type fileHolder struct {
	mu      syncutils.RWMutex
	baseDir string
}

// NewFileHolder returns a Holder that persists trusted state under baseDir.
// The directory is created if it does not already exist.
func NewFileHolder(baseDir string) (Holder, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, "state"), 0o755); err != nil {
		return nil, ierrors.Wrap(err, "state: creating state directory")
	}
	if err := os.MkdirAll(filepath.Join(baseDir, "deployment"), 0o755); err != nil {
		return nil, ierrors.Wrap(err, "state: creating deployment directory")
	}

	return &fileHolder{baseDir: baseDir}, nil
}

func (h *fileHolder) statePath(key DeploymentKey, db string) string {
	return filepath.Join(h.baseDir, "state", key.String()+"_"+sanitize(db)+".state")
}

func (h *fileHolder) deploymentPath(key DeploymentKey) string {
	return filepath.Join(h.baseDir, "deployment", key.String()+".uuid")
}

func sanitize(db string) string {
	out := make([]byte, 0, len(db))
	for i := 0; i < len(db); i++ {
		c := db[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func (h *fileHolder) Get(key DeploymentKey, db string) (model.ImmuState, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	raw, err := os.ReadFile(h.statePath(key, db))
	if err != nil {
		return model.ImmuState{}, false
	}

	st, err := decodeState(raw)
	if err != nil {
		return model.ImmuState{}, false
	}

	return st, true
}

func (h *fileHolder) Set(key DeploymentKey, st model.ImmuState) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return writeFileAtomic(h.statePath(key, st.Db), encodeState(st))
}

func (h *fileHolder) DeploymentUUID(key DeploymentKey) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	raw, err := os.ReadFile(h.deploymentPath(key))
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (h *fileHolder) CheckAndSetDeploymentUUID(key DeploymentKey, serverUUID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	raw, err := os.ReadFile(h.deploymentPath(key))
	if err == nil {
		if string(raw) != serverUUID {
			return ierrors.Wrapf(ErrDeploymentMismatch, "stored=%q server=%q", string(raw), serverUUID)
		}
		return nil
	}

	return writeFileAtomic(h.deploymentPath(key), []byte(serverUUID))
}

// writeFileAtomic writes data to a temp file alongside path and renames it
// into place, so concurrent readers never see a partial write.
func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ierrors.Wrap(err, "state: writing temp record")
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return ierrors.Wrap(err, "state: renaming record into place")
	}

	return nil
}
