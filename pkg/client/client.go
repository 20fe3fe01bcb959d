package client

import (
	"context"
	"crypto/ecdsa"
	"time"

	"github.com/iotaledger/hive.go/log"
	"github.com/iotaledger/hive.go/runtime/syncutils"

	"github.com/ledgerdb/ledgerdb-go/pkg/digest"
	"github.com/ledgerdb/ledgerdb-go/pkg/ledgerdberr"
	"github.com/ledgerdb/ledgerdb-go/pkg/model"
	"github.com/ledgerdb/ledgerdb-go/pkg/proof"
	"github.com/ledgerdb/ledgerdb-go/pkg/schema"
	"github.com/ledgerdb/ledgerdb-go/pkg/session"
	"github.com/ledgerdb/ledgerdb-go/pkg/state"
	"github.com/ledgerdb/ledgerdb-go/pkg/transport"
)

// Client is the verification core's facade: verified operations sequence
// session, proof-verifier, and state-holder calls per spec.md §4.5;
// non-verified operations are plain RPC passthroughs per §4.6.
type Client struct {
	log.Logger

	pool    transport.Pool
	conn    transport.Connection
	session *session.Manager
	db      string

	holder              state.Holder
	deploymentKey       state.DeploymentKey
	serverSigningKey    *ecdsa.PublicKey
	checkDeploymentInfo bool
	shutdownGracePeriod time.Duration

	// verifyMu serializes steps 2-10 of a verified operation against this
	// session, matching spec.md §5's "one in-flight verified update at a
	// time" requirement.
	verifyMu syncutils.Mutex
}

// Close logs out the active session and returns the pooled connection,
// waiting up to the configured grace period for in-flight calls.
func (c *Client) Close(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, c.shutdownGracePeriod)
	defer cancel()

	err := c.session.Close(shutdownCtx)

	c.pool.Release(c.conn)
	c.conn = transport.Released

	if shutErr := c.pool.Shutdown(shutdownCtx); shutErr != nil && err == nil {
		err = shutErr
	}

	return err
}

func (c *Client) serviceClient() (schema.ServiceClient, error) {
	if transport.IsReleased(c.conn) {
		return nil, ledgerdberr.ErrConnectionReleased
	}

	svc, ok := c.session.Client()
	if !ok {
		return nil, ledgerdberr.ErrNotOpen
	}
	return svc, nil
}

// direction is the source/target pair a verified operation's dual-proof
// check runs against, per spec.md §4.5 step 6.
type direction struct {
	sourceID, targetID   uint64
	sourceAlh, targetAlh [32]byte
	advancing            bool
}

// computeDirection decides whether header's transaction advances the
// client's trusted state forward, or is an older transaction being read
// while the trust anchor stays put.
func computeDirection(current model.ImmuState, header *model.TxHeader) (direction, error) {
	headerAlh, err := digest.Alh(header)
	if err != nil {
		return direction{}, ledgerdberr.WrapVerificationf("computing header alh: %v", err)
	}

	if current.TxID <= header.ID {
		return direction{
			sourceID: current.TxID, targetID: header.ID,
			sourceAlh: current.TxHash, targetAlh: headerAlh,
			advancing: true,
		}, nil
	}

	return direction{
		sourceID: header.ID, targetID: current.TxID,
		sourceAlh: headerAlh, targetAlh: current.TxHash,
		advancing: false,
	}, nil
}

// verifyDualIfAnchored runs the dual-proof check for dir unless the client
// has no prior trust anchor (current.TxID == 0), per spec.md §4.5 step 8.
func verifyDualIfAnchored(current model.ImmuState, p *proof.DualProof, dir direction) error {
	if current.TxID == 0 {
		return nil
	}
	if !proof.VerifyDualProof(p, dir.sourceID, dir.targetID, dir.sourceAlh, dir.targetAlh) {
		return ledgerdberr.WrapVerification("dual proof verification failed")
	}
	return nil
}

// advanceState verifies the target side's signature (when a server signing
// key is configured) and publishes the new trusted state. Only called when
// dir.advancing is true: a history read never moves the trust anchor.
func (c *Client) advanceState(dir direction, signature []byte) (model.ImmuState, error) {
	newState := model.ImmuState{
		Db:        c.db,
		TxID:      dir.targetID,
		TxHash:    dir.targetAlh,
		Signature: signature,
	}

	if c.serverSigningKey != nil {
		if !digest.VerifySignature(c.serverSigningKey, &newState) {
			return model.ImmuState{}, ledgerdberr.WrapVerification("server signature verification failed")
		}
	}

	if err := c.holder.Set(c.deploymentKey, newState); err != nil {
		return model.ImmuState{}, err
	}

	return newState, nil
}

// verifyWrittenEntry checks that header commits exactly one entry and that
// its digest equals the tx root: with nEntries == 1 the Merkle tree is a
// single leaf, so the root IS the leaf digest (spec.md §4.5 "Verified
// writes").
func verifyWrittenEntry(header model.TxHeader, encodedKey, value []byte, metadata *model.EntryMetadata) error {
	if header.NEntries != 1 {
		return ledgerdberr.WrapVerificationf("expected 1 entry in tx %d, got %d", header.ID, header.NEntries)
	}

	leaf := digest.EntryDigest(encodedKey, value, metadata, header.Version)
	if leaf != header.Eh {
		return ledgerdberr.WrapVerification("written entry digest does not match transaction root")
	}
	return nil
}

// verifiedWrite runs the common tail of every verified write: bind, prove,
// advance. issue is called with the current trusted state's TxID as
// proveSinceTx and returns the server's VerifiableTx; the committed header is
// returned only after it is verified and the new state is published.
func (c *Client) verifiedWrite(ctx context.Context, encodedKey, value []byte, metadata *model.EntryMetadata, issue func(ctx context.Context, proveSinceTx uint64) (schema.VerifiableTx, error)) (model.TxHeader, error) {
	c.verifyMu.Lock()
	defer c.verifyMu.Unlock()

	current, _ := c.holder.Get(c.deploymentKey, c.db)

	vtx, err := issue(ctx, current.TxID)
	if err != nil {
		return model.TxHeader{}, ledgerdberr.MapServerError(err)
	}

	header := vtx.Tx.Header

	if err := verifyWrittenEntry(header, encodedKey, value, metadata); err != nil {
		return model.TxHeader{}, err
	}

	dir, err := computeDirection(current, &header)
	if err != nil {
		return model.TxHeader{}, err
	}
	if !dir.advancing {
		return model.TxHeader{}, ledgerdberr.WrapVerification("server returned a committed transaction older than trusted state")
	}

	if err := verifyDualIfAnchored(current, &vtx.DualProof, dir); err != nil {
		return model.TxHeader{}, err
	}

	if _, err := c.advanceState(dir, vtx.Signature); err != nil {
		return model.TxHeader{}, err
	}

	return header, nil
}

// VerifiedSet writes key=value and verifies the commit before returning.
func (c *Client) VerifiedSet(ctx context.Context, key, value []byte) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}

	return c.verifiedWrite(ctx, key, value, nil, func(ctx context.Context, proveSinceTx uint64) (schema.VerifiableTx, error) {
		return svc.VerifiableSet(ctx, schema.VerifiableSetRequest{
			SetRequest:   schema.SetRequest{KVs: []schema.KV{{Key: key, Value: value}}},
			ProveSinceTx: proveSinceTx,
		})
	})
}

// VerifiedSetReference binds key as an alias of referencedKey at the
// referenced key's current transaction and verifies the commit.
func (c *Client) VerifiedSetReference(ctx context.Context, key, referencedKey []byte) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}

	return c.verifiedWrite(ctx, key, referencedKey, nil, func(ctx context.Context, proveSinceTx uint64) (schema.VerifiableTx, error) {
		return svc.VerifiableSetReference(ctx, key, referencedKey, 0, proveSinceTx)
	})
}

// VerifiedZAdd adds member to a sorted set and verifies the commit. The
// entry's leaf digest folds the Z-encoded key (set ‖ keyLen ‖ key ‖ score ‖
// atTx) against the referenced key's bytes as its value, mirroring how a
// reference entry folds its target key.
func (c *Client) VerifiedZAdd(ctx context.Context, set, key []byte, score float64) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}

	var atTx uint64
	encodedKey := digest.EncodeZKey(set, key, score, atTx)

	return c.verifiedWrite(ctx, encodedKey, key, nil, func(ctx context.Context, proveSinceTx uint64) (schema.VerifiableTx, error) {
		return svc.VerifiableZAdd(ctx, schema.VerifiableZAddRequest{
			ZAddRequest:  schema.ZAddRequest{Set: set, Key: key, Score: score, AtTx: atTx},
			ProveSinceTx: proveSinceTx,
		})
	})
}

// verifiedRead runs spec.md §4.5 steps 1-11 for a read-shaped verified
// operation: bind the returned entry to the request, verify its inclusion
// proof, verify the dual proof, and advance or hold the trust anchor
// depending on direction.
func (c *Client) verifiedRead(ctx context.Context, req schema.KeyRequest) (model.Entry, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.Entry{}, err
	}

	c.verifyMu.Lock()
	defer c.verifyMu.Unlock()

	current, _ := c.holder.Get(c.deploymentKey, c.db)

	resp, err := svc.VerifiableGet(ctx, schema.VerifiableGetRequest{KeyRequest: req, ProveSinceTx: current.TxID})
	if err != nil {
		return model.Entry{}, ledgerdberr.MapServerError(err)
	}

	entry := resp.Entry
	if string(entry.BoundKey()) != string(req.Key) {
		return model.Entry{}, ledgerdberr.WrapVerification("returned entry key does not match requested key")
	}
	if req.AtTx != 0 && entry.Tx != req.AtTx {
		return model.Entry{}, ledgerdberr.WrapVerification("returned entry tx does not match requested tx")
	}
	if entry.IsDeleted() {
		return model.Entry{}, ledgerdberr.ErrKeyNotFound
	}

	header := resp.VerifiableTx.Tx.Header

	dir, err := computeDirection(current, &header)
	if err != nil {
		return model.Entry{}, err
	}

	leaf := digest.EntryDigest(entry.BoundKey(), entry.Value, entry.Metadata, header.Version)
	if !proof.VerifyInclusion(resp.InclusionProof, leaf, header.Eh) {
		return model.Entry{}, ledgerdberr.WrapVerification("inclusion proof verification failed")
	}

	if err := verifyDualIfAnchored(current, &resp.VerifiableTx.DualProof, dir); err != nil {
		return model.Entry{}, err
	}

	if dir.advancing {
		if _, err := c.advanceState(dir, resp.VerifiableTx.Signature); err != nil {
			return model.Entry{}, err
		}
	}

	return entry, nil
}

// VerifiedGet reads key's current value and verifies it against trusted
// state, advancing the trust anchor when the entry is newer.
func (c *Client) VerifiedGet(ctx context.Context, key []byte) (model.Entry, error) {
	return c.verifiedRead(ctx, schema.KeyRequest{Key: key})
}

// VerifiedGetAt reads key pinned to a specific transaction id and verifies
// it.
func (c *Client) VerifiedGetAt(ctx context.Context, key []byte, atTx uint64) (model.Entry, error) {
	return c.verifiedRead(ctx, schema.KeyRequest{Key: key, AtTx: atTx})
}

// VerifiedTxByID verifies that transaction id legitimately belongs to the
// transaction log rooted at (or reachable from) the client's trusted state,
// without any entry-level inclusion check.
func (c *Client) VerifiedTxByID(ctx context.Context, id uint64) (model.Tx, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.Tx{}, err
	}

	c.verifyMu.Lock()
	defer c.verifyMu.Unlock()

	current, _ := c.holder.Get(c.deploymentKey, c.db)

	vtx, err := svc.VerifiableTxByID(ctx, schema.VerifiableTxRequest{Tx: id, ProveSinceTx: current.TxID})
	if err != nil {
		return model.Tx{}, ledgerdberr.MapServerError(err)
	}

	header := vtx.Tx.Header
	if header.ID != id {
		return model.Tx{}, ledgerdberr.WrapVerification("returned transaction id does not match request")
	}

	dir, err := computeDirection(current, &header)
	if err != nil {
		return model.Tx{}, err
	}

	if err := verifyDualIfAnchored(current, &vtx.DualProof, dir); err != nil {
		return model.Tx{}, err
	}

	if dir.advancing {
		if _, err := c.advanceState(dir, vtx.Signature); err != nil {
			return model.Tx{}, err
		}
	}

	return vtx.Tx, nil
}

// --- Non-verified operations (spec.md §4.6): plain RPC passthroughs that
// never touch trusted state. ---

// Get reads key's current value without verification.
func (c *Client) Get(ctx context.Context, key []byte) (model.Entry, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.Entry{}, err
	}
	entry, err := svc.Get(ctx, schema.KeyRequest{Key: key})
	if err != nil {
		return model.Entry{}, ledgerdberr.MapServerError(err)
	}
	return entry, nil
}

// GetAll reads multiple keys without verification.
func (c *Client) GetAll(ctx context.Context, keys [][]byte) ([]model.Entry, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return nil, err
	}
	entries, err := svc.GetAll(ctx, keys)
	if err != nil {
		return nil, ledgerdberr.MapServerError(err)
	}
	return entries, nil
}

// ScanOptions configures Scan.
type ScanOptions struct {
	SeekKey []byte
	Prefix  []byte
	Desc    bool
	Limit   int
}

// Scan lists keys matching opts without verification.
func (c *Client) Scan(ctx context.Context, opts ScanOptions) ([]model.Entry, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return nil, err
	}
	entries, err := svc.Scan(ctx, schema.ScanRequest{SeekKey: opts.SeekKey, Prefix: opts.Prefix, Desc: opts.Desc, Limit: opts.Limit})
	if err != nil {
		return nil, ledgerdberr.MapServerError(err)
	}
	return entries, nil
}

// ZScanOptions configures ZScan.
type ZScanOptions struct {
	SeekKey            []byte
	SeekAtTx           uint64
	Desc               bool
	Limit              int
	MinScore, MaxScore *float64
}

// ZScan lists members of a sorted set without verification.
func (c *Client) ZScan(ctx context.Context, set []byte, opts ZScanOptions) ([]model.Entry, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return nil, err
	}
	entries, err := svc.ZScan(ctx, schema.ZScanRequest{
		Set: set, SeekKey: opts.SeekKey, SeekAtTx: opts.SeekAtTx,
		Desc: opts.Desc, Limit: opts.Limit, MinScore: opts.MinScore, MaxScore: opts.MaxScore,
	})
	if err != nil {
		return nil, ledgerdberr.MapServerError(err)
	}
	return entries, nil
}

// HistoryOptions configures History.
type HistoryOptions struct {
	Offset uint64
	Desc   bool
	Limit  int
}

// History lists prior revisions of key without verification.
func (c *Client) History(ctx context.Context, key []byte, opts HistoryOptions) ([]model.Entry, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return nil, err
	}
	entries, err := svc.History(ctx, schema.HistoryRequest{Key: key, Offset: opts.Offset, Desc: opts.Desc, Limit: opts.Limit})
	if err != nil {
		return nil, ledgerdberr.MapServerError(err)
	}
	return entries, nil
}

// TxScan lists transactions starting at initialTx without verification.
func (c *Client) TxScan(ctx context.Context, initialTx uint64, limit int, desc bool) ([]model.Tx, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return nil, err
	}
	txs, err := svc.TxScan(ctx, schema.TxScanRequest{InitialTx: initialTx, Limit: limit, Desc: desc})
	if err != nil {
		return nil, ledgerdberr.MapServerError(err)
	}
	return txs, nil
}

// TxByID reads a transaction by id without verification.
func (c *Client) TxByID(ctx context.Context, id uint64) (model.Tx, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.Tx{}, err
	}
	tx, err := svc.TxByID(ctx, schema.TxRequest{Tx: id})
	if err != nil {
		return model.Tx{}, ledgerdberr.MapServerError(err)
	}
	return tx, nil
}

// Set writes key=value without verification.
func (c *Client) Set(ctx context.Context, key, value []byte) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}
	header, err := svc.Set(ctx, schema.SetRequest{KVs: []schema.KV{{Key: key, Value: value}}})
	if err != nil {
		return model.TxHeader{}, ledgerdberr.MapServerError(err)
	}
	return header, nil
}

// SetAll writes multiple key/value pairs in a single transaction without
// verification.
func (c *Client) SetAll(ctx context.Context, kvs []schema.KV) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}
	header, err := svc.Set(ctx, schema.SetRequest{KVs: kvs})
	if err != nil {
		return model.TxHeader{}, ledgerdberr.MapServerError(err)
	}
	return header, nil
}

// Delete removes key without verification.
func (c *Client) Delete(ctx context.Context, key []byte) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}
	header, err := svc.Delete(ctx, key)
	if err != nil {
		return model.TxHeader{}, ledgerdberr.MapServerError(err)
	}
	return header, nil
}

// ZAdd adds a scored member to a sorted set without verification.
func (c *Client) ZAdd(ctx context.Context, set, key []byte, score float64) (model.TxHeader, error) {
	svc, err := c.serviceClient()
	if err != nil {
		return model.TxHeader{}, err
	}
	header, err := svc.ZAdd(ctx, schema.ZAddRequest{Set: set, Key: key, Score: score})
	if err != nil {
		return model.TxHeader{}, ledgerdberr.MapServerError(err)
	}
	return header, nil
}
