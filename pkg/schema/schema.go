// Package schema defines the wire message shapes the verification core
// exchanges with a server, and the ServiceClient boundary a generated RPC
// stub (out of scope per spec.md §1) is expected to implement. The core
// never constructs these over the wire itself; it only depends on this
// interface, so it works with any transport that can produce one
// (spec.md §1, §6).
package schema

import (
	"context"

	"github.com/ledgerdb/ledgerdb-go/pkg/model"
	"github.com/ledgerdb/ledgerdb-go/pkg/proof"
)

// KeyRequest requests a value for Key, optionally pinned to a transaction or
// revision.
type KeyRequest struct {
	Key        []byte
	AtTx       uint64
	SinceTx    uint64
	AtRevision int64
	NoWait     bool
}

// VerifiableGetRequest wraps a KeyRequest with the last transaction id the
// client already trusts, so the server knows how far back to prove from.
type VerifiableGetRequest struct {
	KeyRequest   KeyRequest
	ProveSinceTx uint64
}

// VerifiableEntry is the server's response to a VerifiableGetRequest.
type VerifiableEntry struct {
	Entry          model.Entry
	VerifiableTx   VerifiableTx
	InclusionProof proof.InclusionProof
}

// KV is a single key/value/metadata triple for a SetRequest.
type KV struct {
	Key      []byte
	Value    []byte
	Metadata *model.EntryMetadata
}

// SetRequest writes one or more key/value pairs in a single transaction.
type SetRequest struct {
	KVs []KV
}

// VerifiableSetRequest wraps a SetRequest with the last trusted transaction
// id.
type VerifiableSetRequest struct {
	SetRequest   SetRequest
	ProveSinceTx uint64
}

// VerifiableTx is the server's response to a verifiable write or to
// VerifiableTxRequest: the committed transaction plus its dual proof and
// optional server signature.
type VerifiableTx struct {
	Tx        model.Tx
	DualProof proof.DualProof
	Signature []byte
}

// ZAddRequest adds a scored member to a sorted set.
type ZAddRequest struct {
	Set      []byte
	Key      []byte
	AtTx     uint64
	Score    float64
	BoundRef bool
}

// VerifiableZAddRequest wraps a ZAddRequest with the last trusted
// transaction id.
type VerifiableZAddRequest struct {
	ZAddRequest  ZAddRequest
	ProveSinceTx uint64
}

// ScanRequest lists keys with a given prefix.
type ScanRequest struct {
	SeekKey []byte
	Prefix  []byte
	Desc    bool
	Limit   int
	SinceTx uint64
	NoWait  bool
}

// ZScanRequest lists members of a sorted set.
type ZScanRequest struct {
	Set     []byte
	SeekKey []byte
	SeekAtTx uint64
	Desc    bool
	Limit   int
	SinceTx uint64
	MinScore, MaxScore *float64
}

// HistoryRequest lists prior revisions of a key.
type HistoryRequest struct {
	Key     []byte
	Offset  uint64
	Desc    bool
	Limit   int
	SinceTx uint64
}

// TxScanRequest lists entries of transactions in a range.
type TxScanRequest struct {
	InitialTx uint64
	Limit     int
	Desc      bool
}

// TxRequest requests a single transaction by id.
type TxRequest struct {
	Tx uint64
}

// VerifiableTxRequest wraps a TxRequest with the last trusted transaction
// id.
type VerifiableTxRequest struct {
	Tx           uint64
	ProveSinceTx uint64
}

// ImmutableState is the wire shape of the server's current database state,
// as returned by CurrentState.
type ImmutableState struct {
	Db        string
	TxID      uint64
	TxHash    [32]byte
	Signature []byte
}

// LoginRequest authenticates a user against a database.
type LoginRequest struct {
	User     []byte
	Password []byte
	Database string
}

// LoginResponse carries the session token and server identity.
type LoginResponse struct {
	Token      string
	ServerUUID string
}

// ServiceClient is the RPC surface the verification core calls through. A
// generated gRPC stub wraps the real wire protocol and implements this
// interface; the core has no dependency on the generated types themselves.
type ServiceClient interface {
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	Logout(ctx context.Context) error
	Health(ctx context.Context) error
	Keepalive(ctx context.Context) error

	CurrentState(ctx context.Context) (ImmutableState, error)

	Get(ctx context.Context, req KeyRequest) (model.Entry, error)
	GetAll(ctx context.Context, keys [][]byte) ([]model.Entry, error)
	VerifiableGet(ctx context.Context, req VerifiableGetRequest) (VerifiableEntry, error)

	Set(ctx context.Context, req SetRequest) (model.TxHeader, error)
	VerifiableSet(ctx context.Context, req VerifiableSetRequest) (VerifiableTx, error)
	SetReference(ctx context.Context, key, referencedKey []byte, atTx uint64) (model.TxHeader, error)
	VerifiableSetReference(ctx context.Context, key, referencedKey []byte, atTx uint64, proveSinceTx uint64) (VerifiableTx, error)
	Delete(ctx context.Context, key []byte) (model.TxHeader, error)

	ZAdd(ctx context.Context, req ZAddRequest) (model.TxHeader, error)
	VerifiableZAdd(ctx context.Context, req VerifiableZAddRequest) (VerifiableTx, error)
	ZScan(ctx context.Context, req ZScanRequest) ([]model.Entry, error)

	Scan(ctx context.Context, req ScanRequest) ([]model.Entry, error)
	History(ctx context.Context, req HistoryRequest) ([]model.Entry, error)

	TxByID(ctx context.Context, req TxRequest) (model.Tx, error)
	VerifiableTxByID(ctx context.Context, req VerifiableTxRequest) (VerifiableTx, error)
	TxScan(ctx context.Context, req TxScanRequest) ([]model.Tx, error)
}
