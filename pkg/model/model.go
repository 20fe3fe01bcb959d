// Package model defines the wire-independent data types shared by the
// verification core: entries, transaction headers, and the client's trusted
// state.
package model

// Key and Value are opaque byte strings; the protocol layer never assumes a
// text encoding.
type Key = []byte
type Value = []byte

// EntryMetadata carries per-entry flags. A verified read of an entry whose
// Deleted flag is set must fail.
type EntryMetadata struct {
	Deleted        bool
	Expired        bool
	ExpirationTime int64
	NonIndexable   bool
}

// Reference records that an Entry was reached through an alias key rather
// than its own key.
type Reference struct {
	Key []byte
	AtTx uint64
}

// Entry is a single key/value record as returned by the server, possibly
// reached via an alias (Reference).
type Entry struct {
	Tx           uint64
	Key          []byte
	Value        []byte
	Metadata     *EntryMetadata
	Revision     int64
	ReferencedBy *Reference
}

// BoundKey returns the key that verification must bind against: the alias
// key when the entry was reached through a reference, otherwise Key itself.
func (e *Entry) BoundKey() []byte {
	if e.ReferencedBy != nil {
		return e.ReferencedBy.Key
	}
	return e.Key
}

// IsDeleted reports whether the entry's metadata marks it deleted.
func (e *Entry) IsDeleted() bool {
	return e.Metadata != nil && e.Metadata.Deleted
}

// TxHeaderVersion enumerates the supported alh inner-hash layouts. Per
// spec.md REDESIGN FLAGS, an implementer must fail closed on an unknown
// version rather than guess its layout.
type TxHeaderVersion int32

const (
	TxHeaderVersion0 TxHeaderVersion = 0
	TxHeaderVersion1 TxHeaderVersion = 1
)

// TxHeader is the per-transaction header that the accumulative linear hash
// (Alh) chains together.
type TxHeader struct {
	ID       uint64
	PrevAlh  [32]byte
	Ts       int64
	NEntries int
	Eh       [32]byte
	BlTxID   uint64
	BlRoot   [32]byte
	Version  TxHeaderVersion

	// Metadata is only populated for TxHeaderVersion1; nil otherwise.
	Metadata []byte
}

// TxEntry is a single per-transaction entry used to build the transaction's
// Merkle leaf digests.
type TxEntry struct {
	HValue   [32]byte
	VLen     int
	Key      []byte
	Metadata *EntryMetadata
}

// Tx is a full transaction: header plus entries.
type Tx struct {
	Header  TxHeader
	Entries []TxEntry
}

// ImmuState is the client's last-trusted database state.
type ImmuState struct {
	Db        string
	TxID      uint64
	TxHash    [32]byte
	Signature []byte
}

// SessionState enumerates the lifecycle of a client session, replacing the
// busy-wait/flag pattern named in spec.md DESIGN NOTES §9 with an explicit
// state machine.
type SessionState int32

const (
	SessionClosed SessionState = iota
	SessionOpening
	SessionOpen
	SessionClosing
)

func (s SessionState) String() string {
	switch s {
	case SessionClosed:
		return "closed"
	case SessionOpening:
		return "opening"
	case SessionOpen:
		return "open"
	case SessionClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Session identifies an authenticated connection to the server. ID is a
// client-generated correlation identifier used for logging; Token is the
// opaque credential the server issued and expects back on every subsequent
// call and on Keepalive/Logout.
type Session struct {
	ID         string
	Token      string
	ServerUUID string
	Db         string
}
