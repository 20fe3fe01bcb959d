// Package proof defines the typed proof structures returned by verifiable
// operations and the pure functions that validate them against trusted
// roots.
package proof

import "github.com/ledgerdb/ledgerdb-go/pkg/model"

// InclusionProof is a Merkle path proving that a leaf at position Leaf
// belongs to a tree of the given Width.
type InclusionProof struct {
	Leaf  int
	Width int
	Terms [][32]byte
}

// LinearProof chains Alh values from SourceTxID to TargetTxID.
type LinearProof struct {
	SourceTxID uint64
	TargetTxID uint64
	Terms      [][32]byte
}

// ConsistencyProof is a standard RFC 6962-shaped Merkle consistency proof
// between an old and a new tree size.
type ConsistencyProof struct {
	Terms [][32]byte
}

// LinearAdvanceProof re-anchors a linear proof's source position against a
// binary-linked tree that has grown since the source transaction. It is
// only present when the target is more than one transaction past the
// source (see SPEC_FULL.md §3).
type LinearAdvanceProof struct {
	LinearTerms     [][32]byte
	InclusionProofs []InclusionProof
}

// DualProof combines Merkle-tree consistency over the binary-linked tree
// with a linear-chain proof, establishing that TargetTxHeader legitimately
// succeeds SourceTxHeader.
type DualProof struct {
	SourceTxHeader model.TxHeader
	TargetTxHeader model.TxHeader

	InclusionProof     InclusionProof
	ConsistencyProof   ConsistencyProof
	TargetBlTxAlh      [32]byte
	LastInclusionProof InclusionProof
	LinearProof        LinearProof
	LinearAdvanceProof *LinearAdvanceProof
}
