// Package digest implements the canonical byte layouts and hashing
// primitives the verification core is built on: the accumulative linear
// hash (Alh) chaining transaction headers, per-entry Merkle leaf digests,
// and server signature verification.
package digest

import (
	"crypto/ecdsa"
	"crypto/sha256"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/ledgerdb/ledgerdb-go/pkg/model"
)

// ErrUnsupportedTxHeaderVersion is returned by Alh when asked to hash a
// header whose version this build does not know how to lay out. Per
// spec.md's Open Question on proof versioning, an unknown version must fail
// closed rather than guess at a layout.
var ErrUnsupportedTxHeaderVersion = ierrors.New("digest: unsupported tx header version")

// SHA256 hashes b and returns the 32-byte digest.
func SHA256(b []byte) [32]byte {
	return sha256.Sum256(b)
}

// innerHash computes the version-dependent inner hash folded into Alh.
func innerHash(h *model.TxHeader) ([32]byte, error) {
	switch h.Version {
	case model.TxHeaderVersion0:
		buf := make([]byte, 0, 8+4+32+8+32)
		buf = putInt64(buf, h.Ts)
		buf = putUint32(buf, uint32(h.NEntries))
		buf = append(buf, h.Eh[:]...)
		buf = putUint64(buf, h.BlTxID)
		buf = append(buf, h.BlRoot[:]...)
		return sha256.Sum256(buf), nil

	case model.TxHeaderVersion1:
		inner := make([]byte, 0, 2+len(h.Metadata)+4+32)
		inner = putUint16(inner, uint16(h.Version))
		inner = append(inner, h.Metadata...)
		inner = putUint32(inner, uint32(h.NEntries))
		inner = append(inner, h.Eh[:]...)
		digestedInner := sha256.Sum256(inner)

		buf := make([]byte, 0, 8+8+32+32)
		buf = putInt64(buf, h.Ts)
		buf = putUint64(buf, h.BlTxID)
		buf = append(buf, h.BlRoot[:]...)
		buf = append(buf, digestedInner[:]...)
		return sha256.Sum256(buf), nil

	default:
		return [32]byte{}, ierrors.Wrapf(ErrUnsupportedTxHeaderVersion, "version %d", h.Version)
	}
}

// Alh computes the accumulative linear hash of h: alh = SHA256(id ‖ prevAlh
// ‖ innerHash(h)).
func Alh(h *model.TxHeader) ([32]byte, error) {
	inner, err := innerHash(h)
	if err != nil {
		return [32]byte{}, err
	}

	buf := make([]byte, 0, 8+32+32)
	buf = putUint64(buf, h.ID)
	buf = append(buf, h.PrevAlh[:]...)
	buf = append(buf, inner[:]...)
	return sha256.Sum256(buf), nil
}

// FoldedHValue computes the per-entry hValue' used as a Merkle leaf input:
// the plain digest of value, folded with metadata when version 1 metadata
// is present.
func FoldedHValue(value []byte, metadata *model.EntryMetadata, version model.TxHeaderVersion) [32]byte {
	valueDigest := sha256.Sum256(value)

	if version < model.TxHeaderVersion1 || metadata == nil {
		return valueDigest
	}

	metaBytes := encodeMetadata(metadata)

	buf := make([]byte, 0, len(metaBytes)+4+32)
	buf = append(buf, metaBytes...)
	buf = putUint32(buf, uint32(len(value)))
	buf = append(buf, valueDigest[:]...)
	return sha256.Sum256(buf)
}

// LeafDigest computes the per-entry Merkle leaf digest: SHA256(0x00 ‖
// encodedKey ‖ hValue). encodedKey is the plain key for ordinary entries or
// the Z-encoded key (see EncodeZKey) for sorted-set entries.
func LeafDigest(encodedKey []byte, hValue [32]byte) [32]byte {
	buf := make([]byte, 0, 1+len(encodedKey)+32)
	buf = append(buf, 0x00)
	buf = append(buf, encodedKey...)
	buf = append(buf, hValue[:]...)
	return sha256.Sum256(buf)
}

// EntryDigest computes the Merkle leaf digest for a plain (non sorted-set)
// entry directly from its key, value and metadata.
func EntryDigest(key, value []byte, metadata *model.EntryMetadata, version model.TxHeaderVersion) [32]byte {
	hv := FoldedHValue(value, metadata, version)
	return LeafDigest(key, hv)
}

// encodeMetadata serializes EntryMetadata flags into a stable byte layout.
// The layout is one flags byte (bit 0 deleted, bit 1 expired, bit 2
// non-indexable) followed by the 8-byte expiration time, so metadata with no
// flags set still encodes as 9 bytes.
func encodeMetadata(m *model.EntryMetadata) []byte {
	var flags byte
	if m.Deleted {
		flags |= 1 << 0
	}
	if m.Expired {
		flags |= 1 << 1
	}
	if m.NonIndexable {
		flags |= 1 << 2
	}

	buf := make([]byte, 0, 9)
	buf = append(buf, flags)
	buf = putInt64(buf, m.ExpirationTime)
	return buf
}

// VerifySignature verifies that state.Signature is a valid ECDSA (P-256,
// SHA-256 pre-hash, ASN.1/DER) signature over (db ‖ txId ‖ txHash) under
// pubKey. Any parse or curve error is treated as a verification failure,
// never as an unrelated error.
func VerifySignature(pubKey *ecdsa.PublicKey, state *model.ImmuState) bool {
	if pubKey == nil || state == nil || len(state.Signature) == 0 {
		return false
	}

	payload := make([]byte, 0, len(state.Db)+8+32)
	payload = append(payload, state.Db...)
	payload = putUint64(payload, state.TxID)
	payload = append(payload, state.TxHash[:]...)

	digest := sha256.Sum256(payload)

	return ecdsa.VerifyASN1(pubKey, digest[:], state.Signature)
}
