package proof

import (
	"crypto/sha256"
	"encoding/binary"
)

// VerifyLinear walks p.Terms starting from sourceAlh, at each step folding
// in the incrementing transaction id, and accepts iff the final value
// equals targetAlh. sourceId == targetId is a degenerate case requiring an
// empty term list and sourceAlh == targetAlh (spec.md §8 boundary
// behaviors).
func VerifyLinear(p LinearProof, sourceAlh, targetAlh [32]byte) bool {
	if p.SourceTxID > p.TargetTxID {
		return false
	}

	if p.SourceTxID == p.TargetTxID {
		return len(p.Terms) == 0 && sourceAlh == targetAlh
	}

	expectedTerms := int(p.TargetTxID - p.SourceTxID)
	if len(p.Terms) != expectedTerms {
		return false
	}

	acc := sourceAlh
	txID := p.SourceTxID + 1

	for _, innerTerm := range p.Terms {
		acc = foldLinearTerm(txID, acc, innerTerm)
		txID++
	}

	return acc == targetAlh
}

// foldLinearTerm computes the next accumulative linear hash given the
// current one and the inner-hash term for transaction txID: SHA256(txId ‖
// prev ‖ innerTerm).
func foldLinearTerm(txID uint64, prev, innerTerm [32]byte) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], txID)

	h := make([]byte, 0, 8+32+32)
	h = append(h, buf[:]...)
	h = append(h, prev[:]...)
	h = append(h, innerTerm[:]...)
	return sha256.Sum256(h)
}
