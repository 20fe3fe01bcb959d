package proof

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

// chainAlh builds a toy linear chain of alh values the way digest.Alh
// folds id/prevAlh/innerHash, without depending on pkg/digest, so
// VerifyLinear can be exercised standalone.
func chainAlh(start [32]byte, startID uint64, innerTerms [][32]byte) [32]byte {
	acc := start
	id := startID + 1
	for _, term := range innerTerms {
		acc = foldLinearTerm(id, acc, term)
		id++
	}
	return acc
}

func TestVerifyLinearAcceptsValidChain(t *testing.T) {
	source := sha256.Sum256([]byte("source"))
	terms := [][32]byte{
		sha256.Sum256([]byte("t1")),
		sha256.Sum256([]byte("t2")),
		sha256.Sum256([]byte("t3")),
	}
	target := chainAlh(source, 5, terms)

	p := LinearProof{SourceTxID: 5, TargetTxID: 8, Terms: terms}
	require.True(t, VerifyLinear(p, source, target))
}

func TestVerifyLinearDegenerateSameID(t *testing.T) {
	alh := sha256.Sum256([]byte("same"))
	p := LinearProof{SourceTxID: 3, TargetTxID: 3}
	require.True(t, VerifyLinear(p, alh, alh))

	other := sha256.Sum256([]byte("different"))
	require.False(t, VerifyLinear(p, alh, other))
}

func TestVerifyLinearRejectsWrongTermCount(t *testing.T) {
	source := sha256.Sum256([]byte("source"))
	terms := [][32]byte{sha256.Sum256([]byte("t1"))}
	target := chainAlh(source, 1, terms)

	p := LinearProof{SourceTxID: 1, TargetTxID: 3, Terms: terms}
	require.False(t, VerifyLinear(p, source, target))
}

func TestVerifyLinearRejectsTamperedTerm(t *testing.T) {
	source := sha256.Sum256([]byte("source"))
	terms := [][32]byte{sha256.Sum256([]byte("t1")), sha256.Sum256([]byte("t2"))}
	target := chainAlh(source, 10, terms)

	p := LinearProof{SourceTxID: 10, TargetTxID: 12, Terms: [][32]byte{terms[0], sha256.Sum256([]byte("tampered"))}}
	require.False(t, VerifyLinear(p, source, target))
}

func TestVerifyLinearRejectsSourceAfterTarget(t *testing.T) {
	require.False(t, VerifyLinear(LinearProof{SourceTxID: 5, TargetTxID: 2}, [32]byte{}, [32]byte{}))
}
