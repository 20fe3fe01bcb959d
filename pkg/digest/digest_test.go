package digest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerdb/ledgerdb-go/pkg/model"
)

func TestAlhDeterministic(t *testing.T) {
	h := &model.TxHeader{
		ID:       1,
		Ts:       1700000000,
		NEntries: 1,
		Eh:       SHA256([]byte("eh")),
		BlTxID:   0,
		BlRoot:   [32]byte{},
		Version:  model.TxHeaderVersion0,
	}

	a1, err := Alh(h)
	require.NoError(t, err)

	a2, err := Alh(h)
	require.NoError(t, err)

	require.Equal(t, a1, a2)
}

func TestAlhChangesWithPrevAlh(t *testing.T) {
	base := &model.TxHeader{ID: 2, Ts: 1, NEntries: 1, Eh: SHA256([]byte("eh"))}

	a1, err := Alh(base)
	require.NoError(t, err)

	withPrev := *base
	withPrev.PrevAlh = SHA256([]byte("something"))

	a2, err := Alh(&withPrev)
	require.NoError(t, err)

	require.NotEqual(t, a1, a2)
}

func TestAlhUnsupportedVersionFailsClosed(t *testing.T) {
	h := &model.TxHeader{ID: 1, Version: model.TxHeaderVersion(99)}

	_, err := Alh(h)
	require.ErrorIs(t, err, ErrUnsupportedTxHeaderVersion)
}

func TestFoldedHValueWithAndWithoutMetadata(t *testing.T) {
	plain := FoldedHValue([]byte("value"), nil, model.TxHeaderVersion1)
	require.Equal(t, SHA256([]byte("value")), plain)

	withMeta := FoldedHValue([]byte("value"), &model.EntryMetadata{Deleted: true}, model.TxHeaderVersion1)
	require.NotEqual(t, plain, withMeta)

	// Metadata is ignored under TxHeaderVersion0.
	ignoredUnderV0 := FoldedHValue([]byte("value"), &model.EntryMetadata{Deleted: true}, model.TxHeaderVersion0)
	require.Equal(t, plain, ignoredUnderV0)
}

func TestEntryDigestTamperDetection(t *testing.T) {
	d1 := EntryDigest([]byte("key"), []byte("value"), nil, model.TxHeaderVersion0)
	d2 := EntryDigest([]byte("key"), []byte("tampered"), nil, model.TxHeaderVersion0)
	require.NotEqual(t, d1, d2)

	d3 := EntryDigest([]byte("otherkey"), []byte("value"), nil, model.TxHeaderVersion0)
	require.NotEqual(t, d1, d3)
}

func TestVerifySignatureRoundTrip(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	st := &model.ImmuState{Db: "defaultdb", TxID: 7, TxHash: SHA256([]byte("tx7"))}

	payload := append(append([]byte(st.Db), putUint64(nil, st.TxID)...), st.TxHash[:]...)
	digest := SHA256(payload)

	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	require.NoError(t, err)
	st.Signature = sig

	require.True(t, VerifySignature(&priv.PublicKey, st))

	tampered := *st
	tampered.TxID = 8
	require.False(t, VerifySignature(&priv.PublicKey, &tampered))
}

func TestVerifySignatureRejectsMissingSignature(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	st := &model.ImmuState{Db: "defaultdb", TxID: 1}
	require.False(t, VerifySignature(&priv.PublicKey, st))
}
