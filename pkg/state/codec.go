package state

import (
	"encoding/binary"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/ledgerdb/ledgerdb-go/pkg/model"
)

// ErrCorruptedRecord is returned when a persisted state record fails to
// decode: truncated input or a length field that overruns the buffer.
var ErrCorruptedRecord = ierrors.New("state: corrupted persisted record")

// encodeState lays out an ImmuState as: dbLen(4) ‖ db ‖ txId(8) ‖ txHash(32)
// ‖ sigLen(4) ‖ signature. All integers are big-endian fixed-width, per
// spec.md §6.
func encodeState(st model.ImmuState) []byte {
	buf := make([]byte, 0, 4+len(st.Db)+8+32+4+len(st.Signature))

	var n4 [4]byte
	binary.BigEndian.PutUint32(n4[:], uint32(len(st.Db)))
	buf = append(buf, n4[:]...)
	buf = append(buf, st.Db...)

	var n8 [8]byte
	binary.BigEndian.PutUint64(n8[:], st.TxID)
	buf = append(buf, n8[:]...)

	buf = append(buf, st.TxHash[:]...)

	binary.BigEndian.PutUint32(n4[:], uint32(len(st.Signature)))
	buf = append(buf, n4[:]...)
	buf = append(buf, st.Signature...)

	return buf
}

func decodeState(raw []byte) (model.ImmuState, error) {
	var st model.ImmuState

	if len(raw) < 4 {
		return st, ErrCorruptedRecord
	}
	dbLen := int(binary.BigEndian.Uint32(raw))
	raw = raw[4:]

	if len(raw) < dbLen {
		return st, ErrCorruptedRecord
	}
	st.Db = string(raw[:dbLen])
	raw = raw[dbLen:]

	if len(raw) < 8+32 {
		return st, ErrCorruptedRecord
	}
	st.TxID = binary.BigEndian.Uint64(raw)
	raw = raw[8:]
	copy(st.TxHash[:], raw[:32])
	raw = raw[32:]

	if len(raw) < 4 {
		return st, ErrCorruptedRecord
	}
	sigLen := int(binary.BigEndian.Uint32(raw))
	raw = raw[4:]

	if len(raw) < sigLen {
		return st, ErrCorruptedRecord
	}
	st.Signature = append([]byte(nil), raw[:sigLen]...)

	return st, nil
}
