package digest

import (
	"encoding/binary"
	"math"
)

// putUint64 appends the big-endian, fixed-width encoding of v to dst.
func putUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// putUint32 appends the big-endian, fixed-width encoding of v to dst.
func putUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// putUint16 appends the big-endian, fixed-width encoding of v to dst.
func putUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

// putInt64 appends the big-endian, fixed-width encoding of v to dst.
func putInt64(dst []byte, v int64) []byte {
	return putUint64(dst, uint64(v))
}

// putFloat64 appends the big-endian IEEE-754 encoding of v to dst, used for
// sorted-set scores.
func putFloat64(dst []byte, v float64) []byte {
	return putUint64(dst, math.Float64bits(v))
}

// EncodeZKey builds the canonical encodedKey for a sorted-set (Z) entry:
// set ‖ keyLen(8) ‖ key ‖ score(8) ‖ atTx(8).
func EncodeZKey(set, key []byte, score float64, atTx uint64) []byte {
	buf := make([]byte, 0, len(set)+8+len(key)+8+8)
	buf = append(buf, set...)
	buf = putUint64(buf, uint64(len(key)))
	buf = append(buf, key...)
	buf = putFloat64(buf, score)
	buf = putUint64(buf, atTx)
	return buf
}
