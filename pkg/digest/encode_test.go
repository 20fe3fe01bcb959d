package digest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutUintWidths(t *testing.T) {
	require.Len(t, putUint16(nil, 1), 2)
	require.Len(t, putUint32(nil, 1), 4)
	require.Len(t, putUint64(nil, 1), 8)
	require.Len(t, putFloat64(nil, 1.5), 8)
}

func TestEncodeZKeyIsOrderSensitive(t *testing.T) {
	a := EncodeZKey([]byte("set"), []byte("a"), 1.0, 0)
	b := EncodeZKey([]byte("set"), []byte("b"), 1.0, 0)
	require.NotEqual(t, a, b)

	sameInputsMatch := EncodeZKey([]byte("set"), []byte("a"), 1.0, 0)
	require.Equal(t, a, sameInputsMatch)

	differentScore := EncodeZKey([]byte("set"), []byte("a"), 2.0, 0)
	require.NotEqual(t, a, differentScore)
}
