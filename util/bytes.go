package util

import (
	"encoding/binary"
)

func Uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)

	return b
}

func Int64ToBytes(v int64) []byte {
	return Uint64ToBytes(uint64(v)) //nolint:gosec // two's complement bit pattern is intended
}

func Uint32ToBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)

	return b
}

// ConcatBytes joins the given slices into one freshly allocated slice.
func ConcatBytes(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}

	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}

	return out
}
