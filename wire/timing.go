package wire

import (
	"encoding/binary"
	"math"

	"github.com/feras-hamam/adastream/xerr"
)

// EncodeFloat64 frames a wall-clock duration (seconds) as 8
// little-endian bytes, the shape of the receiver's per-chunk timing
// reply (spec §4.4 step 3 / §4.6 step 2).
func EncodeFloat64(v float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	return b
}

// DecodeFloat64 is the inverse of EncodeFloat64.
func DecodeFloat64(b []byte) (float64, error) {
	if len(b) != 8 {
		return 0, xerr.New(xerr.KindProtocolViolation, "timing reply: expected 8 bytes, got %d", len(b))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}
