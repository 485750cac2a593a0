package checkpoint

import (
	"crypto/sha256"
	"encoding/binary"
	"io"
	"math"
)

// ComputeChecksumReader computes the SHA-256 of everything r yields.
func ComputeChecksumReader(r io.Reader) ([32]byte, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return [32]byte{}, err
	}
	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

func float64FromBits(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
