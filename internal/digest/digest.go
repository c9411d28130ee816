// Package digest computes deterministic content fingerprints for stored payloads.
package digest

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/spaolacci/murmur3"
)

// HexLen is the length of the hex string returned by Sum.
const HexLen = 32

// Sum returns a fixed-length hex fingerprint of payload.
// The same input always yields the same output, within and across process
// runs, on any platform. The digest is written alongside each record and
// recomputed at verification time; a mismatch means the stored value or its
// checksum mutated after the write.
func Sum(payload []byte) string {
	h1, h2 := murmur3.Sum128(payload)

	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], h1)
	binary.BigEndian.PutUint64(buf[8:16], h2)
	return hex.EncodeToString(buf[:])
}

// SumString is a convenience wrapper for text payloads.
func SumString(payload string) string {
	return Sum([]byte(payload))
}
