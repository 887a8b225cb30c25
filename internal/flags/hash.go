package flags

import (
	"crypto/sha256"
	"encoding/binary"
)

// StableHash maps (userID, flagKey) deterministically onto [0, 100). It is
// the first 32 bits of SHA-256 over "userId:flagKey", read big-endian,
// taken modulo 100 — the same inputs must produce the same bucket on any
// machine, any run, forever.
func StableHash(userID, flagKey string) uint32 {
	sum := sha256.Sum256([]byte(userID + ":" + flagKey))
	return binary.BigEndian.Uint32(sum[:4]) % 100
}
