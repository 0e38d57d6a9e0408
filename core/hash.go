package core

import "crypto/sha256"

// DoubleSHA256 is the canonical Bitcoin-family hash: SHA-256 applied
// twice. Used for transaction ids, script hashes, status digests, and
// Merkle nodes.
func DoubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}
