// Package leafcodec canonicalizes note content into Merkle tree leaves and
// serialized log records. Both encodings are deterministic: identical input
// always yields identical bytes, so off-chain indexers can recompute leaves
// from the event stream alone.
package leafcodec

import (
	"notetree/internal/domain"

	"golang.org/x/crypto/sha3"
)

// EncodeLeaf hashes note content together with the sender identity into a
// leaf value: keccak256(content || sender). The sender has a fixed 32-byte
// length, so the unseparated concatenation is unambiguous.
func EncodeLeaf(content []byte, sender domain.Address) domain.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(content)
	h.Write(sender[:])
	var leaf domain.Hash
	h.Sum(leaf[:0])
	return leaf
}
