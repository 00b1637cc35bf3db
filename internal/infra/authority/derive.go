// Package authority derives the tree-scoped signing capability used to
// authorize every mutation against a tree. The handle is computed from the
// tree identity alone, so it needs no storage and no key custody: a handle
// is acceptable only if it is not a valid edwards25519 point, which
// guarantees no private key can ever exist for it.
package authority

import (
	"crypto/sha256"

	"notetree/internal/domain"

	"filippo.io/edwards25519"
)

// derivationMarker domain-separates authority candidates from every other
// sha256 use in the module.
const derivationMarker = "TreeAuthority"

// Derive searches bumps from 255 downward for the first candidate that
// falls off the curve and returns it as the tree's authority proof. The
// search is deterministic: the same tree id always yields the same handle
// and bump. Exhausting all 256 bumps fails with ErrAuthorityDerivation;
// that tree id can never be authorized.
func Derive(treeID domain.Address) (domain.AuthorityProof, error) {
	for bump := 255; bump >= 0; bump-- {
		handle := candidate(treeID, uint8(bump))
		if onCurve(handle) {
			continue
		}
		return domain.AuthorityProof{
			TreeID: treeID,
			Handle: handle,
			Bump:   uint8(bump),
		}, nil
	}
	return domain.AuthorityProof{}, domain.ErrAuthorityDerivation
}

// Verify checks a presented proof against a fresh derivation for the given
// tree. The bump is taken from the proof, so a proof derived for one tree
// can never authorize another: the tree id is part of the preimage.
func Verify(proof domain.AuthorityProof, treeID domain.Address) error {
	if proof.TreeID != treeID {
		return domain.ErrUnauthorized
	}
	handle := candidate(treeID, proof.Bump)
	if handle != proof.Handle || onCurve(handle) {
		return domain.ErrUnauthorized
	}
	return nil
}

func candidate(treeID domain.Address, bump uint8) domain.Address {
	h := sha256.New()
	h.Write(treeID[:])
	h.Write([]byte{bump})
	h.Write([]byte(derivationMarker))
	var out domain.Address
	h.Sum(out[:0])
	return out
}

func onCurve(a domain.Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
