package domain

import "context"

// AuthorityProof is the tree-scoped capability presented with every engine
// call. The handle is derived from the tree identity alone; no private key
// exists for it. The engine re-derives the handle with the given bump and
// rejects proofs that do not match.
type AuthorityProof struct {
	TreeID Address
	Handle Address
	Bump   uint8
}

// TreeEngine is the external Merkle tree collaborator. Each call is atomic:
// it either fully commits or leaves the tree untouched. The engine is the
// sole arbiter of ordering within one tree; a mutation is accepted only if
// the caller's claimed root is still inside the engine's bounded window of
// recently valid roots.
type TreeEngine interface {
	InitTree(ctx context.Context, proof AuthorityProof, treeID Address, maxDepth, maxBufferSize uint32) (Hash, error)
	AppendLeaf(ctx context.Context, proof AuthorityProof, treeID Address, leaf Hash) (uint32, Hash, error)
	VerifyLeaf(ctx context.Context, proof AuthorityProof, treeID Address, root Hash, leaf Hash, index uint32) error
	ReplaceLeaf(ctx context.Context, proof AuthorityProof, treeID Address, root Hash, oldLeaf, newLeaf Hash, index uint32) (Hash, error)
}
