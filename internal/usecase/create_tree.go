package usecase

import (
	"context"
	"errors"
	"time"

	"notetree/internal/domain"
)

type Clock func() time.Time

// AuthorityDeriver produces the tree-scoped capability used to authorize
// engine calls. Derivation is stateless; a failure is fatal for the tree id.
type AuthorityDeriver func(treeID domain.Address) (domain.AuthorityProof, error)

// CreateTree allocates a new empty Merkle tree with a fixed shape and
// registers it. The shape is immutable afterwards; the returned tree's root
// is the canonical empty value for the requested depth.
type CreateTree struct {
	Engine    domain.TreeEngine
	Trees     domain.TreeRepository
	Authority AuthorityDeriver
	Clock     Clock
}

func (uc *CreateTree) Run(ctx context.Context, treeID domain.Address, maxDepth, maxBufferSize uint32) (domain.Tree, error) {
	if uc == nil || uc.Engine == nil || uc.Authority == nil {
		return domain.Tree{}, errors.New("tree engine and authority required")
	}
	if treeID.IsZero() {
		return domain.Tree{}, domain.ErrInvalidTreeParams
	}

	proof, err := uc.Authority(treeID)
	if err != nil {
		return domain.Tree{}, err
	}
	root, err := uc.Engine.InitTree(ctx, proof, treeID, maxDepth, maxBufferSize)
	if err != nil {
		return domain.Tree{}, err
	}

	now := uc.now()
	tree := domain.Tree{
		ID:            treeID,
		MaxDepth:      maxDepth,
		MaxBufferSize: maxBufferSize,
		AuthorityBump: proof.Bump,
		Root:          root,
		Seq:           0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if uc.Trees != nil {
		if err := uc.Trees.Create(ctx, tree); err != nil {
			return domain.Tree{}, err
		}
	}
	return tree, nil
}

func (uc *CreateTree) now() time.Time {
	if uc != nil && uc.Clock != nil {
		return uc.Clock()
	}
	return time.Now().UTC()
}
