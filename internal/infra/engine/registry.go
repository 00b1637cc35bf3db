// Package engine exposes the Merkle tree collaborator behind the four-call
// interface the mutation protocol uses. It keys trees by address, enforces
// the tree-scoped authority on every call, and serializes mutations per
// tree while independent trees proceed fully in parallel.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"notetree/internal/domain"
	"notetree/internal/infra/authority"
	"notetree/internal/infra/merkle"
)

type Registry struct {
	mu    sync.RWMutex
	trees map[domain.Address]*merkle.Tree
}

func NewRegistry() *Registry {
	return &Registry{
		trees: make(map[domain.Address]*merkle.Tree),
	}
}

func (r *Registry) InitTree(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, maxDepth, maxBufferSize uint32) (domain.Hash, error) {
	if err := ctx.Err(); err != nil {
		return domain.Hash{}, err
	}
	if err := authority.Verify(proof, treeID); err != nil {
		return domain.Hash{}, err
	}

	tree, err := merkle.NewEmpty(maxDepth, maxBufferSize)
	if err != nil {
		return domain.Hash{}, fmt.Errorf("%w: %v", domain.ErrInvalidTreeParams, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.trees[treeID]; exists {
		return domain.Hash{}, domain.ErrTreeAlreadyInitialized
	}
	r.trees[treeID] = tree
	return tree.Root(), nil
}

func (r *Registry) AppendLeaf(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, leaf domain.Hash) (uint32, domain.Hash, error) {
	tree, err := r.authorized(ctx, proof, treeID)
	if err != nil {
		return 0, domain.Hash{}, err
	}
	index, root, err := tree.Append(leaf)
	if err != nil {
		return 0, domain.Hash{}, mapTreeError(err)
	}
	return index, root, nil
}

func (r *Registry) VerifyLeaf(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, root domain.Hash, leaf domain.Hash, index uint32) error {
	tree, err := r.authorized(ctx, proof, treeID)
	if err != nil {
		return err
	}
	if err := tree.VerifyLeaf(root, leaf, index); err != nil {
		return mapVerifyError(err)
	}
	return nil
}

func (r *Registry) ReplaceLeaf(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address, root domain.Hash, oldLeaf, newLeaf domain.Hash, index uint32) (domain.Hash, error) {
	tree, err := r.authorized(ctx, proof, treeID)
	if err != nil {
		return domain.Hash{}, err
	}
	newRoot, err := tree.ReplaceLeaf(root, oldLeaf, newLeaf, index)
	if err != nil {
		return domain.Hash{}, mapReplaceError(err)
	}
	return newRoot, nil
}

// Tree returns the live tree for read-only inspection.
func (r *Registry) Tree(treeID domain.Address) (*merkle.Tree, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[treeID]
	return tree, ok
}

func (r *Registry) authorized(ctx context.Context, proof domain.AuthorityProof, treeID domain.Address) (*merkle.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := authority.Verify(proof, treeID); err != nil {
		return nil, err
	}
	r.mu.RLock()
	tree, ok := r.trees[treeID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	return tree, nil
}

func mapTreeError(err error) error {
	if errors.Is(err, merkle.ErrTreeFull) {
		return fmt.Errorf("%w: %v", domain.ErrTreeCapacityExceeded, err)
	}
	return err
}

// mapVerifyError folds every verification failure into the
// concurrency-conflict taxonomy the protocol exposes: a root outside the
// window is surfaced on its own so callers can tell saturation from a
// plain stale-root/wrong-content conflict.
func mapVerifyError(err error) error {
	switch {
	case errors.Is(err, merkle.ErrRootNotInWindow):
		return fmt.Errorf("%w: %v", domain.ErrRootWindowExceeded, err)
	case errors.Is(err, merkle.ErrIndexOutOfRange),
		errors.Is(err, merkle.ErrLeafChanged),
		errors.Is(err, merkle.ErrLeafMismatch):
		return fmt.Errorf("%w: %v", domain.ErrLeafVerificationFailed, err)
	default:
		return err
	}
}

// mapReplaceError distinguishes the replace step: the claimed root was
// already re-verified, so a same-index change here means another mutation
// interleaved between verify and replace.
func mapReplaceError(err error) error {
	switch {
	case errors.Is(err, merkle.ErrRootNotInWindow):
		return fmt.Errorf("%w: %v", domain.ErrRootWindowExceeded, err)
	case errors.Is(err, merkle.ErrLeafChanged):
		return fmt.Errorf("%w: %v", domain.ErrConcurrentRootMismatch, err)
	case errors.Is(err, merkle.ErrIndexOutOfRange), errors.Is(err, merkle.ErrLeafMismatch):
		return fmt.Errorf("%w: %v", domain.ErrLeafVerificationFailed, err)
	default:
		return err
	}
}

var _ domain.TreeEngine = (*Registry)(nil)
