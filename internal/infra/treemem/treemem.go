// Package treemem is the in-memory tree registry used when no database is
// configured.
package treemem

import (
	"context"
	"sync"
	"time"

	"notetree/internal/domain"
)

type Repository struct {
	mu    sync.RWMutex
	trees map[domain.Address]domain.Tree
	clock func() time.Time
}

func New() *Repository {
	return NewWithClock(nil)
}

func NewWithClock(clock func() time.Time) *Repository {
	if clock == nil {
		clock = time.Now
	}
	return &Repository{
		trees: make(map[domain.Address]domain.Tree),
		clock: clock,
	}
}

func (r *Repository) Create(ctx context.Context, tree domain.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.trees[tree.ID]; exists {
		return domain.ErrTreeAlreadyInitialized
	}
	r.trees[tree.ID] = tree
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id domain.Address) (*domain.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	tree, ok := r.trees[id]
	if !ok {
		return nil, domain.ErrTreeNotFound
	}
	out := tree
	return &out, nil
}

func (r *Repository) UpdateRoot(ctx context.Context, id domain.Address, root domain.Hash) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tree, ok := r.trees[id]
	if !ok {
		return domain.ErrTreeNotFound
	}
	tree.Root = root
	tree.Seq++
	tree.UpdatedAt = r.clock().UTC()
	r.trees[id] = tree
	return nil
}

var _ domain.TreeRepository = (*Repository)(nil)
