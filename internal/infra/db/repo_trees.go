package db

import (
	"context"
	"errors"
	"time"

	"notetree/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TreeRepository struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewTreeRepository(conn *gorm.DB) *TreeRepository {
	return &TreeRepository{db: conn, clock: time.Now}
}

func (r *TreeRepository) Create(ctx context.Context, tree domain.Tree) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := TreeModel{
		ID:            tree.ID.String(),
		MaxDepth:      tree.MaxDepth,
		MaxBufferSize: tree.MaxBufferSize,
		AuthorityBump: int16(tree.AuthorityBump),
		CurrentRoot:   tree.Root[:],
		Seq:           int64(tree.Seq),
		CreatedAt:     tree.CreatedAt,
		UpdatedAt:     tree.UpdatedAt,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTreeAlreadyInitialized
	}
	return nil
}

func (r *TreeRepository) GetByID(ctx context.Context, id domain.Address) (*domain.Tree, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model TreeModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id.String()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTreeNotFound
		}
		return nil, err
	}
	return treeFromModel(model)
}

func (r *TreeRepository) UpdateRoot(ctx context.Context, id domain.Address, root domain.Hash) error {
	if r.db == nil {
		return errDBUnavailable
	}
	result := r.db.WithContext(ctx).
		Model(&TreeModel{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"current_root": root[:],
			"seq":          gorm.Expr("seq + 1"),
			"updated_at":   r.clock().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrTreeNotFound
	}
	return nil
}

func treeFromModel(model TreeModel) (*domain.Tree, error) {
	id, err := domain.ParseAddress(model.ID)
	if err != nil {
		return nil, err
	}
	tree := domain.Tree{
		ID:            id,
		MaxDepth:      model.MaxDepth,
		MaxBufferSize: model.MaxBufferSize,
		AuthorityBump: uint8(model.AuthorityBump),
		Seq:           uint64(model.Seq),
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
	copy(tree.Root[:], model.CurrentRoot)
	return &tree, nil
}

var _ domain.TreeRepository = (*TreeRepository)(nil)
