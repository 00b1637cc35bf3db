package db

import (
	"context"
	"errors"
	"time"

	"notetree/internal/domain"
	"notetree/internal/usecase"
	"notetree/pkg/leafcodec"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NoteEventRepository is the durable side-log: an append-only, per-tree
// hash-chained stream of canonical note records.
type NoteEventRepository struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewNoteEventRepository(conn *gorm.DB) *NoteEventRepository {
	return &NoteEventRepository{db: conn, clock: time.Now}
}

// Emit validates the record, links it to the tree's previous record, and
// appends it. The chain head is read under a row lock so concurrent emits
// for the same tree serialize instead of forking the chain.
func (r *NoteEventRepository) Emit(ctx context.Context, treeID domain.Address, record []byte) error {
	if r.db == nil {
		return errDBUnavailable
	}
	event, err := leafcodec.DecodeEvent(record)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var last NoteEventModel
		prev := usecase.EventChainSeed()
		seq := int64(1)
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("tree_id = ?", treeID.String()).
			Order("seq DESC").
			First(&last).Error
		switch {
		case err == nil:
			prev = last.RecordHash
			seq = last.Seq + 1
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		model := NoteEventModel{
			TreeID:         treeID.String(),
			Seq:            seq,
			LeafHash:       event.Leaf[:],
			Owner:          event.Owner[:],
			Recipient:      event.Recipient[:],
			Note:           event.Note,
			Record:         record,
			PrevRecordHash: prev,
			RecordHash:     usecase.EventChainHash(prev, record),
			CreatedAt:      r.clock().UTC(),
		}
		// Two first emits for a tree both see an empty stream and race to
		// insert seq 1; the unique (tree_id, seq) index makes the loser
		// fail instead of forking the chain. The conflict is retryable.
		if err := tx.Create(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrEventConflict
			}
			return err
		}
		return nil
	})
}

func (r *NoteEventRepository) ListByTree(ctx context.Context, treeID domain.Address) ([]domain.StoredNoteEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []NoteEventModel
	err := r.db.WithContext(ctx).
		Where("tree_id = ?", treeID.String()).
		Order("seq ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.StoredNoteEvent, 0, len(models))
	for _, model := range models {
		stored := domain.StoredNoteEvent{
			TreeID:         treeID,
			Seq:            uint64(model.Seq),
			Record:         model.Record,
			PrevRecordHash: model.PrevRecordHash,
			RecordHash:     model.RecordHash,
			CreatedAt:      model.CreatedAt,
		}
		copy(stored.Event.Leaf[:], model.LeafHash)
		copy(stored.Event.Owner[:], model.Owner)
		copy(stored.Event.Recipient[:], model.Recipient)
		stored.Event.Note = model.Note
		out = append(out, stored)
	}
	return out, nil
}

var (
	_ domain.EventSink           = (*NoteEventRepository)(nil)
	_ domain.NoteEventRepository = (*NoteEventRepository)(nil)
)
