package usecase

import (
	"context"
	"errors"

	"notetree/internal/domain"
	"notetree/pkg/leafcodec"
)

// AppendMessage canonicalizes a note into a leaf and asks the engine to
// place it at the next free index. The engine assigns the index and
// advances the root; the protocol never chooses or tracks indices itself.
// Indexers reconstruct the index-to-content mapping from the emitted event
// stream in order.
type AppendMessage struct {
	Engine    domain.TreeEngine
	Trees     domain.TreeRepository
	Events    domain.EventSink
	Authority AuthorityDeriver
	Locks     *TreeLocks
}

type AppendMessageResult struct {
	Index uint32
	Leaf  domain.Hash
	Root  domain.Hash
}

func (uc *AppendMessage) Run(ctx context.Context, treeID domain.Address, sender, recipient domain.Address, note string) (AppendMessageResult, error) {
	if uc == nil || uc.Engine == nil || uc.Events == nil || uc.Authority == nil {
		return AppendMessageResult{}, errors.New("engine, event sink, and authority required")
	}
	if sender.IsZero() {
		return AppendMessageResult{}, domain.ErrUnauthorized
	}
	if len(note) > domain.MaxNoteBytes {
		return AppendMessageResult{}, domain.ErrNoteTooLarge
	}

	proof, err := uc.Authority(treeID)
	if err != nil {
		return AppendMessageResult{}, err
	}
	leaf := leafcodec.EncodeLeaf([]byte(note), sender)

	// Commit and emission form one critical section: if the lock were
	// dropped between them, two concurrent appends could emit in the
	// opposite order from their assigned indices and corrupt the stream
	// that indexers replay.
	unlock := uc.treeLocks().Lock(treeID)
	defer unlock()

	index, root, err := uc.Engine.AppendLeaf(ctx, proof, treeID, leaf)
	if err != nil {
		return AppendMessageResult{}, err
	}

	// Emission is deferred until the engine has committed, so the side-log
	// never carries a record for a leaf that was not actually appended.
	record, err := leafcodec.EncodeEvent(leaf, sender, recipient, note)
	if err != nil {
		return AppendMessageResult{}, err
	}
	if err := uc.Events.Emit(ctx, treeID, record); err != nil {
		return AppendMessageResult{}, err
	}

	if uc.Trees != nil {
		if err := uc.Trees.UpdateRoot(ctx, treeID, root); err != nil {
			return AppendMessageResult{}, err
		}
	}
	return AppendMessageResult{Index: index, Leaf: leaf, Root: root}, nil
}

func (uc *AppendMessage) treeLocks() *TreeLocks {
	if uc.Locks != nil {
		return uc.Locks
	}
	return defaultTreeLocks
}
