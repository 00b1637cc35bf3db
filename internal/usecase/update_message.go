package usecase

import (
	"context"
	"errors"

	"notetree/internal/domain"
	"notetree/pkg/leafcodec"
)

// UpdateMessage runs the verify-before-replace sequence: the caller must
// prove knowledge of the current content at the index under a root the
// engine still considers recent before a replacement is accepted. Every
// failure is a single attempt; refetch-and-retry is the caller's job.
type UpdateMessage struct {
	Engine    domain.TreeEngine
	Trees     domain.TreeRepository
	Events    domain.EventSink
	Authority AuthorityDeriver
	Locks     *TreeLocks
}

type UpdateMessageResult struct {
	Leaf domain.Hash
	Root domain.Hash
	NoOp bool
}

func (uc *UpdateMessage) Run(ctx context.Context, treeID domain.Address, index uint32, claimedRoot domain.Hash, oldNote, newNote string, sender, recipient domain.Address) (UpdateMessageResult, error) {
	if uc == nil || uc.Engine == nil || uc.Events == nil || uc.Authority == nil {
		return UpdateMessageResult{}, errors.New("engine, event sink, and authority required")
	}
	if sender.IsZero() {
		return UpdateMessageResult{}, domain.ErrUnauthorized
	}
	if len(oldNote) > domain.MaxNoteBytes || len(newNote) > domain.MaxNoteBytes {
		return UpdateMessageResult{}, domain.ErrNoteTooLarge
	}

	// Idempotent fast path: nothing to prove, nothing to mutate, nothing
	// to log.
	if oldNote == newNote {
		return UpdateMessageResult{Root: claimedRoot, NoOp: true}, nil
	}

	proof, err := uc.Authority(treeID)
	if err != nil {
		return UpdateMessageResult{}, err
	}

	// The whole verify-replace-emit sequence runs under the tree's
	// mutation lock so the emitted record lands in the side-log in commit
	// order relative to concurrent appends and updates.
	unlock := uc.treeLocks().Lock(treeID)
	defer unlock()

	// Verification gates everything that follows: a caller that cannot
	// reproduce the old content under the claimed root may not overwrite
	// the leaf.
	oldLeaf := leafcodec.EncodeLeaf([]byte(oldNote), sender)
	if err := uc.Engine.VerifyLeaf(ctx, proof, treeID, claimedRoot, oldLeaf, index); err != nil {
		return UpdateMessageResult{}, err
	}

	newLeaf := leafcodec.EncodeLeaf([]byte(newNote), sender)
	newRoot, err := uc.Engine.ReplaceLeaf(ctx, proof, treeID, claimedRoot, oldLeaf, newLeaf, index)
	if err != nil {
		return UpdateMessageResult{}, err
	}

	// Two orderings are possible for the event: emit between verify and
	// replace (indexers then treat records as provisional until the next
	// root change confirms them), or emit only after replace commits.
	// This implementation emits after the commit, so a failed replace
	// leaves no orphaned record in the side-log.
	record, err := leafcodec.EncodeEvent(newLeaf, sender, recipient, newNote)
	if err != nil {
		return UpdateMessageResult{}, err
	}
	if err := uc.Events.Emit(ctx, treeID, record); err != nil {
		return UpdateMessageResult{}, err
	}

	if uc.Trees != nil {
		if err := uc.Trees.UpdateRoot(ctx, treeID, newRoot); err != nil {
			return UpdateMessageResult{}, err
		}
	}
	return UpdateMessageResult{Leaf: newLeaf, Root: newRoot}, nil
}

func (uc *UpdateMessage) treeLocks() *TreeLocks {
	if uc.Locks != nil {
		return uc.Locks
	}
	return defaultTreeLocks
}
