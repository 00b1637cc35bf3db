package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"notetree/internal/domain"
)

// Stored note events are hash-chained per tree so the side-log carries its
// own tamper evidence independent of the tree root.

// EventChainSeed is the PrevRecordHash of a tree's first stored event.
func EventChainSeed() string {
	return hex.EncodeToString(make([]byte, sha256.Size))
}

// EventChainHash links a record to its predecessor:
// sha256(prev_hash_bytes || record).
func EventChainHash(prev string, record []byte) string {
	prevBytes, err := hex.DecodeString(prev)
	if err != nil || len(prevBytes) != sha256.Size {
		prevBytes = make([]byte, sha256.Size)
	}
	h := sha256.New()
	h.Write(prevBytes)
	h.Write(record)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyEventChain re-walks a tree's stored event stream and fails on any
// gap, reorder, or mutated record.
func VerifyEventChain(ctx context.Context, events domain.NoteEventRepository, treeID domain.Address) error {
	if events == nil {
		return errors.New("event repository required")
	}
	stored, err := events.ListByTree(ctx, treeID)
	if err != nil {
		return err
	}
	prev := EventChainSeed()
	for i, event := range stored {
		if event.Seq != uint64(i+1) {
			return fmt.Errorf("event chain: expected seq %d, got %d", i+1, event.Seq)
		}
		if event.PrevRecordHash != prev {
			return fmt.Errorf("event chain: broken link at seq %d", event.Seq)
		}
		if EventChainHash(event.PrevRecordHash, event.Record) != event.RecordHash {
			return fmt.Errorf("event chain: record mutated at seq %d", event.Seq)
		}
		prev = event.RecordHash
	}
	return nil
}
