// Package eventlog provides the in-memory append-only side-log used when no
// database is configured. Records are validated on the way in and kept in
// emission order, hash-chained per tree.
package eventlog

import (
	"context"
	"sync"
	"time"

	"notetree/internal/domain"
	"notetree/internal/usecase"
	"notetree/pkg/leafcodec"
)

type Log struct {
	mu    sync.RWMutex
	trees map[domain.Address][]domain.StoredNoteEvent
	clock func() time.Time
}

func New() *Log {
	return NewWithClock(nil)
}

func NewWithClock(clock func() time.Time) *Log {
	if clock == nil {
		clock = time.Now
	}
	return &Log{
		trees: make(map[domain.Address][]domain.StoredNoteEvent),
		clock: clock,
	}
}

func (l *Log) Emit(ctx context.Context, treeID domain.Address, record []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event, err := leafcodec.DecodeEvent(record)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stream := l.trees[treeID]
	prev := usecase.EventChainSeed()
	if len(stream) > 0 {
		prev = stream[len(stream)-1].RecordHash
	}
	stored := domain.StoredNoteEvent{
		TreeID:         treeID,
		Seq:            uint64(len(stream)) + 1,
		Event:          event,
		Record:         cloneRecord(record),
		PrevRecordHash: prev,
		RecordHash:     usecase.EventChainHash(prev, record),
		CreatedAt:      l.clock().UTC(),
	}
	l.trees[treeID] = append(stream, stored)
	return nil
}

func (l *Log) ListByTree(ctx context.Context, treeID domain.Address) ([]domain.StoredNoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	stream := l.trees[treeID]
	out := make([]domain.StoredNoteEvent, len(stream))
	for i, stored := range stream {
		stored.Record = cloneRecord(stored.Record)
		out[i] = stored
	}
	return out, nil
}

func cloneRecord(in []byte) []byte {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

var (
	_ domain.EventSink           = (*Log)(nil)
	_ domain.NoteEventRepository = (*Log)(nil)
)
