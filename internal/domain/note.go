package domain

import (
	"context"
	"time"
)

// NoteEvent is the canonical log record mirrored to the side-log on every
// append and every committed update. It is the only wire format this module
// owns; downstream indexers reconstruct the index-to-content mapping from
// the ordered event stream.
type NoteEvent struct {
	Leaf      Hash
	Owner     Address
	Recipient Address
	Note      string
}

// StoredNoteEvent is a NoteEvent as persisted by a sink, together with its
// position in the per-tree stream and its hash-chain links.
type StoredNoteEvent struct {
	TreeID         Address
	Seq            uint64
	Event          NoteEvent
	Record         []byte
	PrevRecordHash string
	RecordHash     string
	CreatedAt      time.Time
}

// EventSink receives the serialized canonical record for a committed
// mutation. Sinks are append-only; the core never reads records back.
type EventSink interface {
	Emit(ctx context.Context, treeID Address, record []byte) error
}

type NoteEventRepository interface {
	ListByTree(ctx context.Context, treeID Address) ([]StoredNoteEvent, error)
}
