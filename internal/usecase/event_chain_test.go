package usecase

import (
	"context"
	"testing"

	"notetree/internal/domain"
)

type eventRepoStub struct {
	events []domain.StoredNoteEvent
}

func (r *eventRepoStub) ListByTree(ctx context.Context, treeID domain.Address) ([]domain.StoredNoteEvent, error) {
	return r.events, nil
}

func buildChain(treeID domain.Address, records ...[]byte) []domain.StoredNoteEvent {
	out := make([]domain.StoredNoteEvent, 0, len(records))
	prev := EventChainSeed()
	for i, record := range records {
		stored := domain.StoredNoteEvent{
			TreeID:         treeID,
			Seq:            uint64(i + 1),
			Record:         record,
			PrevRecordHash: prev,
			RecordHash:     EventChainHash(prev, record),
		}
		prev = stored.RecordHash
		out = append(out, stored)
	}
	return out
}

func TestVerifyEventChain_OK(t *testing.T) {
	treeID := testAddr(0x01)
	repo := &eventRepoStub{events: buildChain(treeID, []byte("r1"), []byte("r2"), []byte("r3"))}
	if err := VerifyEventChain(context.Background(), repo, treeID); err != nil {
		t.Fatalf("verify chain: %v", err)
	}
}

func TestVerifyEventChain_EmptyStream(t *testing.T) {
	repo := &eventRepoStub{}
	if err := VerifyEventChain(context.Background(), repo, testAddr(0x01)); err != nil {
		t.Fatalf("empty stream must verify: %v", err)
	}
}

func TestVerifyEventChain_MutatedRecord(t *testing.T) {
	treeID := testAddr(0x02)
	events := buildChain(treeID, []byte("r1"), []byte("r2"))
	events[1].Record = []byte("tampered")
	repo := &eventRepoStub{events: events}
	if err := VerifyEventChain(context.Background(), repo, treeID); err == nil {
		t.Fatal("expected failure on mutated record")
	}
}

func TestVerifyEventChain_SeqGap(t *testing.T) {
	treeID := testAddr(0x03)
	events := buildChain(treeID, []byte("r1"), []byte("r2"), []byte("r3"))
	repo := &eventRepoStub{events: append(events[:1], events[2])}
	if err := VerifyEventChain(context.Background(), repo, treeID); err == nil {
		t.Fatal("expected failure on sequence gap")
	}
}

func TestVerifyEventChain_Reordered(t *testing.T) {
	treeID := testAddr(0x04)
	events := buildChain(treeID, []byte("r1"), []byte("r2"))
	events[0].Seq, events[1].Seq = 2, 1
	events[0], events[1] = events[1], events[0]
	repo := &eventRepoStub{events: events}
	if err := VerifyEventChain(context.Background(), repo, treeID); err == nil {
		t.Fatal("expected failure on reordered stream")
	}
}
