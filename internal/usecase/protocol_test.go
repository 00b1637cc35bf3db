package usecase_test

import (
	"context"
	"errors"
	"testing"

	"notetree/internal/domain"
	"notetree/internal/infra/authority"
	"notetree/internal/infra/engine"
	"notetree/internal/infra/eventlog"
	"notetree/internal/infra/treemem"
	"notetree/internal/usecase"
	"notetree/pkg/leafcodec"
)

func addr(b byte) domain.Address {
	var a domain.Address
	for i := range a {
		a[i] = b
	}
	return a
}

// Full protocol walk against the real engine: create, append, update with a
// fresh root, then update again with a root that a concurrent-looking
// mutation has already invalidated.
func TestProtocol_AppendThenUpdateThenStaleRoot(t *testing.T) {
	ctx := context.Background()
	registry := engine.NewRegistry()
	sink := eventlog.New()
	trees := treemem.New()

	create := &usecase.CreateTree{Engine: registry, Trees: trees, Authority: authority.Derive}
	appendUC := &usecase.AppendMessage{Engine: registry, Trees: trees, Events: sink, Authority: authority.Derive}
	update := &usecase.UpdateMessage{Engine: registry, Trees: trees, Events: sink, Authority: authority.Derive}

	treeID := addr(0x01)
	senderA := addr(0xaa)
	recipientB := addr(0xbb)

	created, err := create.Run(ctx, treeID, 14, 64)
	if err != nil {
		t.Fatalf("create tree: %v", err)
	}
	r0 := created.Root

	appended, err := appendUC.Run(ctx, treeID, senderA, recipientB, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if appended.Index != 0 {
		t.Fatalf("index = %d", appended.Index)
	}
	r1 := appended.Root
	if r1 == r0 {
		t.Fatal("append did not change the root")
	}

	updated, err := update.Run(ctx, treeID, 0, r1, "hello", "world", senderA, recipientB)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	r2 := updated.Root
	if r2 == r1 {
		t.Fatal("update did not change the root")
	}
	if updated.Leaf != leafcodec.EncodeLeaf([]byte("world"), senderA) {
		t.Fatal("update leaf not canonical")
	}

	// R1 no longer covers index 0 once "world" is committed on top of it.
	_, err = update.Run(ctx, treeID, 0, r1, "world", "x", senderA, recipientB)
	if !errors.Is(err, domain.ErrLeafVerificationFailed) {
		t.Fatalf("expected ErrLeafVerificationFailed on stale root, got %v", err)
	}

	// The side-log carries exactly the committed mutations, chained.
	events, err := sink.ListByTree(ctx, treeID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("stored %d events", len(events))
	}
	if events[0].Event.Note != "hello" || events[1].Event.Note != "world" {
		t.Fatal("event stream out of order")
	}
	if err := usecase.VerifyEventChain(ctx, sink, treeID); err != nil {
		t.Fatalf("verify event chain: %v", err)
	}

	// Registry mirror follows the engine root.
	stored, err := trees.GetByID(ctx, treeID)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if stored.Root != r2 || stored.Seq != 2 {
		t.Fatalf("stored root/seq mismatch: seq=%d", stored.Seq)
	}
}

func TestProtocol_WrongOldContentFailsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	registry := engine.NewRegistry()
	sink := eventlog.New()
	trees := treemem.New()

	create := &usecase.CreateTree{Engine: registry, Trees: trees, Authority: authority.Derive}
	appendUC := &usecase.AppendMessage{Engine: registry, Trees: trees, Events: sink, Authority: authority.Derive}
	update := &usecase.UpdateMessage{Engine: registry, Trees: trees, Events: sink, Authority: authority.Derive}

	treeID := addr(0x02)
	sender := addr(0xaa)
	recipient := addr(0xbb)

	if _, err := create.Run(ctx, treeID, 14, 64); err != nil {
		t.Fatalf("create tree: %v", err)
	}
	appended, err := appendUC.Run(ctx, treeID, sender, recipient, "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	_, err = update.Run(ctx, treeID, 0, appended.Root, "not-hello", "world", sender, recipient)
	if !errors.Is(err, domain.ErrLeafVerificationFailed) {
		t.Fatalf("expected ErrLeafVerificationFailed, got %v", err)
	}

	// Root unchanged by the failed update.
	stored, err := trees.GetByID(ctx, treeID)
	if err != nil {
		t.Fatalf("get tree: %v", err)
	}
	if stored.Root != appended.Root {
		t.Fatal("failed update mutated the root")
	}

	events, err := sink.ListByTree(ctx, treeID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("stored %d events, want only the append", len(events))
	}
}

func TestProtocol_SenderCannotUpdateForeignLeaf(t *testing.T) {
	ctx := context.Background()
	registry := engine.NewRegistry()
	sink := eventlog.New()

	create := &usecase.CreateTree{Engine: registry, Authority: authority.Derive}
	appendUC := &usecase.AppendMessage{Engine: registry, Events: sink, Authority: authority.Derive}
	update := &usecase.UpdateMessage{Engine: registry, Events: sink, Authority: authority.Derive}

	treeID := addr(0x03)
	owner := addr(0xaa)
	other := addr(0xcc)

	if _, err := create.Run(ctx, treeID, 14, 64); err != nil {
		t.Fatalf("create tree: %v", err)
	}
	appended, err := appendUC.Run(ctx, treeID, owner, addr(0xbb), "hello")
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	// The leaf binds content to its sender; another sender hashing the same
	// content produces a different leaf and cannot pass verification.
	_, err = update.Run(ctx, treeID, 0, appended.Root, "hello", "world", other, addr(0xbb))
	if !errors.Is(err, domain.ErrLeafVerificationFailed) {
		t.Fatalf("expected ErrLeafVerificationFailed, got %v", err)
	}
}
