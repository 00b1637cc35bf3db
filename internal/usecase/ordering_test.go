package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"notetree/internal/domain"
	"notetree/internal/infra/authority"
	"notetree/internal/infra/engine"
	"notetree/internal/infra/eventlog"
	"notetree/internal/usecase"
)

// stallingSink blocks the first Emit until released, exposing any window
// between an engine commit and its emission.
type stallingSink struct {
	inner   *eventlog.Log
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newStallingSink() *stallingSink {
	return &stallingSink{
		inner:   eventlog.New(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *stallingSink) Emit(ctx context.Context, treeID domain.Address, record []byte) error {
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return s.inner.Emit(ctx, treeID, record)
}

// A second append racing past a stalled first emission must not land its
// record ahead of the record for the lower index.
func TestProtocol_StreamOrderSurvivesStalledEmission(t *testing.T) {
	ctx := context.Background()
	registry := engine.NewRegistry()
	sink := newStallingSink()
	appendUC := &usecase.AppendMessage{
		Engine:    registry,
		Events:    sink,
		Authority: authority.Derive,
		Locks:     usecase.NewTreeLocks(),
	}

	treeID := addr(0x04)
	sender := addr(0xaa)
	recipient := addr(0xbb)

	create := &usecase.CreateTree{Engine: registry, Authority: authority.Derive}
	if _, err := create.Run(ctx, treeID, 14, 64); err != nil {
		t.Fatalf("create tree: %v", err)
	}

	type outcome struct {
		result usecase.AppendMessageResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := appendUC.Run(ctx, treeID, sender, recipient, "first")
		first <- outcome{result, err}
	}()
	<-sink.entered

	second := make(chan outcome, 1)
	go func() {
		result, err := appendUC.Run(ctx, treeID, sender, recipient, "second")
		second <- outcome{result, err}
	}()
	// Give the second append time to reach the tree's mutation lock before
	// the first emission is released.
	time.Sleep(20 * time.Millisecond)
	close(sink.release)

	firstOut := <-first
	secondOut := <-second
	if firstOut.err != nil || secondOut.err != nil {
		t.Fatalf("append errors: %v, %v", firstOut.err, secondOut.err)
	}
	if firstOut.result.Index != 0 || secondOut.result.Index != 1 {
		t.Fatalf("indices = %d, %d", firstOut.result.Index, secondOut.result.Index)
	}

	events, err := sink.inner.ListByTree(ctx, treeID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("stored %d events", len(events))
	}
	if events[0].Event.Note != "first" || events[1].Event.Note != "second" {
		t.Fatalf("stream order diverged from index order: %q, %q",
			events[0].Event.Note, events[1].Event.Note)
	}
}

// Concurrent appenders to one tree: replaying the stream in sequence order
// must reproduce the engine's index assignment exactly.
func TestProtocol_ConcurrentAppendsKeepStreamIndexAligned(t *testing.T) {
	ctx := context.Background()
	registry := engine.NewRegistry()
	sink := eventlog.New()
	appendUC := &usecase.AppendMessage{
		Engine:    registry,
		Events:    sink,
		Authority: authority.Derive,
		Locks:     usecase.NewTreeLocks(),
	}

	treeID := addr(0x05)
	recipient := addr(0xbb)

	create := &usecase.CreateTree{Engine: registry, Authority: authority.Derive}
	if _, err := create.Run(ctx, treeID, 14, 64); err != nil {
		t.Fatalf("create tree: %v", err)
	}

	const writers = 8
	notes := []string{"n0", "n1", "n2", "n3", "n4", "n5", "n6", "n7"}
	byIndex := make([]string, writers)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(note string, sender domain.Address) {
			defer wg.Done()
			result, err := appendUC.Run(ctx, treeID, sender, recipient, note)
			if err != nil {
				t.Errorf("append %q: %v", note, err)
				return
			}
			mu.Lock()
			byIndex[result.Index] = note
			mu.Unlock()
		}(notes[i], addr(byte(0x10+i)))
	}
	wg.Wait()

	events, err := sink.ListByTree(ctx, treeID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != writers {
		t.Fatalf("stored %d events", len(events))
	}
	for k, event := range events {
		if event.Seq != uint64(k+1) {
			t.Fatalf("event %d has seq %d", k, event.Seq)
		}
		if event.Event.Note != byIndex[k] {
			t.Fatalf("seq %d carries %q, index %d holds %q",
				event.Seq, event.Event.Note, k, byIndex[k])
		}
	}
	if err := usecase.VerifyEventChain(ctx, sink, treeID); err != nil {
		t.Fatalf("verify event chain: %v", err)
	}
}
