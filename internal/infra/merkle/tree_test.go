package merkle

import (
	"errors"
	"testing"

	"notetree/internal/domain"
)

func leaf(b byte) domain.Hash {
	var h domain.Hash
	for i := range h {
		h[i] = b
	}
	return h
}

func mustTree(t *testing.T, depth, buffer uint32) *Tree {
	t.Helper()
	tree, err := NewEmpty(depth, buffer)
	if err != nil {
		t.Fatalf("new tree: %v", err)
	}
	return tree
}

func TestNewEmpty_RejectsBadShape(t *testing.T) {
	cases := []struct{ depth, buffer uint32 }{
		{0, 64},
		{31, 64},
		{14, 0},
		{14, MaxBufferSize + 1},
	}
	for _, c := range cases {
		if _, err := NewEmpty(c.depth, c.buffer); !errors.Is(err, ErrInvalidShape) {
			t.Fatalf("depth=%d buffer=%d: expected ErrInvalidShape, got %v", c.depth, c.buffer, err)
		}
	}
}

func TestNewEmpty_CanonicalEmptyRoot(t *testing.T) {
	a := mustTree(t, 14, 64)
	b := mustTree(t, 14, 8)
	if a.Root() != b.Root() {
		t.Fatal("empty root must depend on depth only")
	}
	c := mustTree(t, 15, 64)
	if a.Root() == c.Root() {
		t.Fatal("empty roots of different depths must differ")
	}
}

func TestAppend_AssignsSequentialIndices(t *testing.T) {
	tree := mustTree(t, 14, 64)
	prevRoot := tree.Root()
	for i := uint32(0); i < 5; i++ {
		index, root, err := tree.Append(leaf(byte(i + 1)))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if index != i {
			t.Fatalf("expected index %d, got %d", i, index)
		}
		if root == prevRoot {
			t.Fatal("append did not advance the root")
		}
		prevRoot = root
	}
	if tree.Size() != 5 {
		t.Fatalf("size = %d", tree.Size())
	}
}

func TestAppend_TreeFull(t *testing.T) {
	tree := mustTree(t, 1, 8)
	for i := 0; i < 2; i++ {
		if _, _, err := tree.Append(leaf(byte(i + 1))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if _, _, err := tree.Append(leaf(0x33)); !errors.Is(err, ErrTreeFull) {
		t.Fatalf("expected ErrTreeFull, got %v", err)
	}
}

func TestVerifyLeaf(t *testing.T) {
	tree := mustTree(t, 14, 64)
	_, root, err := tree.Append(leaf(0x01))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := tree.VerifyLeaf(root, leaf(0x01), 0); err != nil {
		t.Fatalf("verify current leaf: %v", err)
	}
	if err := tree.VerifyLeaf(root, leaf(0x02), 0); !errors.Is(err, ErrLeafMismatch) {
		t.Fatalf("expected ErrLeafMismatch, got %v", err)
	}
	if err := tree.VerifyLeaf(root, leaf(0x01), 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := tree.VerifyLeaf(leaf(0xaa), leaf(0x01), 0); !errors.Is(err, ErrRootNotInWindow) {
		t.Fatalf("expected ErrRootNotInWindow, got %v", err)
	}
}

func TestReplaceLeaf_AdvancesRoot(t *testing.T) {
	tree := mustTree(t, 14, 64)
	_, root, err := tree.Append(leaf(0x01))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	newRoot, err := tree.ReplaceLeaf(root, leaf(0x01), leaf(0x02), 0)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if newRoot == root {
		t.Fatal("replace did not advance the root")
	}
	if err := tree.VerifyLeaf(newRoot, leaf(0x02), 0); err != nil {
		t.Fatalf("verify replaced leaf: %v", err)
	}
}

func TestReplaceLeaf_FastForwardsPastOtherIndices(t *testing.T) {
	tree := mustTree(t, 14, 64)
	if _, _, err := tree.Append(leaf(0x01)); err != nil {
		t.Fatalf("append: %v", err)
	}
	_, stale, err := tree.Append(leaf(0x02))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	// A change at index 0 interleaves; the stale root still covers index 1.
	if _, err := tree.ReplaceLeaf(stale, leaf(0x01), leaf(0x11), 0); err != nil {
		t.Fatalf("replace index 0: %v", err)
	}
	if _, err := tree.ReplaceLeaf(stale, leaf(0x02), leaf(0x22), 1); err != nil {
		t.Fatalf("replace index 1 with stale root: %v", err)
	}
}

func TestReplaceLeaf_ConflictOnSameIndex(t *testing.T) {
	tree := mustTree(t, 14, 64)
	_, stale, err := tree.Append(leaf(0x01))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := tree.ReplaceLeaf(stale, leaf(0x01), leaf(0x02), 0); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if _, err := tree.ReplaceLeaf(stale, leaf(0x01), leaf(0x03), 0); !errors.Is(err, ErrLeafChanged) {
		t.Fatalf("expected ErrLeafChanged, got %v", err)
	}
}

func TestChangeWindow_EvictsOldRoots(t *testing.T) {
	tree := mustTree(t, 14, 2)
	_, oldest, err := tree.Append(leaf(0x01))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, _, err := tree.Append(leaf(byte(0x10 + i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if err := tree.VerifyLeaf(oldest, leaf(0x01), 0); !errors.Is(err, ErrRootNotInWindow) {
		t.Fatalf("expected ErrRootNotInWindow, got %v", err)
	}
}

func TestAppend_RootMatchesManualFold(t *testing.T) {
	tree := mustTree(t, 2, 8)
	l0, l1 := leaf(0x01), leaf(0x02)
	if _, _, err := tree.Append(l0); err != nil {
		t.Fatalf("append: %v", err)
	}
	_, root, err := tree.Append(l1)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	zero := zeroHashes(2)
	want := hashNode(hashNode(l0, l1), zero[1])
	if root != want {
		t.Fatalf("root %x, want %x", root, want)
	}
}

func TestTree_IndependentTreesDoNotInterfere(t *testing.T) {
	a := mustTree(t, 14, 64)
	b := mustTree(t, 14, 64)
	for i := 0; i < 4; i++ {
		if _, _, err := a.Append(leaf(byte(i + 1))); err != nil {
			t.Fatalf("append a: %v", err)
		}
	}
	if b.Size() != 0 {
		t.Fatal("tree b mutated by tree a")
	}
	if a.Root() == b.Root() {
		t.Fatalf("roots should differ: %x", a.Root())
	}
}
