// Package merkle implements a fixed-depth Merkle tree with a bounded
// changelog of recently valid roots. The changelog is the concurrent-change
// window: a mutation referencing a slightly stale root is accepted as long
// as that root is still inside the window and no intervening change touched
// the same leaf index.
package merkle

import (
	"errors"
	"sync"

	"notetree/internal/domain"

	"golang.org/x/crypto/sha3"
)

const (
	HashSize = domain.HashSize

	MaxDepth      = domain.MaxTreeDepth
	MaxBufferSize = domain.MaxTreeBufferSize
)

var (
	ErrInvalidShape    = errors.New("invalid tree shape")
	ErrTreeFull        = errors.New("tree is full")
	ErrRootNotInWindow = errors.New("root not in change window")
	ErrIndexOutOfRange = errors.New("leaf index out of range")
	ErrLeafChanged     = errors.New("leaf changed since claimed root")
	ErrLeafMismatch    = errors.New("leaf does not match")
)

// change records one committed mutation: the root it produced, the index it
// touched, and the leaf count at that point.
type change struct {
	seq   uint64
	root  domain.Hash
	index uint32
	size  uint32
}

// Tree holds the full leaf set plus the changelog ring. All methods are
// serialized by the tree's own mutex, making each mutation indivisible.
type Tree struct {
	mu         sync.Mutex
	depth      uint32
	bufferSize uint32
	zero       []domain.Hash
	leaves     []domain.Hash
	seq        uint64
	changes    []change
}

// NewEmpty allocates a tree of the given shape. The shape is immutable
// afterwards. The initial root is the canonical empty-tree value for the
// depth: a cascade of zero-leaf hashes.
func NewEmpty(maxDepth, maxBufferSize uint32) (*Tree, error) {
	if maxDepth < 1 || maxDepth > MaxDepth {
		return nil, ErrInvalidShape
	}
	if maxBufferSize < 1 || maxBufferSize > MaxBufferSize {
		return nil, ErrInvalidShape
	}
	t := &Tree{
		depth:      maxDepth,
		bufferSize: maxBufferSize,
		zero:       zeroHashes(maxDepth),
	}
	t.changes = append(t.changes, change{
		seq:  0,
		root: t.zero[maxDepth],
		size: 0,
	})
	return t, nil
}

func (t *Tree) Depth() uint32 {
	return t.depth
}

func (t *Tree) BufferSize() uint32 {
	return t.bufferSize
}

func (t *Tree) Root() domain.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentRoot()
}

func (t *Tree) Seq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

func (t *Tree) Size() uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint32(len(t.leaves))
}

// Append places the leaf at the next free index and advances the root.
// Fails with ErrTreeFull once the index space of the fixed depth is
// exhausted; a full tree is permanent, there is no recovery short of a new
// tree.
func (t *Tree) Append(leaf domain.Hash) (uint32, domain.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if uint64(len(t.leaves)) >= uint64(1)<<t.depth {
		return 0, domain.Hash{}, ErrTreeFull
	}
	index := uint32(len(t.leaves))
	t.leaves = append(t.leaves, leaf)
	root := t.computeRoot()
	t.pushChange(index, root)
	return index, root, nil
}

// VerifyLeaf confirms that leaf was the value at index under the claimed
// root. The claimed root must still be inside the change window; leaves
// touched by a change newer than the claimed root fail with ErrLeafChanged.
func (t *Tree) VerifyLeaf(root, leaf domain.Hash, index uint32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.verifyLocked(root, leaf, index)
}

// ReplaceLeaf swaps oldLeaf for newLeaf at index, re-asserting the claimed
// root as the expected pre-image. A replace against a stale root succeeds
// when the interleaved changes touched other indices only; otherwise the
// caller must restart with a fresh root.
func (t *Tree) ReplaceLeaf(root, oldLeaf, newLeaf domain.Hash, index uint32) (domain.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.verifyLocked(root, oldLeaf, index); err != nil {
		return domain.Hash{}, err
	}
	t.leaves[index] = newLeaf
	newRoot := t.computeRoot()
	t.pushChange(index, newRoot)
	return newRoot, nil
}

func (t *Tree) verifyLocked(root, leaf domain.Hash, index uint32) error {
	at := t.findRoot(root)
	if at < 0 {
		return ErrRootNotInWindow
	}
	if index >= t.changes[at].size {
		return ErrIndexOutOfRange
	}
	// Appends only ever touch indices at or beyond the claimed size, so a
	// later change at this index was necessarily a replace that
	// invalidated the claimed leaf.
	for _, c := range t.changes[at+1:] {
		if c.index == index {
			return ErrLeafChanged
		}
	}
	if t.leaves[index] != leaf {
		return ErrLeafMismatch
	}
	return nil
}

func (t *Tree) findRoot(root domain.Hash) int {
	for i := len(t.changes) - 1; i >= 0; i-- {
		if t.changes[i].root == root {
			return i
		}
	}
	return -1
}

func (t *Tree) pushChange(index uint32, root domain.Hash) {
	t.seq++
	t.changes = append(t.changes, change{
		seq:   t.seq,
		root:  root,
		index: index,
		size:  uint32(len(t.leaves)),
	})
	// Ring semantics: old roots fall out of the window once more than
	// bufferSize changes have committed on top of them.
	if uint32(len(t.changes)) > t.bufferSize+1 {
		t.changes = t.changes[uint32(len(t.changes))-(t.bufferSize+1):]
	}
}

func (t *Tree) currentRoot() domain.Hash {
	return t.changes[len(t.changes)-1].root
}

// computeRoot folds the occupied leaves level by level, padding missing
// right siblings with the zero hash of that level. An empty tree folds to
// the zero cascade directly.
func (t *Tree) computeRoot() domain.Hash {
	if len(t.leaves) == 0 {
		return t.zero[t.depth]
	}
	nodes := make([]domain.Hash, len(t.leaves))
	copy(nodes, t.leaves)
	for level := uint32(0); level < t.depth; level++ {
		next := make([]domain.Hash, (len(nodes)+1)/2)
		for i := range next {
			left := nodes[2*i]
			right := t.zero[level]
			if 2*i+1 < len(nodes) {
				right = nodes[2*i+1]
			}
			next[i] = hashNode(left, right)
		}
		nodes = next
	}
	return nodes[0]
}

func hashNode(left, right domain.Hash) domain.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(left[:])
	h.Write(right[:])
	var out domain.Hash
	h.Sum(out[:0])
	return out
}

// zeroHashes returns the empty-subtree hash for every level up to and
// including the root: zero[0] is the empty leaf, zero[d+1] =
// H(zero[d] || zero[d]).
func zeroHashes(depth uint32) []domain.Hash {
	out := make([]domain.Hash, depth+1)
	for d := uint32(0); d < depth; d++ {
		out[d+1] = hashNode(out[d], out[d])
	}
	return out
}
