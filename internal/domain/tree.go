package domain

import (
	"context"
	"encoding/hex"
	"errors"
	"time"
)

const (
	// HashSize is the size of every leaf, root, and interior node hash.
	HashSize = 32
	// AddressSize is the size of tree and participant identities.
	AddressSize = 32

	MaxTreeDepth      = 30
	MaxTreeBufferSize = 2048

	// MaxNoteBytes bounds note content to what the host transport carries
	// in a single request.
	MaxNoteBytes = 1024
)

// Address identifies a tree or a participant (sender, recipient).
type Address [AddressSize]byte

// Hash is a leaf or root value.
type Hash [HashSize]byte

var errInvalidAddress = errors.New("invalid address")

func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != AddressSize {
		return Address{}, errInvalidAddress
	}
	copy(a[:], raw)
	return a, nil
}

func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

func (a Address) IsZero() bool {
	return a == Address{}
}

func ParseHash(s string) (Hash, error) {
	var h Hash
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != HashSize {
		return Hash{}, errors.New("invalid hash")
	}
	copy(h[:], raw)
	return h, nil
}

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Tree is the persisted registry entry for one Merkle tree. The shape
// (MaxDepth, MaxBufferSize) is fixed at creation; Root and Seq advance only
// through the mutation protocol.
type Tree struct {
	ID            Address
	MaxDepth      uint32
	MaxBufferSize uint32
	AuthorityBump uint8
	Root          Hash
	Seq           uint64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TreeRepository interface {
	Create(ctx context.Context, tree Tree) error
	GetByID(ctx context.Context, id Address) (*Tree, error)
	UpdateRoot(ctx context.Context, id Address, root Hash) error
}
