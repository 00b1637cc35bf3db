package leafcodec

import (
	"errors"
	"fmt"

	"notetree/internal/domain"

	"github.com/fxamacker/cbor/v2"
)

// recordVersion identifies the note record layout. Bump only with a new
// layout; indexers dispatch on it.
const recordVersion = 1

var (
	ErrInvalidRecord = errors.New("invalid note record")

	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
	if err != nil {
		panic(err)
	}
}

// noteRecord is the stable wire layout. Integer keys keep records compact
// and independent of Go field naming.
type noteRecord struct {
	Version   uint8  `cbor:"0,keyasint"`
	Leaf      []byte `cbor:"1,keyasint"`
	Owner     []byte `cbor:"2,keyasint"`
	Recipient []byte `cbor:"3,keyasint"`
	Note      string `cbor:"4,keyasint"`
}

// EncodeEvent produces the canonical serialized log record for a leaf that
// was (or is about to be) committed to a tree. Deterministic CBOR: the same
// event always serializes to the same bytes.
func EncodeEvent(leaf domain.Hash, sender, recipient domain.Address, note string) ([]byte, error) {
	record := noteRecord{
		Version:   recordVersion,
		Leaf:      leaf[:],
		Owner:     sender[:],
		Recipient: recipient[:],
		Note:      note,
	}
	return encMode.Marshal(record)
}

// DecodeEvent parses a serialized record and checks its internal
// consistency, including that the embedded leaf matches the recomputed
// hash of (note, owner).
func DecodeEvent(data []byte) (domain.NoteEvent, error) {
	var record noteRecord
	if err := decMode.Unmarshal(data, &record); err != nil {
		return domain.NoteEvent{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if record.Version != recordVersion {
		return domain.NoteEvent{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, record.Version)
	}
	if len(record.Leaf) != domain.HashSize {
		return domain.NoteEvent{}, fmt.Errorf("%w: leaf length %d", ErrInvalidRecord, len(record.Leaf))
	}
	if len(record.Owner) != domain.AddressSize || len(record.Recipient) != domain.AddressSize {
		return domain.NoteEvent{}, fmt.Errorf("%w: identity length", ErrInvalidRecord)
	}

	var event domain.NoteEvent
	copy(event.Leaf[:], record.Leaf)
	copy(event.Owner[:], record.Owner)
	copy(event.Recipient[:], record.Recipient)
	event.Note = record.Note

	if EncodeLeaf([]byte(event.Note), event.Owner) != event.Leaf {
		return domain.NoteEvent{}, fmt.Errorf("%w: leaf does not match note content", ErrInvalidRecord)
	}
	return event, nil
}
