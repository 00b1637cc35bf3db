package leafcodec

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeEvent_DeterministicBytes(t *testing.T) {
	sender := addr(0x21)
	recipient := addr(0x22)
	leaf := EncodeLeaf([]byte("hello"), sender)

	first, err := EncodeEvent(leaf, sender, recipient, "hello")
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	second, err := EncodeEvent(leaf, sender, recipient, "hello")
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical event produced different record bytes")
	}
}

func TestDecodeEvent_Roundtrip(t *testing.T) {
	sender := addr(0x31)
	recipient := addr(0x32)
	leaf := EncodeLeaf([]byte("meeting at noon"), sender)
	record, err := EncodeEvent(leaf, sender, recipient, "meeting at noon")
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}

	event, err := DecodeEvent(record)
	if err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Leaf != leaf || event.Owner != sender || event.Recipient != recipient {
		t.Fatal("decoded event fields mismatch")
	}
	if event.Note != "meeting at noon" {
		t.Fatalf("decoded note %q", event.Note)
	}
}

func TestDecodeEvent_RejectsLeafMismatch(t *testing.T) {
	sender := addr(0x41)
	// Leaf computed over different content than the record carries.
	leaf := EncodeLeaf([]byte("original"), sender)
	record, err := EncodeEvent(leaf, sender, addr(0x42), "tampered")
	if err != nil {
		t.Fatalf("encode event: %v", err)
	}
	if _, err := DecodeEvent(record); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestDecodeEvent_RejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); !errors.Is(err, ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord, got %v", err)
	}
}
