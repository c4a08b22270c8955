package ioport

import (
	"bytes"
	"testing"

	"fblego/internal/valueheap"
)

func TestByteListCodecRoundTrips(t *testing.T) {
	store := valueheap.NewStore()
	codec := ByteListCodec{Store: store}

	want := []byte{0x00, 0x42, 0xff, 0x10}
	v, err := codec.Decode(want)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := codec.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip: got %x, want %x", got, want)
	}
}

func TestByteListCodecEmptyList(t *testing.T) {
	store := valueheap.NewStore()
	codec := ByteListCodec{Store: store}

	v, err := codec.Decode(nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got, err := codec.Encode(v)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty slice, got %x", got)
	}
}

func TestByteListCodecRejectsNonUnion(t *testing.T) {
	store := valueheap.NewStore()
	codec := ByteListCodec{Store: store}

	if _, err := codec.Encode(store.NewStruct(nil)); err == nil {
		t.Fatalf("expected an error encoding a non-union value")
	}
}
