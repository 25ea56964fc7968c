package v2gtp

import (
	"bytes"
	"errors"
	"testing"
)

func TestWrapPrefixesHeader(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	out, err := Wrap(payload, PayloadTypeEXI)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	want := []byte{0x01, 0xFE, 0x80, 0x01, 0, 0, 0, 3, 0xAA, 0xBB, 0xCC}
	if !bytes.Equal(out, want) {
		t.Fatalf("wrap:\n got=% x\nwant=% x", out, want)
	}

	back, err := Unwrap(out, PayloadTypeEXI)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if !bytes.Equal(back, payload) {
		t.Fatalf("payload mismatch: % x", back)
	}
}

func TestUnwrapRejects(t *testing.T) {
	good, err := Wrap([]byte{1, 2}, PayloadTypeEXI)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	if _, err := Unwrap(good[:5], PayloadTypeEXI); !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}

	bad := bytes.Clone(good)
	bad[1] = 0xFF
	if _, err := Unwrap(bad, PayloadTypeEXI); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got %v", err)
	}

	if _, err := Unwrap(good, 0x8002); !errors.Is(err, ErrPayloadType) {
		t.Fatalf("expected ErrPayloadType, got %v", err)
	}

	if _, err := Unwrap(append(bytes.Clone(good), 0), PayloadTypeEXI); !errors.Is(err, ErrPayloadLenMismatch) {
		t.Fatalf("expected ErrPayloadLenMismatch, got %v", err)
	}
}

func TestWrapEmptyPayload(t *testing.T) {
	out, err := Wrap(nil, PayloadTypeEXI)
	if err != nil || len(out) != HeaderLen {
		t.Fatalf("empty payload: len=%d err=%v", len(out), err)
	}
	if back, err := Unwrap(out, PayloadTypeEXI); err != nil || len(back) != 0 {
		t.Fatalf("unwrap empty: len=%d err=%v", len(back), err)
	}
}
