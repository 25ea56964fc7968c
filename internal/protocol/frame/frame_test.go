package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/exireq/internal/protocol/tlv"
	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

func writeFrame(t *testing.T, f Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteFrame(kaitai.NewWriter(&buf), f, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	return buf.Bytes()
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	payload, err := tlv.EncodeFields([]tlv.Field{tlv.String(1, "CN=Test")})
	if err != nil {
		t.Fatalf("encode fields: %v", err)
	}
	in := Frame{
		Header:  Header{Magic: 0x45584931, Version: 1, MessageType: 1},
		Payload: payload,
	}
	raw := writeFrame(t, in)
	if len(raw) != int(FixedHeaderLen)+len(payload) {
		t.Fatalf("unexpected frame size %d", len(raw))
	}
	out, err := ReadFrame(raw, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Magic != in.Header.Magic || out.Header.MessageType != in.Header.MessageType {
		t.Fatalf("header mismatch: got=%+v want=%+v", out.Header, in.Header)
	}
	if out.Header.HeaderLen != FixedHeaderLen || out.Header.PayloadLen != uint64(len(payload)) {
		t.Fatalf("lengths not filled in: %+v", out.Header)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestHeaderWireLayout(t *testing.T) {
	raw := writeFrame(t, Frame{Header: Header{Magic: 0x01020304, Version: 0x0506, MessageType: 0x0708090A, Flags: 0x0B0C0D0E}})
	want := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06,
		0x00, 0x18,
		0x07, 0x08, 0x09, 0x0A,
		0x0B, 0x0C, 0x0D, 0x0E,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	if !bytes.Equal(raw, want) {
		t.Fatalf("header layout:\n got=% x\nwant=% x", raw, want)
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ReadFrame([]byte{1, 2, 3}, DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameHeaderLenTooSmall(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(kaitai.NewWriter(&buf), Header{Magic: 1, Version: 1, HeaderLen: 8, MessageType: 1}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	_, err := ReadFrame(buf.Bytes(), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenTooSmall) {
		t.Fatalf("expected ErrHeaderLenTooSmall, got %v", err)
	}
}

func TestReadFramePayloadLengthChecks(t *testing.T) {
	raw := writeFrame(t, Frame{Header: Header{Magic: 1, Version: 1}, Payload: []byte("abcdef")})

	if _, err := ReadFrame(raw[:len(raw)-2], DefaultLimits()); !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
	if _, err := ReadFrame(append(bytes.Clone(raw), 0xFF), DefaultLimits()); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
	if _, err := ReadFrame(raw, Limits{MaxPayloadBytes: 2}); !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}
