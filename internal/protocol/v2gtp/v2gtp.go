// Package v2gtp owns the 8-byte V2G transfer protocol header.
//
//	0 version          u8  (0x01)
//	1 inverse version  u8  (0xFE)
//	2 payload type     u16 big endian
//	4 payload length   u32 big endian
package v2gtp

import (
	"bytes"
	"errors"
	"fmt"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

const (
	HeaderLen              = 8
	Version         uint8  = 0x01
	InverseVersion  uint8  = 0xFE
	PayloadTypeEXI  uint16 = 0x8001
	MaxPayloadBytes        = 1<<32 - 1
)

var (
	ErrShortHeader        = errors.New("v2gtp: short header")
	ErrVersionMismatch    = errors.New("v2gtp: version mismatch")
	ErrPayloadType        = errors.New("v2gtp: unexpected payload type")
	ErrPayloadLenMismatch = errors.New("v2gtp: payload length mismatch")
	ErrPayloadTooLarge    = errors.New("v2gtp: payload too large")
)

type Header struct {
	PayloadType uint16
	PayloadLen  uint32
}

func WriteHeader(w *kaitai.Writer, h Header) error {
	if err := w.WriteU1(Version); err != nil {
		return err
	}
	if err := w.WriteU1(InverseVersion); err != nil {
		return err
	}
	if err := w.WriteU2be(h.PayloadType); err != nil {
		return err
	}
	return w.WriteU4be(h.PayloadLen)
}

// ReadHeader parses the leading header of data and checks version and
// payload type.
func ReadHeader(data []byte, payloadType uint16) (Header, error) {
	if len(data) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	s := kaitai.NewStream(bytes.NewReader(data[:HeaderLen]))
	version, err := s.ReadU1()
	if err != nil {
		return Header{}, ErrShortHeader
	}
	inverse, err := s.ReadU1()
	if err != nil {
		return Header{}, ErrShortHeader
	}
	if version != Version || inverse != InverseVersion {
		return Header{}, fmt.Errorf("%w: %#02x/%#02x", ErrVersionMismatch, version, inverse)
	}
	var h Header
	if h.PayloadType, err = s.ReadU2be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.PayloadLen, err = s.ReadU4be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.PayloadType != payloadType {
		return Header{}, fmt.Errorf("%w: got %#04x want %#04x", ErrPayloadType, h.PayloadType, payloadType)
	}
	return h, nil
}

// Wrap returns header || payload in a new slice.
func Wrap(payload []byte, payloadType uint16) ([]byte, error) {
	if uint64(len(payload)) > MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}
	var buf bytes.Buffer
	buf.Grow(HeaderLen + len(payload))
	w := kaitai.NewWriter(&buf)
	if err := WriteHeader(w, Header{PayloadType: payloadType, PayloadLen: uint32(len(payload))}); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unwrap checks the header of data and returns the payload it announces.
func Unwrap(data []byte, payloadType uint16) ([]byte, error) {
	h, err := ReadHeader(data, payloadType)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-HeaderLen) != uint64(h.PayloadLen) {
		return nil, fmt.Errorf("%w: header=%d actual=%d", ErrPayloadLenMismatch, h.PayloadLen, len(data)-HeaderLen)
	}
	return data[HeaderLen:], nil
}
