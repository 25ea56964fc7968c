package frame

import (
	"bytes"
	"errors"
	"fmt"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

const FixedHeaderLen uint16 = 24

var (
	ErrShortHeader       = errors.New("frame: short fixed header")
	ErrHeaderLenTooSmall = errors.New("frame: header_len smaller than fixed header")
	ErrShortPayload      = errors.New("frame: payload shorter than payload_len")
	ErrTrailingBytes     = errors.New("frame: trailing bytes after payload")
	ErrPayloadTooLarge   = errors.New("frame: payload too large")
)

// Header is the fixed wire header, big endian.
//
//	0  magic        u32
//	4  version      u16
//	6  header_len   u16
//	8  message_type u32
//	12 flags        u32
//	16 payload_len  u64
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

// Frame is one complete wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

func WriteHeader(w *kaitai.Writer, h Header) error {
	if err := w.WriteU4be(h.Magic); err != nil {
		return err
	}
	if err := w.WriteU2be(h.Version); err != nil {
		return err
	}
	if err := w.WriteU2be(h.HeaderLen); err != nil {
		return err
	}
	if err := w.WriteU4be(h.MessageType); err != nil {
		return err
	}
	if err := w.WriteU4be(h.Flags); err != nil {
		return err
	}
	return w.WriteU8be(h.PayloadLen)
}

func ReadHeader(s *kaitai.Stream) (Header, error) {
	var h Header
	var err error
	if h.Magic, err = s.ReadU4be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.Version, err = s.ReadU2be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.HeaderLen, err = s.ReadU2be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.MessageType, err = s.ReadU4be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.Flags, err = s.ReadU4be(); err != nil {
		return Header{}, ErrShortHeader
	}
	if h.PayloadLen, err = s.ReadU8be(); err != nil {
		return Header{}, ErrShortHeader
	}
	return h, nil
}

// WriteFrame fills in header_len and payload_len and writes f through w.
func WriteFrame(w *kaitai.Writer, f Frame, limits Limits) error {
	payloadLen := uint64(len(f.Payload))
	if payloadLen > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	h := f.Header
	h.HeaderLen = FixedHeaderLen
	h.PayloadLen = payloadLen
	if err := WriteHeader(w, h); err != nil {
		return err
	}
	if payloadLen == 0 {
		return nil
	}
	return w.WriteBytes(f.Payload)
}

// ReadFrame parses exactly one frame occupying all of data.
func ReadFrame(data []byte, limits Limits) (Frame, error) {
	if len(data) < int(FixedHeaderLen) {
		return Frame{}, ErrShortHeader
	}
	s := kaitai.NewStream(bytes.NewReader(data))
	h, err := ReadHeader(s)
	if err != nil {
		return Frame{}, err
	}
	if h.HeaderLen < FixedHeaderLen {
		return Frame{}, ErrHeaderLenTooSmall
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}
	// extension bytes between the fixed header and the payload are skipped
	if ext := int(h.HeaderLen - FixedHeaderLen); ext > 0 {
		if _, err := s.ReadBytes(ext); err != nil {
			return Frame{}, ErrShortHeader
		}
	}
	remaining := uint64(len(data)) - uint64(h.HeaderLen)
	if remaining < h.PayloadLen {
		return Frame{}, ErrShortPayload
	}
	if remaining > h.PayloadLen {
		return Frame{}, fmt.Errorf("%w: %d", ErrTrailingBytes, remaining-h.PayloadLen)
	}
	payload, err := s.ReadBytes(int(h.PayloadLen))
	if err != nil {
		return Frame{}, ErrShortPayload
	}
	return Frame{Header: h, Payload: bytes.Clone(payload)}, nil
}
