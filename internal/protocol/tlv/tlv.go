package tlv

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
)

// HeaderLen is id(u16) + type(u8) + len(u32).
const HeaderLen = 7

var (
	ErrShortFieldHeader = errors.New("tlv: short field header")
	ErrShortFieldValue  = errors.New("tlv: short field value")
	ErrValueTooLarge    = errors.New("tlv: value too large")
)

// Type IDs of the wire contract.
const (
	TypeU8     uint8 = 1
	TypeU16    uint8 = 2
	TypeU32    uint8 = 3
	TypeU64    uint8 = 4
	TypeBool   uint8 = 5
	TypeString uint8 = 6
	TypeBytes  uint8 = 7
	TypeI64    uint8 = 8
)

// Field is one TLV field.
type Field struct {
	ID    uint16
	Type  uint8
	Value []byte
}

// Size is the encoded length of f.
func (f Field) Size() int {
	return HeaderLen + len(f.Value)
}

func U8(id uint16, v uint8) Field {
	return Field{ID: id, Type: TypeU8, Value: []byte{v}}
}

func U64(id uint16, v uint64) Field {
	return Field{ID: id, Type: TypeU64, Value: binary.BigEndian.AppendUint64(nil, v)}
}

func I64(id uint16, v int64) Field {
	return Field{ID: id, Type: TypeI64, Value: binary.BigEndian.AppendUint64(nil, uint64(v))}
}

func Bool(id uint16, v bool) Field {
	b := byte(0)
	if v {
		b = 1
	}
	return Field{ID: id, Type: TypeBool, Value: []byte{b}}
}

func String(id uint16, v string) Field {
	return Field{ID: id, Type: TypeString, Value: []byte(v)}
}

func Bytes(id uint16, v []byte) Field {
	return Field{ID: id, Type: TypeBytes, Value: v}
}

// WriteField writes one field through w.
func WriteField(w *kaitai.Writer, f Field) error {
	if uint64(len(f.Value)) > uint64(^uint32(0)) {
		return ErrValueTooLarge
	}
	if err := w.WriteU2be(f.ID); err != nil {
		return err
	}
	if err := w.WriteU1(f.Type); err != nil {
		return err
	}
	if err := w.WriteU4be(uint32(len(f.Value))); err != nil {
		return err
	}
	return w.WriteBytes(f.Value)
}

// EncodeFields renders fields back to back into a new slice.
func EncodeFields(fields []Field) ([]byte, error) {
	var buf bytes.Buffer
	w := kaitai.NewWriter(&buf)
	for _, f := range fields {
		if err := WriteField(w, f); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// PayloadLen is the encoded length of fields.
func PayloadLen(fields []Field) uint64 {
	var total uint64
	for _, f := range fields {
		total += uint64(f.Size())
	}
	return total
}

// DecodeFields parses a whole payload into fields. Values are copies.
func DecodeFields(payload []byte) ([]Field, error) {
	s := kaitai.NewStream(bytes.NewReader(payload))
	fields := make([]Field, 0)
	for {
		eof, err := s.EOF()
		if err != nil {
			return nil, err
		}
		if eof {
			return fields, nil
		}
		pos, err := s.Pos()
		if err != nil {
			return nil, err
		}
		if len(payload)-int(pos) < HeaderLen {
			return nil, ErrShortFieldHeader
		}
		id, err := s.ReadU2be()
		if err != nil {
			return nil, ErrShortFieldHeader
		}
		typeID, err := s.ReadU1()
		if err != nil {
			return nil, ErrShortFieldHeader
		}
		l, err := s.ReadU4be()
		if err != nil {
			return nil, ErrShortFieldHeader
		}
		if uint64(len(payload))-uint64(pos)-HeaderLen < uint64(l) {
			return nil, ErrShortFieldValue
		}
		val, err := s.ReadBytes(int(l))
		if err != nil {
			return nil, ErrShortFieldValue
		}
		fields = append(fields, Field{ID: id, Type: typeID, Value: bytes.Clone(val)})
	}
}

func GetField(fields []Field, id uint16) (Field, bool) {
	for _, f := range fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// All returns every field with id, in order.
func All(fields []Field, id uint16) []Field {
	var out []Field
	for _, f := range fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

func MustType(f Field, expected uint8) error {
	if f.Type != expected {
		return fmt.Errorf("tlv: field %d type mismatch: got %d want %d", f.ID, f.Type, expected)
	}
	return nil
}

func AsU8(f Field) (uint8, error) {
	if err := MustType(f, TypeU8); err != nil {
		return 0, err
	}
	if len(f.Value) != 1 {
		return 0, fmt.Errorf("tlv: invalid u8 length: %d", len(f.Value))
	}
	return f.Value[0], nil
}

func AsU64(f Field) (uint64, error) {
	if err := MustType(f, TypeU64); err != nil {
		return 0, err
	}
	if len(f.Value) != 8 {
		return 0, fmt.Errorf("tlv: invalid u64 length: %d", len(f.Value))
	}
	return binary.BigEndian.Uint64(f.Value), nil
}

func AsI64(f Field) (int64, error) {
	if err := MustType(f, TypeI64); err != nil {
		return 0, err
	}
	if len(f.Value) != 8 {
		return 0, fmt.Errorf("tlv: invalid i64 length: %d", len(f.Value))
	}
	return int64(binary.BigEndian.Uint64(f.Value)), nil
}

func AsBool(f Field) (bool, error) {
	if err := MustType(f, TypeBool); err != nil {
		return false, err
	}
	if len(f.Value) != 1 || f.Value[0] > 1 {
		return false, fmt.Errorf("tlv: invalid bool value: %v", f.Value)
	}
	return f.Value[0] == 1, nil
}
