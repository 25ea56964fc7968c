package protocol

import (
	"github.com/danmuck/exireq/internal/protocol/frame"
	"github.com/danmuck/exireq/internal/protocol/schema"
	"github.com/danmuck/exireq/internal/protocol/tlv"
	"github.com/danmuck/exireq/internal/record"
)

const schemaMessageType = schema.MsgCertificateInstallationReq

// Decode parses one frame produced by Encoder back into a record.
func Decode(data []byte) (*record.CertificateInstallationReq, error) {
	f, err := frame.ReadFrame(data, frame.DefaultLimits())
	if err != nil {
		return nil, err
	}
	if f.Header.Magic != Magic {
		return nil, ErrInvalidMagic
	}
	if f.Header.Version != Version {
		return nil, ErrUnsupportedVersion
	}
	if f.Header.MessageType != schemaMessageType {
		return nil, ErrMessageTypeMismatch
	}
	fields, err := tlv.DecodeFields(f.Payload)
	if err != nil {
		return nil, err
	}
	return recordFromFields(fields)
}
