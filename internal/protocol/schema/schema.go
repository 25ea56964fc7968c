package schema

import (
	"fmt"

	"github.com/danmuck/exireq/internal/protocol/tlv"
	"github.com/rs/zerolog/log"
)

// Message type IDs of the wire contract.
const (
	MsgCertificateInstallationReq uint32 = 1

	// ShapeRootCertificateID is not a frame message type; it names the
	// nested field list carried inside each root certificate entry.
	ShapeRootCertificateID uint32 = 0x100
)

// Field IDs of the wire contract.
const (
	FieldSessionID     uint16 = 1
	FieldTimeStamp     uint16 = 2
	FieldSignatureUsed uint16 = 3

	FieldSubCertificate uint16 = 100

	FieldRootCertificateID uint16 = 200
	FieldX509IssuerName    uint16 = 201
	FieldX509SerialNumber  uint16 = 202
	FieldSerialOctets      uint16 = 203

	FieldMaxContractChains uint16 = 300

	FieldEMAID uint16 = 400
)

// Requirement names a field that must be present with a given type. Repeated
// fields only constrain the type of every occurrence.
type Requirement struct {
	ID       uint16
	Type     uint8
	Repeated bool
}

type ValidationError struct {
	MessageType uint32
	FieldID     uint16
	Reason      string
}

func (e ValidationError) Error() string {
	if e.FieldID == 0 {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%d: %s", e.MessageType, e.FieldID, e.Reason)
}

var requirements = map[uint32][]Requirement{
	MsgCertificateInstallationReq: {
		{ID: FieldSessionID, Type: tlv.TypeBytes},
		{ID: FieldTimeStamp, Type: tlv.TypeU64},
		{ID: FieldSignatureUsed, Type: tlv.TypeBool},
		{ID: FieldSubCertificate, Type: tlv.TypeBytes, Repeated: true},
		{ID: FieldRootCertificateID, Type: tlv.TypeBytes},
		{ID: FieldMaxContractChains, Type: tlv.TypeU8},
		{ID: FieldEMAID, Type: tlv.TypeString, Repeated: true},
	},
	ShapeRootCertificateID: {
		{ID: FieldX509IssuerName, Type: tlv.TypeString},
		{ID: FieldX509SerialNumber, Type: tlv.TypeI64},
		{ID: FieldSerialOctets, Type: tlv.TypeU8},
	},
}

// Validate enforces required fields and field types for a message type.
// Unknown fields are ignored.
func Validate(messageType uint32, fields []tlv.Field) error {
	log.Debug().Msgf("schema.Validate message_type=%d fields=%d", messageType, len(fields))
	reqs, ok := requirements[messageType]
	if !ok {
		log.Error().Msgf("schema.Validate unknown message_type=%d", messageType)
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	for _, req := range reqs {
		matches := tlv.All(fields, req.ID)
		if len(matches) == 0 && !req.Repeated {
			log.Error().Msgf(
				"schema.Validate missing field message_type=%d field_id=%d",
				messageType,
				req.ID,
			)
			return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "missing required field"}
		}
		for _, f := range matches {
			if f.Type != req.Type {
				log.Error().Msgf(
					"schema.Validate type mismatch message_type=%d field_id=%d got=%d want=%d",
					messageType,
					req.ID,
					f.Type,
					req.Type,
				)
				return ValidationError{MessageType: messageType, FieldID: req.ID, Reason: "type mismatch"}
			}
		}
	}
	log.Debug().Msgf("schema.Validate ok message_type=%d", messageType)
	return nil
}
