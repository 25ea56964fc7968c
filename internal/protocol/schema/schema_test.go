package schema

import (
	"testing"

	"github.com/danmuck/exireq/internal/protocol/tlv"
	"github.com/danmuck/exireq/internal/testutil/testlog"
)

func requestFields() []tlv.Field {
	return []tlv.Field{
		tlv.Bytes(FieldSessionID, []byte{1, 2}),
		tlv.U64(FieldTimeStamp, 1690000000),
		tlv.Bool(FieldSignatureUsed, false),
		tlv.Bytes(FieldRootCertificateID, []byte{0}),
		tlv.U8(FieldMaxContractChains, 3),
	}
}

func TestValidateRequestRequiredFields(t *testing.T) {
	testlog.Start(t)
	if err := Validate(MsgCertificateInstallationReq, requestFields()); err != nil {
		t.Fatalf("validate request: %v", err)
	}
}

func TestValidateUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	fields := append(requestFields(), tlv.Field{ID: 9999, Type: tlv.TypeBytes, Value: []byte{0x01}})
	if err := Validate(MsgCertificateInstallationReq, fields); err != nil {
		t.Fatalf("validate with unknown field: %v", err)
	}
}

func TestValidateMissingRequiredDeterministic(t *testing.T) {
	testlog.Start(t)
	fields := []tlv.Field{tlv.Bytes(FieldSessionID, []byte{1})}
	err := Validate(MsgCertificateInstallationReq, fields)
	if err == nil {
		t.Fatalf("expected error")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if ve.FieldID != FieldTimeStamp || ve.Reason != "missing required field" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestValidateRepeatedFieldTypes(t *testing.T) {
	testlog.Start(t)
	fields := append(requestFields(), tlv.String(FieldEMAID, "DE8AA001"), tlv.U8(FieldEMAID, 1))
	err := Validate(MsgCertificateInstallationReq, fields)
	ve, ok := err.(ValidationError)
	if !ok || ve.FieldID != FieldEMAID || ve.Reason != "type mismatch" {
		t.Fatalf("expected EMAID type mismatch, got %v", err)
	}
}

func TestValidateRootEntryShape(t *testing.T) {
	testlog.Start(t)
	entry := []tlv.Field{
		tlv.String(FieldX509IssuerName, "CN=Test"),
		tlv.I64(FieldX509SerialNumber, 12345),
		tlv.U8(FieldSerialOctets, 8),
	}
	if err := Validate(ShapeRootCertificateID, entry); err != nil {
		t.Fatalf("validate entry: %v", err)
	}
	if err := Validate(ShapeRootCertificateID, entry[:1]); err == nil {
		t.Fatalf("expected missing serial")
	}
}

func TestValidateUnknownMessageType(t *testing.T) {
	testlog.Start(t)
	err := Validate(77, nil)
	ve, ok := err.(ValidationError)
	if !ok || ve.Reason != "unknown message_type" {
		t.Fatalf("expected unknown message type, got %v", err)
	}
}
