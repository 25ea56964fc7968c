package protocol

import (
	"bytes"
	"fmt"

	"github.com/danmuck/exireq/internal/protocol/schema"
	"github.com/danmuck/exireq/internal/protocol/tlv"
	"github.com/danmuck/exireq/internal/record"
)

// recordFields lays rec out as payload fields in record order. Each root
// certificate entry becomes one bytes field holding its own field list.
func recordFields(rec *record.CertificateInstallationReq) ([]tlv.Field, error) {
	fields := []tlv.Field{
		tlv.Bytes(schema.FieldSessionID, rec.Header.SessionID),
		tlv.U64(schema.FieldTimeStamp, rec.Header.TimeStamp),
		tlv.Bool(schema.FieldSignatureUsed, rec.Header.SignatureUsed),
	}
	for _, cert := range rec.OEMProvisioningCertificateChain.SubCertificates {
		fields = append(fields, tlv.Bytes(schema.FieldSubCertificate, cert.Bytes))
	}
	for _, id := range rec.ListOfRootCertificateIDs {
		entry, err := tlv.EncodeFields([]tlv.Field{
			tlv.String(schema.FieldX509IssuerName, id.X509IssuerName),
			tlv.I64(schema.FieldX509SerialNumber, id.X509SerialNumber.Value),
			tlv.U8(schema.FieldSerialOctets, id.X509SerialNumber.Octets),
		})
		if err != nil {
			return nil, err
		}
		fields = append(fields, tlv.Bytes(schema.FieldRootCertificateID, entry))
	}
	fields = append(fields, tlv.U8(schema.FieldMaxContractChains, rec.MaximumContractCertificateChains))
	for _, emaid := range rec.PrioritizedEMAIDs {
		fields = append(fields, tlv.String(schema.FieldEMAID, emaid))
	}
	return fields, nil
}

func recordFromFields(fields []tlv.Field) (*record.CertificateInstallationReq, error) {
	if err := schema.Validate(schema.MsgCertificateInstallationReq, fields); err != nil {
		return nil, err
	}
	rec := &record.CertificateInstallationReq{}

	sid, _ := tlv.GetField(fields, schema.FieldSessionID)
	rec.Header.SessionID = bytes.Clone(sid.Value)

	ts, _ := tlv.GetField(fields, schema.FieldTimeStamp)
	v, err := tlv.AsU64(ts)
	if err != nil {
		return nil, err
	}
	rec.Header.TimeStamp = v

	sig, _ := tlv.GetField(fields, schema.FieldSignatureUsed)
	if rec.Header.SignatureUsed, err = tlv.AsBool(sig); err != nil {
		return nil, err
	}

	for _, f := range tlv.All(fields, schema.FieldSubCertificate) {
		rec.OEMProvisioningCertificateChain.SubCertificates = append(
			rec.OEMProvisioningCertificateChain.SubCertificates,
			record.Certificate{Bytes: bytes.Clone(f.Value)},
		)
	}
	rec.OEMProvisioningCertificateChain.SubCertificatesUsed = len(rec.OEMProvisioningCertificateChain.SubCertificates) > 0

	for i, f := range tlv.All(fields, schema.FieldRootCertificateID) {
		id, err := rootEntryFromBytes(f.Value)
		if err != nil {
			return nil, fmt.Errorf("root certificate entry %d: %w", i, err)
		}
		rec.ListOfRootCertificateIDs = append(rec.ListOfRootCertificateIDs, id)
	}

	mc, _ := tlv.GetField(fields, schema.FieldMaxContractChains)
	if rec.MaximumContractCertificateChains, err = tlv.AsU8(mc); err != nil {
		return nil, err
	}

	for _, f := range tlv.All(fields, schema.FieldEMAID) {
		rec.PrioritizedEMAIDs = append(rec.PrioritizedEMAIDs, string(f.Value))
	}
	rec.PrioritizedEMAIDsUsed = len(rec.PrioritizedEMAIDs) > 0
	return rec, nil
}

func rootEntryFromBytes(raw []byte) (record.X509IssuerSerial, error) {
	fields, err := tlv.DecodeFields(raw)
	if err != nil {
		return record.X509IssuerSerial{}, err
	}
	if err := schema.Validate(schema.ShapeRootCertificateID, fields); err != nil {
		return record.X509IssuerSerial{}, err
	}
	name, _ := tlv.GetField(fields, schema.FieldX509IssuerName)
	serial, _ := tlv.GetField(fields, schema.FieldX509SerialNumber)
	octets, _ := tlv.GetField(fields, schema.FieldSerialOctets)

	value, err := tlv.AsI64(serial)
	if err != nil {
		return record.X509IssuerSerial{}, err
	}
	width, err := tlv.AsU8(octets)
	if err != nil {
		return record.X509IssuerSerial{}, err
	}
	out := record.X509IssuerSerial{
		X509IssuerName:   string(name.Value),
		X509SerialNumber: record.SignedInteger{Value: value, Octets: width},
	}
	if !out.X509SerialNumber.Fits() {
		return record.X509IssuerSerial{}, fmt.Errorf("%w: serial %d in %d octets", ErrInvalidValue, value, width)
	}
	return out, nil
}
