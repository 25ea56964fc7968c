// Package populate assembles a CertificateInstallationReq record from a
// parsed request document.
//
// Fields are filled in a fixed order. The first mandatory failure aborts the
// whole record, so no partially populated record leaves this package.
package populate

import (
	"fmt"
	"strings"

	"github.com/danmuck/exireq/internal/codec"
	"github.com/danmuck/exireq/internal/extract"
	"github.com/danmuck/exireq/internal/fault"
	"github.com/danmuck/exireq/internal/record"
	"github.com/rs/zerolog"
)

const (
	PathRequest        = "/V2G_Message/Body/CertificateInstallationReq"
	PathSessionID      = "/V2G_Message/Header/SessionID"
	PathTimeStamp      = "/V2G_Message/Header/TimeStamp"
	PathSignature      = "/V2G_Message/Header/Signature"
	PathSubCertificate = PathRequest + "/OEMProvisioningCertificateChain/Certificate"
	PathRootCertID     = PathRequest + "/ListOfRootCertificateIDs/RootCertificateID"
	PathMaxChains      = PathRequest + "/MaximumContractCertificateChains"
	PathEMAID          = PathRequest + "/PrioritizedEMAIDs/EMAID"

	elemIssuerName   = "X509IssuerName"
	elemSerialNumber = "X509SerialNumber"
)

// Populator fills records under one set of limits.
type Populator struct {
	x      *extract.Extractor
	limits record.Limits
	logger zerolog.Logger
}

func New(x *extract.Extractor, limits record.Limits, logger zerolog.Logger) *Populator {
	return &Populator{x: x, limits: limits, logger: logger}
}

// Populate reads every record field from q.
func (p *Populator) Populate(q extract.Querier) (*record.CertificateInstallationReq, error) {
	if err := p.checkEnvelope(q); err != nil {
		return nil, err
	}

	rec := &record.CertificateInstallationReq{}
	steps := []struct {
		name string
		fill func(extract.Querier, *record.CertificateInstallationReq) error
	}{
		{"SessionID", p.sessionID},
		{"TimeStamp", p.timeStamp},
		{"Signature", p.signature},
		{"SubCertificates", p.subCertificates},
		{"RootCertificateID", p.rootCertificateIDs},
		{"MaximumContractCertificateChains", p.maxChains},
		{"PrioritizedEMAIDs", p.emaids},
	}
	for _, step := range steps {
		if err := step.fill(q, rec); err != nil {
			p.logger.Debug().Msgf("populate.Populate step=%s failed err=%v", step.name, err)
			return nil, fault.WithField(err, step.name)
		}
	}

	p.logger.Debug().Msgf(
		"populate.Populate session_id_len=%d root_ids=%d sub_certs=%d emaids=%d",
		len(rec.Header.SessionID),
		len(rec.ListOfRootCertificateIDs),
		len(rec.OEMProvisioningCertificateChain.SubCertificates),
		len(rec.PrioritizedEMAIDs),
	)
	return rec, nil
}

func (p *Populator) checkEnvelope(q extract.Querier) error {
	n, err := q.CountAt(PathRequest)
	if err != nil {
		return err
	}
	if n != 1 {
		return fault.Newf(fault.KindSchema, "CertificateInstallationReq", "expected exactly one request element, found %d", n)
	}
	return nil
}

func (p *Populator) sessionID(q extract.Querier, rec *record.CertificateInstallationReq) error {
	text, err := p.x.Mandatory(q, "SessionID", PathSessionID)
	if err != nil {
		return err
	}
	raw, err := codec.HexDecode(text)
	if err != nil {
		return err
	}
	if len(raw) == 0 || len(raw) > p.limits.SessionIDBytes {
		return fault.Newf(fault.KindRange, "SessionID", "%d bytes outside 1..%d", len(raw), p.limits.SessionIDBytes)
	}
	rec.Header.SessionID = raw
	return nil
}

func (p *Populator) timeStamp(q extract.Querier, rec *record.CertificateInstallationReq) error {
	text, err := p.x.Mandatory(q, "TimeStamp", PathTimeStamp)
	if err != nil {
		return err
	}
	v, err := extract.ParseUint(text, 64)
	if err != nil {
		return err
	}
	rec.Header.TimeStamp = v
	return nil
}

func (p *Populator) signature(q extract.Querier, rec *record.CertificateInstallationReq) error {
	used, err := extract.Presence(q, PathSignature)
	if err != nil {
		return err
	}
	rec.Header.SignatureUsed = used
	return nil
}

func (p *Populator) subCertificates(q extract.Querier, rec *record.CertificateInstallationReq) error {
	nodes, err := q.NodesetAt(PathSubCertificate)
	if err != nil {
		return err
	}
	n, err := p.x.Clamp("SubCertificates", len(nodes), p.limits.SubCertificates)
	if err != nil {
		return err
	}
	certs := make([]record.Certificate, 0, n)
	for i, node := range nodes[:n] {
		field := fmt.Sprintf("SubCertificates[%d]", i)
		text := strings.TrimSpace(node.Content())
		if text == "" {
			return fault.New(fault.KindSchema, field, "empty certificate")
		}
		der, err := codec.Base64Decode(text)
		if err != nil {
			return fault.WithField(err, field)
		}
		owned, err := p.x.CopyBytes(field, der, p.limits.CertificateBytes)
		if err != nil {
			return err
		}
		certs = append(certs, record.Certificate{Bytes: owned})
	}
	if len(certs) > 0 {
		rec.OEMProvisioningCertificateChain.SubCertificates = certs
		rec.OEMProvisioningCertificateChain.SubCertificatesUsed = true
	}
	return nil
}

func (p *Populator) rootCertificateIDs(q extract.Querier, rec *record.CertificateInstallationReq) error {
	nodes, err := q.NodesetAt(PathRootCertID)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fault.New(fault.KindSchema, "RootCertificateID", "at least one entry required")
	}
	n, err := p.x.Clamp("RootCertificateID", len(nodes), p.limits.RootCertificateIDs)
	if err != nil {
		return err
	}
	ids := make([]record.X509IssuerSerial, 0, n)
	for i, node := range nodes[:n] {
		field := fmt.Sprintf("RootCertificateID[%d]", i)
		issuer, ok := node.Child(elemIssuerName)
		if !ok {
			return fault.New(fault.KindSchema, field+"."+elemIssuerName, "missing element")
		}
		serial, ok := node.Child(elemSerialNumber)
		if !ok {
			return fault.New(fault.KindSchema, field+"."+elemSerialNumber, "missing element")
		}
		value, err := extract.ParseInt(serial.Content(), p.limits.SerialNumberOctets*8)
		if err != nil {
			return fault.WithField(err, field+"."+elemSerialNumber)
		}
		name := p.x.CopyString(field+"."+elemIssuerName, strings.TrimSpace(issuer.Content()), p.limits.IssuerNameChars)
		ids = append(ids, record.X509IssuerSerial{
			X509IssuerName:   name,
			X509SerialNumber: record.SignedInteger{Value: value, Octets: uint8(p.limits.SerialNumberOctets)},
		})
	}
	rec.ListOfRootCertificateIDs = ids
	return nil
}

func (p *Populator) maxChains(q extract.Querier, rec *record.CertificateInstallationReq) error {
	text, err := p.x.Mandatory(q, "MaximumContractCertificateChains", PathMaxChains)
	if err != nil {
		return err
	}
	v, err := extract.ParseUint(text, 8)
	if err != nil {
		return err
	}
	rec.MaximumContractCertificateChains = uint8(v)
	return nil
}

func (p *Populator) emaids(q extract.Querier, rec *record.CertificateInstallationReq) error {
	nodes, err := q.NodesetAt(PathEMAID)
	if err != nil {
		return err
	}
	n, err := p.x.Clamp("EMAID", len(nodes), p.limits.EMAIDs)
	if err != nil {
		return err
	}
	out := make([]string, 0, n)
	for i, node := range nodes[:n] {
		out = append(out, p.x.CopyString(fmt.Sprintf("EMAID[%d]", i), strings.TrimSpace(node.Content()), p.limits.EMAIDChars))
	}
	if len(out) > 0 {
		rec.PrioritizedEMAIDs = out
		rec.PrioritizedEMAIDsUsed = true
	}
	return nil
}
