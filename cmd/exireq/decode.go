package main

import (
	"github.com/danmuck/exireq/internal/codec"
	"github.com/danmuck/exireq/internal/pipeline"
	"github.com/danmuck/exireq/internal/record"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// recordView is the human-readable dump of a decoded record. Binary fields
// are rendered the way they appear in the request XML.
type recordView struct {
	SessionID        string     `yaml:"session_id"`
	TimeStamp        uint64     `yaml:"timestamp"`
	SignatureUsed    bool       `yaml:"signature_used"`
	SubCertificates  []string   `yaml:"sub_certificates"`
	RootCertificates []rootView `yaml:"root_certificate_ids"`
	MaxChains        uint8      `yaml:"maximum_contract_certificate_chains"`
	EMAIDs           []string   `yaml:"prioritized_emaids,omitempty"`
}

type rootView struct {
	Issuer string `yaml:"issuer"`
	Serial int64  `yaml:"serial"`
	Octets uint8  `yaml:"serial_octets"`
}

func newRecordView(rec *record.CertificateInstallationReq) recordView {
	v := recordView{
		SessionID:     codec.HexEncode(rec.Header.SessionID),
		TimeStamp:     rec.Header.TimeStamp,
		SignatureUsed: rec.Header.SignatureUsed,
		MaxChains:     rec.MaximumContractCertificateChains,
	}
	for _, c := range rec.OEMProvisioningCertificateChain.SubCertificates {
		v.SubCertificates = append(v.SubCertificates, codec.Base64Encode(c.Bytes))
	}
	for _, r := range rec.ListOfRootCertificateIDs {
		v.RootCertificates = append(v.RootCertificates, rootView{
			Issuer: r.X509IssuerName,
			Serial: r.X509SerialNumber.Value,
			Octets: r.X509SerialNumber.Octets,
		})
	}
	if rec.PrioritizedEMAIDsUsed {
		v.EMAIDs = rec.PrioritizedEMAIDs
	}
	return v
}

func (a *app) runDecode(cmd *cobra.Command, _ []string) error {
	cfg, err := a.resolve(cmd)
	if err != nil {
		return err
	}
	in, closeIn, err := a.openInput()
	if err != nil {
		return err
	}
	defer closeIn()

	rec, err := pipeline.Decode(in, cfg)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(newRecordView(rec)); err != nil {
		return err
	}
	return enc.Close()
}
