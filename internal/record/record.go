// Package record owns the fixed-schema request record handed to encoders.
//
// Ownership boundary:
// - record types and their capacities
// - invariant checks run before any encoder sees a record
//
// A record is built once, field by field, by a single goroutine and consumed
// once by an encoder.
package record

import (
	"fmt"
	"math"

	"github.com/danmuck/exireq/internal/fault"
)

// Default capacities of the fixed layout.
const (
	DefaultSessionIDBytes     = 8
	DefaultRootCertificateIDs = 20
	DefaultIssuerNameChars    = 81
	DefaultSerialNumberOctets = 8
	DefaultSubCertificates    = 3
	DefaultCertificateBytes   = 1600
	DefaultEMAIDs             = 8
	DefaultEMAIDChars         = 256
)

// Limits are the capacities of every capped field. Character capacities
// include the terminator slot, so at most Chars-1 bytes are stored.
type Limits struct {
	SessionIDBytes     int
	RootCertificateIDs int
	IssuerNameChars    int
	SerialNumberOctets int
	SubCertificates    int
	CertificateBytes   int
	EMAIDs             int
	EMAIDChars         int
}

func DefaultLimits() Limits {
	return Limits{
		SessionIDBytes:     DefaultSessionIDBytes,
		RootCertificateIDs: DefaultRootCertificateIDs,
		IssuerNameChars:    DefaultIssuerNameChars,
		SerialNumberOctets: DefaultSerialNumberOctets,
		SubCertificates:    DefaultSubCertificates,
		CertificateBytes:   DefaultCertificateBytes,
		EMAIDs:             DefaultEMAIDs,
		EMAIDChars:         DefaultEMAIDChars,
	}
}

// Check rejects limits no record could satisfy.
func (l Limits) Check() error {
	switch {
	case l.SessionIDBytes < 1 || l.SessionIDBytes > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.session_id_bytes", "out of range: %d", l.SessionIDBytes)
	case l.RootCertificateIDs < 1 || l.RootCertificateIDs > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.root_certificate_ids", "out of range: %d", l.RootCertificateIDs)
	case l.IssuerNameChars < 2 || l.IssuerNameChars > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.issuer_name_chars", "out of range: %d", l.IssuerNameChars)
	case l.SerialNumberOctets < 1 || l.SerialNumberOctets > 8:
		return fault.Newf(fault.KindConfig, "limits.serial_number_octets", "out of range: %d", l.SerialNumberOctets)
	case l.SubCertificates < 1 || l.SubCertificates > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.sub_certificates", "out of range: %d", l.SubCertificates)
	case l.CertificateBytes < 1 || l.CertificateBytes > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.certificate_bytes", "out of range: %d", l.CertificateBytes)
	case l.EMAIDs < 1 || l.EMAIDs > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.emaids", "out of range: %d", l.EMAIDs)
	case l.EMAIDChars < 2 || l.EMAIDChars > math.MaxUint16:
		return fault.Newf(fault.KindConfig, "limits.emaid_chars", "out of range: %d", l.EMAIDChars)
	}
	return nil
}

type MessageHeader struct {
	SessionID     []byte
	TimeStamp     uint64
	SignatureUsed bool
}

// SignedInteger is a signed value tagged with the octet width it must fit.
type SignedInteger struct {
	Value  int64
	Octets uint8
}

// Fits reports whether Value is representable in Octets two's-complement bytes.
func (s SignedInteger) Fits() bool {
	if s.Octets == 0 || s.Octets > 8 {
		return false
	}
	if s.Octets == 8 {
		return true
	}
	bits := uint(s.Octets) * 8
	lo := -(int64(1) << (bits - 1))
	hi := int64(1)<<(bits-1) - 1
	return s.Value >= lo && s.Value <= hi
}

type X509IssuerSerial struct {
	X509IssuerName   string
	X509SerialNumber SignedInteger
}

// Certificate owns one decoded DER blob.
type Certificate struct {
	Bytes []byte
}

type CertificateChain struct {
	SubCertificates     []Certificate
	SubCertificatesUsed bool
}

// CertificateInstallationReq is the request record.
type CertificateInstallationReq struct {
	Header                           MessageHeader
	OEMProvisioningCertificateChain  CertificateChain
	ListOfRootCertificateIDs         []X509IssuerSerial
	MaximumContractCertificateChains uint8
	PrioritizedEMAIDs                []string
	PrioritizedEMAIDsUsed            bool
}

// Validate re-checks every record invariant against l.
func (r *CertificateInstallationReq) Validate(l Limits) error {
	if r == nil {
		return fault.New(fault.KindSchema, "", "nil record")
	}
	if n := len(r.Header.SessionID); n == 0 || n > l.SessionIDBytes {
		return fault.Newf(fault.KindRange, "SessionID", "length %d outside 1..%d", n, l.SessionIDBytes)
	}

	chain := r.OEMProvisioningCertificateChain
	if chain.SubCertificatesUsed != (len(chain.SubCertificates) > 0) {
		return fault.New(fault.KindSchema, "SubCertificates", "presence flag disagrees with content")
	}
	if len(chain.SubCertificates) > l.SubCertificates {
		return capacityErr("SubCertificates", len(chain.SubCertificates), l.SubCertificates)
	}
	for i, cert := range chain.SubCertificates {
		if len(cert.Bytes) > l.CertificateBytes {
			return capacityErr(fmt.Sprintf("SubCertificates[%d]", i), len(cert.Bytes), l.CertificateBytes)
		}
	}

	if len(r.ListOfRootCertificateIDs) == 0 {
		return fault.New(fault.KindSchema, "RootCertificateID", "at least one entry required")
	}
	if len(r.ListOfRootCertificateIDs) > l.RootCertificateIDs {
		return capacityErr("RootCertificateID", len(r.ListOfRootCertificateIDs), l.RootCertificateIDs)
	}
	for i, id := range r.ListOfRootCertificateIDs {
		if len(id.X509IssuerName) >= l.IssuerNameChars {
			return capacityErr(fmt.Sprintf("RootCertificateID[%d].X509IssuerName", i), len(id.X509IssuerName), l.IssuerNameChars-1)
		}
		if !id.X509SerialNumber.Fits() || int(id.X509SerialNumber.Octets) > l.SerialNumberOctets {
			return fault.Newf(fault.KindRange, fmt.Sprintf("RootCertificateID[%d].X509SerialNumber", i),
				"value %d does not fit %d octets", id.X509SerialNumber.Value, id.X509SerialNumber.Octets)
		}
	}

	if r.PrioritizedEMAIDsUsed != (len(r.PrioritizedEMAIDs) > 0) {
		return fault.New(fault.KindSchema, "PrioritizedEMAIDs", "presence flag disagrees with content")
	}
	if len(r.PrioritizedEMAIDs) > l.EMAIDs {
		return capacityErr("EMAID", len(r.PrioritizedEMAIDs), l.EMAIDs)
	}
	for i, emaid := range r.PrioritizedEMAIDs {
		if len(emaid) >= l.EMAIDChars {
			return capacityErr(fmt.Sprintf("EMAID[%d]", i), len(emaid), l.EMAIDChars-1)
		}
	}
	return nil
}

func capacityErr(field string, n, max int) error {
	return fault.Newf(fault.KindCapacity, field, "%d exceeds capacity %d", n, max)
}
