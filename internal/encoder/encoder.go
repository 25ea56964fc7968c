// Package encoder defines the contract between the pipeline and a binary
// record encoder.
//
// Ownership boundary:
// - status codes an encoder may report
// - output buffer capacity
package encoder

import (
	"fmt"

	"github.com/danmuck/exireq/internal/record"
)

const DefaultOutputCapacity = 16384

// Status is the fixed set of encoder outcomes.
type Status int

const (
	StatusOK Status = iota
	StatusInvalidRecord
	StatusBufferOverflow
	StatusUnsupported
	StatusInternal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusInvalidRecord:
		return "invalid_record"
	case StatusBufferOverflow:
		return "buffer_overflow"
	case StatusUnsupported:
		return "unsupported"
	case StatusInternal:
		return "internal"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Encoder writes rec into out and reports how many bytes it used. On any
// status other than StatusOK the byte count is meaningless.
type Encoder interface {
	Encode(rec *record.CertificateInstallationReq, out []byte) (Status, int)
}

// Func adapts a plain function to Encoder.
type Func func(rec *record.CertificateInstallationReq, out []byte) (Status, int)

func (f Func) Encode(rec *record.CertificateInstallationReq, out []byte) (Status, int) {
	return f(rec, out)
}

// Limits sizes the output buffer handed to an encoder.
type Limits struct {
	OutputCapacity int
}

func DefaultLimits() Limits {
	return Limits{OutputCapacity: DefaultOutputCapacity}
}
