// Package extract owns typed field extraction from a queried document.
//
// Ownership boundary:
// - mandatory / optional lookups by path
// - numeric width checks
// - capacity clamping and string truncation diagnostics
//
// Extract does not know the record layout; the populator decides which path
// feeds which field.
package extract

import (
	"errors"
	"strconv"
	"strings"

	"github.com/danmuck/exireq/internal/fault"
	"github.com/danmuck/exireq/internal/xmlq"
	"github.com/rs/zerolog"
)

// Querier is the query surface extraction needs from a parsed document.
type Querier interface {
	ContentAt(path string) (string, bool, error)
	AttributeAt(path, name string) (string, bool, error)
	CountAt(path string) (int, error)
	NodesetAt(path string) ([]xmlq.Node, error)
}

// ClampPolicy decides what happens when a collection exceeds its capacity.
type ClampPolicy string

const (
	PolicyClamp  ClampPolicy = "clamp"
	PolicyReject ClampPolicy = "reject"
)

// Diagnostic codes attached to non-fatal warnings.
const (
	DiagCapacityClamp  = "CapacityClamp"
	DiagStringTruncate = "StringTruncate"
)

// ParsePolicy accepts "clamp", "reject", or empty (clamp).
func ParsePolicy(raw string) (ClampPolicy, error) {
	switch ClampPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyClamp:
		return PolicyClamp, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fault.Newf(fault.KindConfig, "clamp_policy", "unknown policy %q", raw)
	}
}

// Extractor carries the clamp policy and the diagnostic logger for one run.
type Extractor struct {
	logger zerolog.Logger
	policy ClampPolicy
}

func New(logger zerolog.Logger, policy ClampPolicy) *Extractor {
	if policy == "" {
		policy = PolicyClamp
	}
	return &Extractor{logger: logger, policy: policy}
}

func (x *Extractor) Policy() ClampPolicy {
	return x.policy
}

// Mandatory returns the trimmed content at path. A missing node is a
// SchemaError labelled with field.
func (x *Extractor) Mandatory(q Querier, field, path string) (string, error) {
	text, ok, err := q.ContentAt(path)
	if err != nil {
		return "", fault.WithField(err, field)
	}
	if !ok {
		return "", fault.Newf(fault.KindSchema, field, "missing mandatory element %s", path)
	}
	return strings.TrimSpace(text), nil
}

// Presence reports whether at least one node matches path.
func Presence(q Querier, path string) (bool, error) {
	n, err := q.CountAt(path)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ParseUint parses the whole of text as a decimal that fits bits.
func ParseUint(text string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(text), 10, bits)
	if err != nil {
		return 0, numErr(text, bits, err)
	}
	return v, nil
}

// ParseInt parses the whole of text as a signed decimal that fits bits.
func ParseInt(text string, bits int) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(text), 10, bits)
	if err != nil {
		return 0, numErr(text, bits, err)
	}
	return v, nil
}

func numErr(text string, bits int, err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return fault.Newf(fault.KindRange, "", "%q does not fit %d bits", text, bits)
	}
	return fault.Newf(fault.KindFormat, "", "%q is not a decimal integer", text)
}

// Clamp bounds a collection size n to capacity. Over capacity, the clamp
// policy logs a CapacityClamp warning and returns capacity; the reject
// policy returns a CapacityError.
func (x *Extractor) Clamp(field string, n, capacity int) (int, error) {
	if n <= capacity {
		return n, nil
	}
	if x.policy == PolicyReject {
		return 0, fault.Newf(fault.KindCapacity, field, "%d entries exceed capacity %d", n, capacity)
	}
	x.logger.Warn().
		Str("diagnostic", DiagCapacityClamp).
		Str("field", field).
		Int("found", n).
		Int("capacity", capacity).
		Msgf("extract.Clamp field=%s found=%d capacity=%d", field, n, capacity)
	return capacity, nil
}

// CopyString stores src into a slot of capacity characters, one of which is
// reserved for the terminator. Longer text keeps its first capacity-1 bytes
// and logs a StringTruncate warning.
func (x *Extractor) CopyString(field, src string, capacity int) string {
	if capacity < 1 {
		return ""
	}
	if len(src) < capacity {
		return strings.Clone(src)
	}
	x.logger.Warn().
		Str("diagnostic", DiagStringTruncate).
		Str("field", field).
		Int("length", len(src)).
		Int("capacity", capacity).
		Msgf("extract.CopyString field=%s length=%d kept=%d", field, len(src), capacity-1)
	return strings.Clone(src[:capacity-1])
}

// CopyBytes returns an owned copy of src bounded by capacity, following the
// clamp policy when src is too long.
func (x *Extractor) CopyBytes(field string, src []byte, capacity int) ([]byte, error) {
	n, err := x.Clamp(field, len(src), capacity)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, src[:n])
	return out, nil
}
