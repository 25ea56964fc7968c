package protocol

import (
	"errors"
	"io"

	"github.com/danmuck/exireq/internal/encoder"
	"github.com/danmuck/exireq/internal/protocol/frame"
	"github.com/danmuck/exireq/internal/protocol/tlv"
	"github.com/danmuck/exireq/internal/record"
	kaitai "github.com/kaitai-io/kaitai_struct_go_runtime/kaitai"
	"github.com/rs/zerolog"
)

const (
	Magic   uint32 = 0x45584931 // "EXI1"
	Version uint16 = 1
)

// Encoder renders records as a single frame.
type Encoder struct {
	limits record.Limits
	frames frame.Limits
	logger zerolog.Logger
}

var _ encoder.Encoder = (*Encoder)(nil)

func NewEncoder(limits record.Limits, logger zerolog.Logger) *Encoder {
	return &Encoder{
		limits: limits,
		frames: frame.DefaultLimits(),
		logger: logger,
	}
}

// Encode validates rec and writes one frame into out. Records that fail
// validation are never written.
func (e *Encoder) Encode(rec *record.CertificateInstallationReq, out []byte) (encoder.Status, int) {
	if err := rec.Validate(e.limits); err != nil {
		e.logger.Warn().Msgf("protocol.Encoder.Encode invalid record err=%v", err)
		return encoder.StatusInvalidRecord, 0
	}
	fields, err := recordFields(rec)
	if err != nil {
		e.logger.Error().Msgf("protocol.Encoder.Encode fields err=%v", err)
		return encoder.StatusInternal, 0
	}
	payloadLen := tlv.PayloadLen(fields)
	need := uint64(frame.FixedHeaderLen) + payloadLen
	if need > uint64(len(out)) {
		e.logger.Warn().Msgf("protocol.Encoder.Encode overflow need=%d capacity=%d", need, len(out))
		return encoder.StatusBufferOverflow, 0
	}
	if payloadLen > e.frames.MaxPayloadBytes {
		return encoder.StatusBufferOverflow, 0
	}

	dst := &boundedWriter{buf: out}
	w := kaitai.NewWriter(dst)
	err = frame.WriteHeader(w, frame.Header{
		Magic:       Magic,
		Version:     Version,
		HeaderLen:   frame.FixedHeaderLen,
		MessageType: schemaMessageType,
		PayloadLen:  payloadLen,
	})
	for i := 0; err == nil && i < len(fields); i++ {
		err = tlv.WriteField(w, fields[i])
	}
	if err != nil {
		if errors.Is(err, ErrBufferOverflow) {
			return encoder.StatusBufferOverflow, 0
		}
		e.logger.Error().Msgf("protocol.Encoder.Encode write err=%v", err)
		return encoder.StatusInternal, 0
	}
	e.logger.Debug().Msgf("protocol.Encoder.Encode bytes=%d fields=%d", dst.n, len(fields))
	return encoder.StatusOK, dst.n
}

// boundedWriter appends into a fixed slice and refuses to grow it.
type boundedWriter struct {
	buf []byte
	n   int
}

var _ io.Writer = (*boundedWriter)(nil)

func (b *boundedWriter) Write(p []byte) (int, error) {
	n := copy(b.buf[b.n:], p)
	b.n += n
	if n < len(p) {
		return n, ErrBufferOverflow
	}
	return n, nil
}
