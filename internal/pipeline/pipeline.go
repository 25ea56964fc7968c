// Package pipeline owns one end-to-end run: read, parse, populate, encode,
// and emit a single base64 line.
//
// Ownership boundary:
// - stage ordering and the single cleanup point
// - mapping encoder statuses onto EncodeError
// - the output contract: one line on success, nothing on failure
package pipeline

import (
	"io"
	"time"

	"github.com/danmuck/exireq/internal/codec"
	"github.com/danmuck/exireq/internal/config"
	"github.com/danmuck/exireq/internal/encoder"
	"github.com/danmuck/exireq/internal/extract"
	"github.com/danmuck/exireq/internal/fault"
	"github.com/danmuck/exireq/internal/input"
	"github.com/danmuck/exireq/internal/observability"
	"github.com/danmuck/exireq/internal/populate"
	"github.com/danmuck/exireq/internal/protocol"
	"github.com/danmuck/exireq/internal/protocol/v2gtp"
	"github.com/danmuck/exireq/internal/record"
	"github.com/danmuck/exireq/internal/xmlq"
	"github.com/rs/zerolog"
)

// Options configures a run. A nil Encoder selects protocol.Encoder.
type Options struct {
	Config  config.Config
	Encoder encoder.Encoder
	Logger  zerolog.Logger
}

// Result describes a successful run.
type Result struct {
	RunID string
	// Bytes is the encoded length before base64.
	Bytes int
	Line  string
}

// Run executes the whole pipeline. On success exactly one line is written to
// out; on any failure nothing is written and the error carries a fault.Kind.
func Run(in io.Reader, out io.Writer, opts Options) (res Result, err error) {
	cfg := opts.Config
	runID, logger := observability.RunLogger(opts.Logger)
	res.RunID = runID
	start := time.Now()

	rel := newReleaser(logger)
	defer func() {
		rel.releaseAll()
		observability.RecordRun(string(fault.KindOf(err)), time.Since(start))
		if cfg.Metrics.Textfile != "" {
			if werr := observability.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
				logger.Warn().Msgf("pipeline.Run metrics textfile=%s err=%v", cfg.Metrics.Textfile, werr)
			}
		}
		if err != nil {
			logger.Error().Str("kind", string(fault.KindOf(err))).Msgf("pipeline.Run failed err=%v", err)
		}
	}()

	if err := config.Validate(cfg); err != nil {
		return res, err
	}
	logger.Debug().Msgf("pipeline.Run start clamp_policy=%s v2gtp=%t", cfg.ClampPolicy, cfg.Output.V2GTP)

	buf, err := stage("read", func() (*input.Buffer, error) { return input.ReadAll(in, cfg.Input) })
	if err != nil {
		return res, err
	}
	rel.push("input", buf.Release)

	doc, err := stage("parse", func() (*xmlq.Document, error) { return xmlq.Parse(buf.Bytes()) })
	if err != nil {
		return res, err
	}
	rel.push("document", doc.Release)

	x := extract.New(logger, cfg.ClampPolicy)
	rec, err := stage("populate", func() (*record.CertificateInstallationReq, error) {
		return populate.New(x, cfg.Limits, logger).Populate(doc)
	})
	if err != nil {
		return res, err
	}

	outBuf := make([]byte, cfg.EncoderLimits().OutputCapacity)
	rel.push("output", func() { clear(outBuf) })

	enc := opts.Encoder
	if enc == nil {
		enc = protocol.NewEncoder(cfg.Limits, logger)
	}
	encoded, err := stage("encode", func() ([]byte, error) { return encode(enc, rec, outBuf) })
	if err != nil {
		return res, err
	}
	observability.RecordEncodedBytes(len(encoded))

	if cfg.Output.V2GTP {
		encoded, err = v2gtp.Wrap(encoded, cfg.Output.V2GTPPayloadType)
		if err != nil {
			return res, fault.Wrap(fault.KindEncode, "", "v2gtp framing", err)
		}
	}

	line := codec.Base64Encode(encoded)
	if _, err := io.WriteString(out, line+"\n"); err != nil {
		return res, fault.Wrap(fault.KindIO, "", "write output", err)
	}
	res.Bytes = len(encoded)
	res.Line = line
	logger.Info().Msgf("pipeline.Run ok bytes=%d base64_len=%d", res.Bytes, len(line))
	return res, nil
}

func encode(enc encoder.Encoder, rec *record.CertificateInstallationReq, out []byte) ([]byte, error) {
	status, n := enc.Encode(rec, out)
	if status != encoder.StatusOK {
		return nil, fault.Newf(fault.KindEncode, "", "encoder status %s", status)
	}
	if n <= 0 || n > len(out) {
		return nil, fault.Newf(fault.KindEncode, "", "encoder reported %d bytes for capacity %d", n, len(out))
	}
	return out[:n], nil
}

func stage[T any](name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	observability.RecordStage(name, time.Since(start))
	return v, err
}
