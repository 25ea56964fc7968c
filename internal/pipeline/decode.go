package pipeline

import (
	"io"
	"strings"

	"github.com/danmuck/exireq/internal/codec"
	"github.com/danmuck/exireq/internal/config"
	"github.com/danmuck/exireq/internal/fault"
	"github.com/danmuck/exireq/internal/input"
	"github.com/danmuck/exireq/internal/protocol"
	"github.com/danmuck/exireq/internal/protocol/v2gtp"
	"github.com/danmuck/exireq/internal/record"
)

// Decode reverses Run: it reads one base64 line, strips the V2GTP header when
// cfg enables it, and parses the frame back into a record.
func Decode(in io.Reader, cfg config.Config) (*record.CertificateInstallationReq, error) {
	buf, err := input.ReadAll(in, cfg.Input)
	if err != nil {
		return nil, err
	}
	defer buf.Release()

	raw, err := codec.Base64Decode(strings.TrimSpace(buf.Text()))
	if err != nil {
		return nil, err
	}
	if cfg.Output.V2GTP {
		if raw, err = v2gtp.Unwrap(raw, cfg.Output.V2GTPPayloadType); err != nil {
			return nil, fault.Wrap(fault.KindFormat, "", "v2gtp header", err)
		}
	}
	rec, err := protocol.Decode(raw)
	if err != nil {
		return nil, fault.Wrap(fault.KindFormat, "", "decode frame", err)
	}
	return rec, nil
}
