package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/exireq/internal/codec"
	"github.com/danmuck/exireq/internal/config"
	"github.com/danmuck/exireq/internal/encoder"
	"github.com/danmuck/exireq/internal/extract"
	"github.com/danmuck/exireq/internal/fault"
	"github.com/danmuck/exireq/internal/protocol/v2gtp"
	"github.com/danmuck/exireq/internal/record"
	"github.com/danmuck/exireq/internal/testutil/fixtures"
	"github.com/danmuck/exireq/internal/testutil/testlog"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, xml string, cfg config.Config, enc encoder.Encoder) (Result, string, error) {
	t.Helper()
	var out bytes.Buffer
	res, err := Run(strings.NewReader(xml), &out, Options{Config: cfg, Encoder: enc, Logger: zerolog.Nop()})
	return res, out.String(), err
}

func TestRunHappyPathEmitsOneLine(t *testing.T) {
	testlog.Start(t)
	res, out, err := run(t, fixtures.HappyPath().XML(), config.Default(), nil)
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(out, "\n"))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 1)
	require.NotEmpty(t, lines[0])
	assert.Equal(t, res.Line, lines[0])
	assert.NotEmpty(t, res.RunID)

	raw, err := codec.Base64Decode(lines[0])
	require.NoError(t, err)
	assert.Len(t, raw, res.Bytes)
}

func TestRunMissingSessionIDWritesNothing(t *testing.T) {
	req := fixtures.HappyPath()
	req.SessionID = ""
	_, out, err := run(t, req.XML(), config.Default(), nil)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindSchema), "%v", err)
	assert.Empty(t, out)
}

func TestRunMalformedXML(t *testing.T) {
	_, out, err := run(t, "<V2G_Message><Header>", config.Default(), nil)
	assert.True(t, fault.IsKind(err, fault.KindXMLSyntax), "%v", err)
	assert.Empty(t, out)
}

func TestRunOutputDecodesToPopulatedRecord(t *testing.T) {
	req := fixtures.HappyPath()
	req.Certificates = []string{codec.Base64Encode([]byte("oem-cert"))}
	req.EMAIDs = []string{"DE8AA001234567"}
	_, out, err := run(t, req.XML(), config.Default(), nil)
	require.NoError(t, err)

	rec, err := Decode(strings.NewReader(out), config.Default())
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, rec.Header.SessionID)
	assert.Equal(t, uint64(1690000000), rec.Header.TimeStamp)
	require.Len(t, rec.ListOfRootCertificateIDs, 1)
	assert.Equal(t, "CN=Test", rec.ListOfRootCertificateIDs[0].X509IssuerName)
	assert.Equal(t, int64(12345), rec.ListOfRootCertificateIDs[0].X509SerialNumber.Value)
	assert.Equal(t, uint8(3), rec.MaximumContractCertificateChains)
	assert.Equal(t, []string{"DE8AA001234567"}, rec.PrioritizedEMAIDs)
	require.Len(t, rec.OEMProvisioningCertificateChain.SubCertificates, 1)
	assert.Equal(t, []byte("oem-cert"), rec.OEMProvisioningCertificateChain.SubCertificates[0].Bytes)
}

func TestRunClampAndRejectPolicies(t *testing.T) {
	xml := fixtures.WithRootIDs(record.DefaultRootCertificateIDs + 5).XML()

	_, out, err := run(t, xml, config.Default(), nil)
	require.NoError(t, err)
	rec, err := Decode(strings.NewReader(out), config.Default())
	require.NoError(t, err)
	assert.Len(t, rec.ListOfRootCertificateIDs, record.DefaultRootCertificateIDs)

	cfg := config.Default()
	cfg.ClampPolicy = extract.PolicyReject
	_, out, err = run(t, xml, cfg, nil)
	assert.True(t, fault.IsKind(err, fault.KindCapacity), "%v", err)
	assert.Empty(t, out)
}

func TestRunV2GTPFraming(t *testing.T) {
	cfg := config.Default()
	cfg.Output.V2GTP = true
	_, out, err := run(t, fixtures.HappyPath().XML(), cfg, nil)
	require.NoError(t, err)

	raw, err := codec.Base64Decode(strings.TrimSpace(out))
	require.NoError(t, err)
	require.Greater(t, len(raw), v2gtp.HeaderLen)
	assert.Equal(t, []byte{0x01, 0xFE, 0x80, 0x01}, raw[:4])

	rec, err := Decode(strings.NewReader(out), cfg)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), rec.MaximumContractCertificateChains)

	_, err = Decode(strings.NewReader(out), config.Default())
	assert.True(t, fault.IsKind(err, fault.KindFormat), "%v", err)
}

func TestRunEncoderFailures(t *testing.T) {
	cases := map[string]encoder.Func{
		"overflow": func(*record.CertificateInstallationReq, []byte) (encoder.Status, int) {
			return encoder.StatusBufferOverflow, 0
		},
		"unsupported": func(*record.CertificateInstallationReq, []byte) (encoder.Status, int) {
			return encoder.StatusUnsupported, 0
		},
		"bad length": func(_ *record.CertificateInstallationReq, out []byte) (encoder.Status, int) {
			return encoder.StatusOK, len(out) + 1
		},
	}
	for name, enc := range cases {
		_, out, err := run(t, fixtures.HappyPath().XML(), config.Default(), enc)
		assert.True(t, fault.IsKind(err, fault.KindEncode), "%s: %v", name, err)
		assert.Empty(t, out, name)
	}
}

func TestRunSmallOutputCapacityOverflows(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Capacity = 16
	_, out, err := run(t, fixtures.HappyPath().XML(), cfg, nil)
	assert.True(t, fault.IsKind(err, fault.KindEncode), "%v", err)
	assert.Empty(t, out)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed pipe") }

func TestRunWriteFailureIsIOError(t *testing.T) {
	_, err := Run(strings.NewReader(fixtures.HappyPath().XML()), failingWriter{}, Options{
		Config: config.Default(),
		Logger: zerolog.Nop(),
	})
	assert.True(t, fault.IsKind(err, fault.KindIO), "%v", err)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Capacity = 0
	_, out, err := run(t, fixtures.HappyPath().XML(), cfg, nil)
	assert.True(t, fault.IsKind(err, fault.KindConfig), "%v", err)
	assert.Empty(t, out)
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "exireq.prom")
	_, _, err := run(t, fixtures.HappyPath().XML(), cfg, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exireq_pipeline_runs_total")
	assert.Contains(t, string(data), `stage="populate"`)
}

func TestReleaserRunsInReverseOnce(t *testing.T) {
	var order []string
	rel := newReleaser(zerolog.Nop())
	for _, name := range []string{"input", "document", "output"} {
		name := name
		rel.push(name, func() { order = append(order, name) })
	}
	rel.releaseAll()
	rel.releaseAll()
	assert.Equal(t, []string{"output", "document", "input"}, order)

	rel.push("late", func() { order = append(order, "late") })
	assert.Equal(t, []string{"output", "document", "input", "late"}, order)
}
