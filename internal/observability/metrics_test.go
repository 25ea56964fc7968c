package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/exireq/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(pipelineRuns.WithLabelValues("error", "SchemaError"))
	RecordRun("SchemaError", 3*time.Millisecond)
	RecordRun("", 2*time.Millisecond)
	RecordStage("parse", time.Millisecond)
	RecordEncodedBytes(120)

	if got := testutil.ToFloat64(pipelineRuns.WithLabelValues("error", "SchemaError")); got != before+1 {
		t.Fatalf("expected error counter %v, got %v", before+1, got)
	}
}

func TestWriteTextfile(t *testing.T) {
	RecordRun("", time.Millisecond)
	path := filepath.Join(t.TempDir(), "exireq.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), "exireq_pipeline_runs_total") {
		t.Fatalf("runs counter missing:\n%s", data)
	}
}

func TestRunLoggerTagsRunID(t *testing.T) {
	var buf bytes.Buffer
	id, logger := RunLogger(zerolog.New(&buf))
	if len(id) != 27 {
		t.Fatalf("unexpected run id %q", id)
	}
	logger.Info().Msg("pipeline.Run start")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["run_id"] != id {
		t.Fatalf("run_id not attached: %v", entry)
	}
	if other, _ := RunLogger(zerolog.Nop()); other == id {
		t.Fatalf("run ids must differ")
	}
}
