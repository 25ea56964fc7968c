package testlog

import (
	"bytes"
	"testing"

	"github.com/danmuck/exireq/internal/logging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	log.Info().Msgf("test=%s", t.Name())
}

// Capture returns a debug-level logger writing JSON lines into the returned
// buffer, for asserting on diagnostics.
func Capture(t *testing.T) (zerolog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return zerolog.New(&buf).Level(zerolog.DebugLevel), &buf
}
