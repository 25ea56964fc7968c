package observability

import (
	"github.com/rs/zerolog"
	"github.com/segmentio/ksuid"
)

// RunLogger tags base with a fresh run id and returns both.
func RunLogger(base zerolog.Logger) (string, zerolog.Logger) {
	id := ksuid.New().String()
	return id, base.With().Str("run_id", id).Logger()
}
