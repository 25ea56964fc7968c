package pipeline

import "github.com/rs/zerolog"

type release struct {
	name string
	fn   func()
}

// releaser runs registered cleanups in reverse order, exactly once.
type releaser struct {
	stack  []release
	done   bool
	logger zerolog.Logger
}

func newReleaser(logger zerolog.Logger) *releaser {
	return &releaser{logger: logger}
}

func (r *releaser) push(name string, fn func()) {
	if r.done {
		// registered after the exit point; release immediately
		fn()
		return
	}
	r.stack = append(r.stack, release{name: name, fn: fn})
}

func (r *releaser) releaseAll() {
	if r.done {
		return
	}
	r.done = true
	for i := len(r.stack) - 1; i >= 0; i-- {
		r.logger.Trace().Msgf("pipeline.releaser release=%s", r.stack[i].name)
		r.stack[i].fn()
	}
	r.stack = nil
}
