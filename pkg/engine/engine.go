package engine

import (
	"time"
)

// Engine is the template graph engine. Its only fields are configuration, so a
// single Engine can be shared freely.
type Engine struct {
	allowSelfLoops bool
	now            func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithSelfLoops permits nodes that list themselves as destination.
func WithSelfLoops(allow bool) Option {
	return func(e *Engine) {
		e.allowSelfLoops = allow
	}
}

// WithClock sets the time source used to stamp executions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine. Self-loops are rejected unless WithSelfLoops(true) is given.
func New(opts ...Option) *Engine {
	e := &Engine{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AllowsSelfLoops reports the self-loop policy.
func (e *Engine) AllowsSelfLoops() bool {
	return e.allowSelfLoops
}
