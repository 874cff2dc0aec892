package uiruntime

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Loader asynchronously constructs a runtime instance. Implementations may
// block on I/O and should honour ctx.
type Loader interface {
	Load(ctx context.Context, opts Options) (*Handle, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, opts Options) (*Handle, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, opts Options) (*Handle, error) {
	return f(ctx, opts)
}

// Handle represents one initialized runtime instance.
type Handle struct {
	id        string
	options   Options
	config    *DSLConfig
	createdAt time.Time
	invalid   atomic.Bool
}

// NewHandle wraps a resolved config into a live handle.
func NewHandle(opts Options, cfg *DSLConfig) *Handle {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if cfg == nil {
		cfg = &DSLConfig{}
	}
	return &Handle{
		id:        id.String(),
		options:   opts,
		config:    cfg,
		createdAt: time.Now(),
	}
}

// ID uniquely identifies the instance.
func (h *Handle) ID() string { return h.id }

// Options returns the options the instance was initialized with.
func (h *Handle) Options() Options { return h.options }

// Config returns the resolved declarative config.
func (h *Handle) Config() *DSLConfig { return h.config }

// CreatedAt returns the construction time.
func (h *Handle) CreatedAt() time.Time { return h.createdAt }

// Invalidate marks the handle dead. Safe to call more than once.
func (h *Handle) Invalidate() {
	h.invalid.Store(true)
}

// Valid reports whether the handle has not been invalidated.
func (h *Handle) Valid() bool {
	return h != nil && !h.invalid.Load()
}
