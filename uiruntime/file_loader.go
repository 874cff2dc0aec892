package uiruntime

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/GoCodeAlone/duihost/feeders"
)

// FileLoader resolves the declarative config from a local JSON, YAML or TOML
// file. It is used in development and for offline bundles.
type FileLoader struct {
	Path string

	// AllowedKeys, when non-empty, restricts which access keys are accepted.
	AllowedKeys []string
}

// NewFileLoader creates a loader reading path.
func NewFileLoader(path string, allowedKeys ...string) *FileLoader {
	return &FileLoader{Path: path, AllowedKeys: allowedKeys}
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context, opts Options) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(l.AllowedKeys) > 0 && !slices.Contains(l.AllowedKeys, opts.AccessKey) {
		return nil, fmt.Errorf("%w: key %s is not authorized", ErrInvalidAccessKey, opts.MaskedAccessKey())
	}

	feeder, err := feeders.ForFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
	}

	cfg := &DSLConfig{}
	if err := feeder.Feed(cfg); err != nil {
		if errors.Is(err, feeders.ErrFileRead) {
			return nil, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return NewHandle(opts, cfg), nil
}
