// Package feeders provides configuration feeders for reading data from
// environment variables and JSON, YAML or TOML files.
package feeders

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Feeder populates a target structure from a single source.
type Feeder interface {
	Feed(target interface{}) error
}

// Feeder errors
var (
	ErrFileFormatUnsupported = errors.New("unsupported config file format")
	ErrFileRead              = errors.New("failed to read config file")
	ErrFileDecode            = errors.New("failed to decode config file")
)

// ForFile returns the file feeder matching the extension of filePath.
func ForFile(filePath string) (Feeder, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		return NewYamlFeeder(filePath), nil
	case ".toml":
		return NewTomlFeeder(filePath), nil
	case ".json":
		return NewJSONFeeder(filePath), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrFileFormatUnsupported, filePath)
}

// Feed runs each feeder in order against target. Later feeders override
// values set by earlier ones.
func Feed(target interface{}, feeders ...Feeder) error {
	for _, f := range feeders {
		if err := f.Feed(target); err != nil {
			return err
		}
	}
	return nil
}
