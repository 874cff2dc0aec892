package feeders

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// TomlFeeder is a feeder that reads TOML files
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a new TomlFeeder that reads from the specified TOML file
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Feed decodes the whole file into target
func (t TomlFeeder) Feed(target interface{}) error {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileRead, err)
	}
	if _, err := toml.Decode(string(data), target); err != nil {
		return fmt.Errorf("%w: toml %s: %w", ErrFileDecode, t.Path, err)
	}
	return nil
}
