package services

import (
	"os"
	"path/filepath"
)

// IconMap resolves icon names from a fixed table.
type IconMap map[string]string

// Icon implements registry.IconResolver.
func (m IconMap) Icon(name string) (string, bool) {
	glyph, ok := m[name]
	return glyph, ok
}

// DefaultIcons is a small glyph table suitable for terminals.
func DefaultIcons() IconMap {
	return IconMap{
		"home":    "⌂",
		"back":    "←",
		"next":    "→",
		"check":   "✓",
		"cross":   "✗",
		"warning": "⚠",
		"info":    "ℹ",
		"star":    "★",
		"user":    "☺",
	}
}

// ImageDir resolves image names to files under a directory. Names that do
// not exist there are unresolved.
type ImageDir string

// Image implements registry.ImageResolver.
func (d ImageDir) Image(name string) (string, bool) {
	if d == "" {
		return "", false
	}
	path := filepath.Join(string(d), filepath.Clean("/"+name))
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// FontMap resolves font families to concrete font names. The "default" entry,
// when present, stands in for families the map does not know; otherwise the
// family is used as written.
type FontMap map[string]string

// Font implements registry.FontFactory. Weights of 600 and up resolve to the
// bold face, 300 and below to the light face.
func (m FontMap) Font(family string, weight int) string {
	name, ok := m[family]
	if !ok {
		name, ok = m["default"]
	}
	if !ok {
		name = family
	}
	switch {
	case weight >= 600:
		return name + " Bold"
	case weight > 0 && weight <= 300:
		return name + " Light"
	}
	return name
}
