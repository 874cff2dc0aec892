// Package uiruntime describes the contract of the externally supplied UI
// runtime as seen by the host: the options it is initialized with, the
// declarative config it resolves and the handle that represents one live
// instance.
package uiruntime

import (
	"fmt"
	"regexp"
	"strings"
)

// Environment selects which config backend the runtime talks to.
type Environment string

const (
	EnvironmentDebug      Environment = "debug"
	EnvironmentStaging    Environment = "staging"
	EnvironmentProduction Environment = "production"
)

// ParseEnvironment maps a user supplied string onto a known Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvironmentDebug, "development", "dev":
		return EnvironmentDebug, nil
	case EnvironmentStaging:
		return EnvironmentStaging, nil
	case EnvironmentProduction, "prod":
		return EnvironmentProduction, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, s)
}

// FlavorKind is the build flavor the host was packaged as.
type FlavorKind string

const (
	FlavorDebug   FlavorKind = "debug"
	FlavorStaging FlavorKind = "staging"
	FlavorRelease FlavorKind = "release"
)

// Flavor combines the flavor kind with the environment selector and any
// per-flavor overrides.
type Flavor struct {
	Kind        FlavorKind        `json:"kind" yaml:"kind" toml:"kind"`
	Environment Environment       `json:"environment" yaml:"environment" toml:"environment"`
	BaseURL     string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty" toml:"baseUrl,omitempty"`
	Overrides   map[string]string `json:"overrides,omitempty" yaml:"overrides,omitempty" toml:"overrides,omitempty"`
}

// Debug returns a debug flavor pointed at env.
func Debug(env Environment) Flavor {
	return Flavor{Kind: FlavorDebug, Environment: env}
}

// Staging returns a staging flavor pointed at env.
func Staging(env Environment) Flavor {
	return Flavor{Kind: FlavorStaging, Environment: env}
}

// Release returns a release flavor, always pointed at production.
func Release() Flavor {
	return Flavor{Kind: FlavorRelease, Environment: EnvironmentProduction}
}

// Override returns the override stored under key, if any.
func (f Flavor) Override(key string) (string, bool) {
	v, ok := f.Overrides[key]
	return v, ok
}

// Options is the initialization input handed to the runtime. It is fixed for
// the lifetime of one epoch.
type Options struct {
	AccessKey string `json:"accessKey" yaml:"accessKey" toml:"accessKey"`
	Flavor    Flavor `json:"flavor" yaml:"flavor" toml:"flavor"`
}

var accessKeyPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// Validate checks the credential shape and the flavor selectors. It does not
// contact any backend.
func (o Options) Validate() error {
	if !accessKeyPattern.MatchString(o.AccessKey) {
		return fmt.Errorf("%w: expected 24 hex characters", ErrInvalidAccessKey)
	}
	switch o.Flavor.Kind {
	case FlavorDebug, FlavorStaging, FlavorRelease, "":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFlavor, o.Flavor.Kind)
	}
	if _, err := ParseEnvironment(string(o.Flavor.Environment)); err != nil {
		return err
	}
	return nil
}

// MaskedAccessKey returns the access key with all but the last four
// characters hidden, suitable for logs.
func (o Options) MaskedAccessKey() string {
	if len(o.AccessKey) <= 4 {
		return strings.Repeat("*", len(o.AccessKey))
	}
	return strings.Repeat("*", len(o.AccessKey)-4) + o.AccessKey[len(o.AccessKey)-4:]
}
