package duihost

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/GoCodeAlone/duihost/feeders"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

// EnvPrefix prefixes every environment override, e.g. DUIHOST_ACCESS_KEY.
const EnvPrefix = "DUIHOST"

// Config is the host configuration.
type Config struct {
	AccessKey   string `json:"accessKey" yaml:"accessKey" toml:"accessKey" env:"ACCESS_KEY" required:"true"`
	Environment string `json:"environment" yaml:"environment" toml:"environment" env:"ENVIRONMENT" default:"production"`
	Flavor      string `json:"flavor" yaml:"flavor" toml:"flavor" env:"FLAVOR" default:"debug"`
	BaseURL     string `json:"baseUrl" yaml:"baseUrl" toml:"baseUrl" env:"BASE_URL"`

	// DSLFile switches the runtime to a local declarative config instead of
	// the remote backend.
	DSLFile string `json:"dslFile" yaml:"dslFile" toml:"dslFile" env:"DSL_FILE"`

	// Countdown is the number of one-second splash ticks before the routed
	// view is revealed.
	Countdown int `json:"countdown" yaml:"countdown" toml:"countdown" env:"COUNTDOWN" default:"3"`

	// ImageDir is where {{image:name}} placeholders are resolved.
	ImageDir string `json:"imageDir" yaml:"imageDir" toml:"imageDir" env:"IMAGE_DIR"`

	// Overrides are per-flavor values handed to the runtime and resolved by
	// {{flavor:key}} placeholders.
	Overrides map[string]string `json:"overrides" yaml:"overrides" toml:"overrides"`

	// Fonts maps page font families to the fonts the host renders them with.
	Fonts map[string]string `json:"fonts" yaml:"fonts" toml:"fonts"`

	Dev DevConfig `json:"dev" yaml:"dev" toml:"dev"`
	Log LogConfig `json:"log" yaml:"log" toml:"log"`
}

// DevConfig holds development-only settings.
type DevConfig struct {
	Enabled    bool          `json:"enabled" yaml:"enabled" toml:"enabled" env:"DEV"`
	WatchPaths []string      `json:"watch" yaml:"watch" toml:"watch" env:"WATCH"`
	Debounce   time.Duration `json:"debounce" yaml:"debounce" toml:"debounce" env:"WATCH_DEBOUNCE" default:"300ms"`
	ServerAddr string        `json:"serverAddr" yaml:"serverAddr" toml:"serverAddr" env:"DEV_ADDR"`
}

// LogConfig selects the log output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" yaml:"format" toml:"format" env:"LOG_FORMAT" default:"json"`
	File   string `json:"file" yaml:"file" toml:"file" env:"LOG_FILE"`
}

// LoadConfig reads path (if non-empty), then the DUIHOST_* environment, then
// applies defaults and validates the result.
func LoadConfig(path string) (*Config, error) {
	return LoadConfigFrom(path, feeders.NewEnvFeeder(EnvPrefix))
}

// LoadConfigFrom reads path (if non-empty) and then each override feeder in
// order, so later feeders win.
//
// A YAML file may carry one section per environment (debug, staging,
// production). The section matching the resolved environment is applied on
// top of the file and below the overrides.
func LoadConfigFrom(path string, overrides ...feeders.Feeder) (*Config, error) {
	var file feeders.Feeder
	if path != "" {
		f, err := feeders.ForFile(path)
		if err != nil {
			return nil, err
		}
		file = f
	}

	cfg := &Config{}
	if err := feeders.Feed(cfg, configSources(file, nil, overrides)...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// The section sits below the overrides, so it can only be chosen once
	// they have all had their say on the environment.
	if y, ok := file.(feeders.YamlFeeder); ok {
		section := environmentSection{file: y, env: cfg.environmentKey()}
		cfg = &Config{}
		if err := feeders.Feed(cfg, configSources(file, section, overrides)...); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	if err := ProcessConfigDefaults(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := ValidateConfigRequired(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func configSources(file, section feeders.Feeder, overrides []feeders.Feeder) []feeders.Feeder {
	var sources []feeders.Feeder
	for _, f := range append([]feeders.Feeder{file, section}, overrides...) {
		if f != nil {
			sources = append(sources, f)
		}
	}
	return sources
}

// environmentKey names the per-environment section for c. Unknown names are
// kept as written; Validate rejects them later.
func (c *Config) environmentKey() string {
	name := c.Environment
	if name == "" {
		name = string(uiruntime.EnvironmentProduction)
	}
	if env, err := uiruntime.ParseEnvironment(name); err == nil {
		return string(env)
	}
	return name
}

// environmentSection feeds the top-level key of a YAML file named after the
// active environment.
type environmentSection struct {
	file feeders.YamlFeeder
	env  string
}

func (s environmentSection) Feed(target interface{}) error {
	return s.file.FeedKey(s.env, target)
}

// Validate implements ConfigValidator.
func (c *Config) Validate() error {
	if _, err := uiruntime.ParseEnvironment(c.Environment); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigValidationFailed, err)
	}
	switch uiruntime.FlavorKind(strings.ToLower(c.Flavor)) {
	case uiruntime.FlavorDebug, uiruntime.FlavorStaging, uiruntime.FlavorRelease:
	default:
		return fmt.Errorf("%w: %w: %q", ErrConfigValidationFailed, uiruntime.ErrUnknownFlavor, c.Flavor)
	}
	if c.Countdown < 0 {
		return fmt.Errorf("%w: countdown must not be negative", ErrConfigValidationFailed)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrConfigValidationFailed, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrConfigValidationFailed, c.Log.Format)
	}
	return nil
}

// RuntimeOptions converts the config into runtime initialization options.
func (c *Config) RuntimeOptions() uiruntime.Options {
	env, err := uiruntime.ParseEnvironment(c.Environment)
	if err != nil {
		env = uiruntime.Environment(c.Environment)
	}
	return uiruntime.Options{
		AccessKey: c.AccessKey,
		Flavor: uiruntime.Flavor{
			Kind:        uiruntime.FlavorKind(strings.ToLower(c.Flavor)),
			Environment: env,
			BaseURL:     c.BaseURL,
			Overrides:   maps.Clone(c.Overrides),
		},
	}
}
