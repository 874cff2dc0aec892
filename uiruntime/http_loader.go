package uiruntime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Headers sent with every config request.
const (
	HeaderAccessKey   = "x-dui-access-key"
	HeaderEnvironment = "x-dui-environment"
	HeaderFlavor      = "x-dui-flavor"
)

// DefaultBaseURLs maps each environment to its config backend.
var DefaultBaseURLs = map[Environment]string{
	EnvironmentDebug:      "http://localhost:8787",
	EnvironmentStaging:    "https://staging.config.duihost.dev",
	EnvironmentProduction: "https://config.duihost.dev",
}

// HTTPLoader fetches the declarative config from a remote backend.
type HTTPLoader struct {
	client   *resty.Client
	baseURLs map[Environment]string
}

// HTTPLoaderOption configures an HTTPLoader.
type HTTPLoaderOption func(*HTTPLoader)

// WithBaseURL overrides the backend for a single environment.
func WithBaseURL(env Environment, url string) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		l.baseURLs[env] = url
	}
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(count int, wait time.Duration) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		l.client.SetRetryCount(count).SetRetryWaitTime(wait)
	}
}

// WithTimeout bounds a single request.
func WithTimeout(d time.Duration) HTTPLoaderOption {
	return func(l *HTTPLoader) {
		l.client.SetTimeout(d)
	}
}

// NewHTTPLoader creates a loader with default backends.
func NewHTTPLoader(opts ...HTTPLoaderOption) *HTTPLoader {
	client := resty.New().
		SetTimeout(30*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", "duihost/1.0").
		SetHeader("Accept", "application/json")

	l := &HTTPLoader{
		client:   client,
		baseURLs: make(map[Environment]string, len(DefaultBaseURLs)),
	}
	for env, url := range DefaultBaseURLs {
		l.baseURLs[env] = url
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// baseURL resolves the backend for a flavor, honouring a per-flavor override.
func (l *HTTPLoader) baseURL(f Flavor) (string, error) {
	if f.BaseURL != "" {
		return strings.TrimRight(f.BaseURL, "/"), nil
	}
	env, err := ParseEnvironment(string(f.Environment))
	if err != nil {
		return "", err
	}
	url, ok := l.baseURLs[env]
	if !ok || url == "" {
		return "", fmt.Errorf("%w: no backend for environment %s", ErrConfigUnavailable, env)
	}
	return strings.TrimRight(url, "/"), nil
}

// Load implements Loader.
func (l *HTTPLoader) Load(ctx context.Context, opts Options) (*Handle, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	base, err := l.baseURL(opts.Flavor)
	if err != nil {
		return nil, err
	}

	kind := opts.Flavor.Kind
	if kind == "" {
		kind = FlavorDebug
	}

	resp, err := l.client.R().
		SetContext(ctx).
		SetHeader(HeaderAccessKey, opts.AccessKey).
		SetHeader(HeaderEnvironment, string(opts.Flavor.Environment)).
		SetHeader(HeaderFlavor, string(kind)).
		Get(base + "/config")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return nil, fmt.Errorf("%w: backend rejected key %s", ErrInvalidAccessKey, opts.MaskedAccessKey())
	case resp.IsError():
		return nil, fmt.Errorf("%w: backend returned %d", ErrConfigUnavailable, code)
	}

	cfg := &DSLConfig{}
	if err := json.Unmarshal(resp.Body(), cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return NewHandle(opts, cfg), nil
}
