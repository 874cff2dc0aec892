package uiruntime

import "errors"

// Loader errors
var (
	ErrInvalidAccessKey    = errors.New("invalid access key")
	ErrUnknownEnvironment  = errors.New("unknown environment")
	ErrUnknownFlavor       = errors.New("unknown flavor")
	ErrConfigUnavailable   = errors.New("declarative config unavailable")
	ErrMalformedConfig     = errors.New("malformed declarative config")
	ErrUnsupportedFormat   = errors.New("unsupported declarative config format")
	ErrHandleInvalidated   = errors.New("runtime handle invalidated")
	ErrMissingInitialPage  = errors.New("declarative config has no initial page")
	ErrUndefinedInitialRef = errors.New("initial page is not defined in pages")
)
