package duihost

import (
	"errors"
	"fmt"

	"github.com/GoCodeAlone/duihost/registry"
)

// Host errors
var (
	// Lifecycle errors
	ErrNotReady          = errors.New("runtime is not ready")
	ErrNotStarted        = errors.New("lifecycle has not been started")
	ErrHotReloadDisabled = errors.New("hot reload is disabled in this build")
	ErrNilLoader         = errors.New("runtime loader is nil")
	ErrNilRegistry       = errors.New("runtime registry is nil")
	ErrStaleAttempt      = errors.New("initialization attempt was superseded")

	// Configuration errors
	ErrConfigNil                  = errors.New("config is nil")
	ErrConfigNotPointer           = errors.New("config must be a pointer")
	ErrConfigNotStruct            = errors.New("config must be a struct")
	ErrConfigRequiredFieldMissing = errors.New("required field is missing")
	ErrUnsupportedTypeForDefault  = errors.New("unsupported type for default value")
	ErrDefaultValueParseError     = errors.New("failed to parse default value")
	ErrConfigValidationFailed     = errors.New("config validation failed")

	// Event errors
	ErrInvalidEvent = errors.New("invalid lifecycle event")
)

// Initialization steps reported by InitializationError.
const (
	StepHandle  = "handle"
	StepManager = "manager"
	StepState   = "state"
	StepFactory = "factory"
)

// InitializationError is the cause stored in an Error state. It records the
// epoch and the step of the sequence that failed.
type InitializationError struct {
	Epoch uint64
	Step  string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("runtime initialization failed at %s step (epoch %d): %v", e.Step, e.Epoch, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// TeardownError reports the first service that failed to be destroyed.
type TeardownError = registry.TeardownError

func stepFor(service registry.Service) string {
	switch service {
	case registry.ServiceManager:
		return StepManager
	case registry.ServiceStateStore:
		return StepState
	case registry.ServiceFactory:
		return StepFactory
	}
	return string(service)
}
