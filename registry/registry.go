package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/GoCodeAlone/duihost/uiruntime"
)

// Service names one of the registry's services.
type Service string

const (
	ServiceManager    Service = "manager"
	ServiceStateStore Service = "state"
	ServiceFactory    Service = "factory"
)

// InitOrder is the fixed initialization order. Teardown runs in reverse.
var InitOrder = []Service{ServiceManager, ServiceStateStore, ServiceFactory}

// Static errors for registry package
var (
	ErrNilService            = errors.New("registry service is nil")
	ErrNilHandle             = errors.New("runtime handle is nil")
	ErrHandleNotValid        = errors.New("runtime handle is no longer valid")
	ErrAlreadyInitialized    = errors.New("registry services are already initialized")
	ErrServiceNotInitialized = errors.New("registry service is not initialized")
)

// InitError reports which service failed during Initialize. Services that had
// already been initialized were rolled back; rollback failures are kept in
// Rollback.
type InitError struct {
	Service  Service
	Err      error
	Rollback []*TeardownError
}

func (e *InitError) Error() string {
	msg := fmt.Sprintf("initialize %s: %v", e.Service, e.Err)
	if len(e.Rollback) > 0 {
		msg += fmt.Sprintf(" (%d rollback failures)", len(e.Rollback))
	}
	return msg
}

func (e *InitError) Unwrap() error { return e.Err }

// TeardownError reports a failure destroying one service.
type TeardownError struct {
	Service Service
	Err     error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("destroy %s: %v", e.Service, e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }

// Action is what happened to a service.
type Action string

const (
	ActionInitialized Action = "initialized"
	ActionDestroyed   Action = "destroyed"
	ActionFailed      Action = "failed"
)

// TransitionFunc is notified after every service transition. It is called
// with the registry lock held and must not call back into the Registry.
type TransitionFunc func(service Service, action Action, err error)

// Registry owns the three runtime services and enforces their ordering. It is
// passed explicitly to whoever needs it instead of living in package globals.
type Registry struct {
	mu      sync.Mutex
	manager Manager
	store   StateStore
	factory Factory
	live    []Service
	notify  TransitionFunc
}

// New creates a registry over the given services.
func New(manager Manager, store StateStore, factory Factory) (*Registry, error) {
	if manager == nil || store == nil || factory == nil {
		return nil, ErrNilService
	}
	return &Registry{
		manager: manager,
		store:   store,
		factory: factory,
	}, nil
}

// OnTransition installs fn as the transition callback.
func (r *Registry) OnTransition(fn TransitionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = fn
}

// Initialize brings the services up in InitOrder against handle. On failure
// the services initialized so far are destroyed in reverse order and an
// *InitError is returned; the registry is left empty.
func (r *Registry) Initialize(handle *uiruntime.Handle, opts FactoryOptions) error {
	if handle == nil {
		return &InitError{Service: ServiceManager, Err: ErrNilHandle}
	}
	if !handle.Valid() {
		return &InitError{Service: ServiceManager, Err: ErrHandleNotValid}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.live) > 0 {
		return &InitError{Service: r.live[0], Err: ErrAlreadyInitialized}
	}

	steps := []struct {
		service Service
		run     func() error
	}{
		{ServiceManager, func() error { return r.manager.Initialize(handle) }},
		{ServiceStateStore, func() error { return r.store.Init(handle.Config().StateSeeds()) }},
		{ServiceFactory, func() error { return r.factory.Initialize(opts) }},
	}

	for _, step := range steps {
		if err := step.run(); err != nil {
			r.emit(step.service, ActionFailed, err)
			return &InitError{Service: step.service, Err: err, Rollback: r.teardownLocked()}
		}
		r.live = append(r.live, step.service)
		r.emit(step.service, ActionInitialized, nil)
	}
	return nil
}

// Teardown destroys every live service in reverse initialization order. All
// services are attempted even if one fails; every failure is returned in the
// order it happened. Calling Teardown on an empty registry does nothing.
func (r *Registry) Teardown() []*TeardownError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.teardownLocked()
}

func (r *Registry) teardownLocked() []*TeardownError {
	if len(r.live) == 0 {
		return nil
	}

	var failures []*TeardownError
	order := slices.Clone(r.live)
	slices.Reverse(order)
	for _, service := range order {
		if err := r.destroy(service); err != nil {
			failures = append(failures, &TeardownError{Service: service, Err: err})
			r.emit(service, ActionFailed, err)
			continue
		}
		r.emit(service, ActionDestroyed, nil)
	}
	r.live = nil
	return failures
}

// destroy calls the service's destroy method, converting a panic into an
// error so the remaining services still get torn down.
func (r *Registry) destroy(service Service) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	switch service {
	case ServiceFactory:
		return r.factory.Destroy()
	case ServiceStateStore:
		return r.store.Dispose()
	case ServiceManager:
		return r.manager.Destroy()
	}
	return nil
}

func (r *Registry) emit(service Service, action Action, err error) {
	if r.notify != nil {
		r.notify(service, action, err)
	}
}

// Live reports whether any service is currently initialized.
func (r *Registry) Live() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live) > 0
}

// LiveServices returns the initialized services in initialization order.
func (r *Registry) LiveServices() []Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.live)
}

// Factory returns the page factory once it has been initialized.
func (r *Registry) Factory() (Factory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.live, ServiceFactory) {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotInitialized, ServiceFactory)
	}
	return r.factory, nil
}

// StateStore returns the application-state store once it has been initialized.
func (r *Registry) StateStore() (StateStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.live, ServiceStateStore) {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotInitialized, ServiceStateStore)
	}
	return r.store, nil
}

// Manager returns the manager once it has been initialized.
func (r *Registry) Manager() (Manager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.live, ServiceManager) {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotInitialized, ServiceManager)
	}
	return r.manager, nil
}
