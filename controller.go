package duihost

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/GoCodeAlone/duihost/registry"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

// attempt is one run of the initialization sequence. done is closed once the
// attempt settles or is superseded.
type attempt struct {
	gen  uint64
	done chan struct{}
	once sync.Once
}

func newAttempt(gen uint64) *attempt {
	return &attempt{gen: gen, done: make(chan struct{})}
}

func (a *attempt) finish() {
	a.once.Do(func() { close(a.done) })
}

type listener struct {
	id uint64
	fn func(State)
}

// Controller owns the lifecycle state machine and is the only writer of the
// runtime registry. All mutations are serialized by mu; handle construction
// is the single step that runs outside it.
type Controller struct {
	loader      uiruntime.Loader
	registry    *registry.Registry
	factoryOpts registry.FactoryOptions
	logger      Logger
	subject     Subject
	countdown   *Countdown

	mu           sync.Mutex
	opts         uiruntime.Options
	started      bool
	epochUsed    bool
	state        State
	epoch        uint64
	gen          uint64
	current      *attempt
	handle       *uiruntime.Handle
	listeners    []listener
	nextListener uint64
	outbox       []State
}

// NewController creates a controller that builds handles with loader and
// initializes reg against them.
func NewController(loader uiruntime.Loader, reg *registry.Registry, opts ...ControllerOption) (*Controller, error) {
	if loader == nil {
		return nil, ErrNilLoader
	}
	if reg == nil {
		return nil, ErrNilRegistry
	}

	c := &Controller{
		loader:    loader,
		registry:  reg,
		logger:    noopLogger{},
		countdown: NewCountdown(DefaultCountdown),
		state:     idleState(0),
	}
	c.subject = NewEventSubject(nil)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("controller option: %w", err)
		}
	}

	reg.OnTransition(c.onServiceTransition)
	return c, nil
}

// Start begins the initialization sequence with opts. It returns immediately;
// the outcome is published as the Ready or Error state. Calling Start while
// an attempt is in flight, or after it settled, does nothing. A Start after
// Teardown opens a new epoch: the state never re-enters Loading within an
// epoch that already had an attempt.
func (c *Controller) Start(ctx context.Context, opts uiruntime.Options) {
	c.mu.Lock()
	c.startLocked(ctx, opts)
	c.unlockAndFlush()
}

func (c *Controller) startLocked(ctx context.Context, opts uiruntime.Options) {
	switch {
	case c.state.Loading():
		c.logger.Debug("Start ignored, initialization already in flight", "epoch", c.epoch)
		return
	case c.state.Settled():
		c.logger.Debug("Start ignored, lifecycle already settled", "epoch", c.epoch, "phase", c.state.Phase)
		return
	}

	// Previous services must be gone before a new handle is built.
	if err := c.releaseLocked(); err != nil {
		c.logger.Warn("Releasing previous services failed before start", "error", err)
	}

	if c.epochUsed {
		c.advanceEpochLocked()
	}
	c.epochUsed = true

	c.opts = opts
	c.started = true
	c.gen++
	a := newAttempt(c.gen)
	c.current = a
	epoch := c.epoch

	c.setStateLocked(loadingState(epoch))
	c.logger.Info("Initializing runtime", "epoch", epoch, "environment", opts.Flavor.Environment, "accessKey", opts.MaskedAccessKey())
	c.emit(EventTypeLifecycleLoading, epoch, nil)

	go c.run(ctx, a, epoch, opts)
}

// run performs the sequence for one attempt. Only the handle construction
// happens outside the lock; everything after it is applied only if the
// attempt is still current.
func (c *Controller) run(ctx context.Context, a *attempt, epoch uint64, opts uiruntime.Options) {
	handle, err := c.load(ctx, opts)

	c.mu.Lock()
	if c.current != a {
		c.mu.Unlock()
		if handle != nil {
			handle.Invalidate()
		}
		c.logger.Warn("Discarding stale initialization result", "epoch", epoch, "attempt", a.gen, "error", ErrStaleAttempt)
		c.emit(EventTypeLifecycleStale, epoch, map[string]any{
			"attempt": a.gen,
			"error":   ErrStaleAttempt.Error(),
		})
		return
	}
	// Listeners see the settled state before waiters wake.
	defer a.finish()
	defer c.unlockAndFlush()

	if err != nil {
		c.failLocked(&InitializationError{Epoch: epoch, Step: StepHandle, Err: err})
		return
	}

	if err := c.registry.Initialize(handle, c.factoryOpts); err != nil {
		handle.Invalidate()
		step := StepManager
		var initErr *registry.InitError
		if errors.As(err, &initErr) {
			step = stepFor(initErr.Service)
			for _, rb := range initErr.Rollback {
				c.logger.Error("Rollback failed", "service", rb.Service, "error", rb.Err)
			}
		}
		c.failLocked(&InitializationError{Epoch: epoch, Step: step, Err: err})
		return
	}

	c.handle = handle
	c.setStateLocked(readyState(epoch, handle))
	c.logger.Info("Runtime ready", "epoch", epoch, "handle", handle.ID())
	c.emit(EventTypeLifecycleReady, epoch, map[string]any{"handle": handle.ID()})
}

// load calls the loader, converting a panic into an error.
func (c *Controller) load(ctx context.Context, opts uiruntime.Options) (handle *uiruntime.Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			handle, err = nil, fmt.Errorf("runtime loader panicked: %v", r)
		}
	}()

	handle, err = c.loader.Load(ctx, opts)
	if err == nil && handle == nil {
		err = registry.ErrNilHandle
	}
	return handle, err
}

func (c *Controller) failLocked(cause *InitializationError) {
	c.setStateLocked(errorState(cause.Epoch, cause))
	c.logger.Error("Runtime initialization failed", "epoch", cause.Epoch, "step", cause.Step, "error", cause.Err)
	c.emit(EventTypeLifecycleFailed, cause.Epoch, map[string]any{"step": cause.Step, "error": cause.Err.Error()})
}

// Teardown destroys the factory, state store and manager in that order, then
// invalidates the handle and returns to Idle. Every service is attempted; the
// first failure is returned and later ones are logged. An in-flight attempt is
// superseded and its result dropped. Calling Teardown again does nothing.
func (c *Controller) Teardown() error {
	c.mu.Lock()
	err := c.teardownLocked()
	c.unlockAndFlush()
	return err
}

func (c *Controller) teardownLocked() error {
	active := !c.state.Idle() || c.registry.Live()

	if c.current != nil {
		c.current.finish()
		c.current = nil
	}
	err := c.releaseLocked()
	if !c.state.Idle() {
		c.setStateLocked(idleState(c.epoch))
	}

	if active {
		data := map[string]any{}
		if err != nil {
			data["error"] = err.Error()
		}
		c.logger.Info("Runtime torn down", "epoch", c.epoch)
		c.emit(EventTypeLifecycleTeardown, c.epoch, data)
	}
	return err
}

// releaseLocked tears the registry down and invalidates the handle.
func (c *Controller) releaseLocked() error {
	failures := c.registry.Teardown()
	if c.handle != nil {
		c.handle.Invalidate()
		c.handle = nil
	}
	if len(failures) == 0 {
		return nil
	}
	for _, f := range failures[1:] {
		c.logger.Error("Suppressed teardown failure", "service", f.Service, "error", f.Err)
	}
	c.logger.Error("Teardown failed", "service", failures[0].Service, "error", failures[0].Err)
	return failures[0]
}

// OnReload starts a new epoch: it tears everything down, resets the splash
// countdown and epoch-scoped subscriptions, and starts again with the options
// of the last Start. A teardown failure is returned but does not stop the
// restart. In production builds OnReload returns ErrHotReloadDisabled.
func (c *Controller) OnReload(ctx context.Context) error {
	if !hotReloadEnabled {
		return ErrHotReloadDisabled
	}

	c.mu.Lock()
	defer c.unlockAndFlush()

	if !c.started {
		return ErrNotStarted
	}

	c.advanceEpochLocked()
	err := c.teardownLocked()
	c.logger.Info("Hot reload", "epoch", c.epoch)
	c.emit(EventTypeLifecycleReloaded, c.epoch, nil)

	c.startLocked(ctx, c.opts)
	return err
}

// advanceEpochLocked opens a new epoch and resets everything scoped to the
// previous one: the splash countdown and the listeners.
func (c *Controller) advanceEpochLocked() {
	c.epoch++
	c.epochUsed = false
	c.countdown.Reset()
	c.listeners = nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Epoch returns the current epoch.
func (c *Controller) Epoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// Handle returns the live handle when Ready.
func (c *Controller) Handle() (*uiruntime.Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Ready() {
		return nil, false
	}
	return c.handle, true
}

// Registry returns the registry the controller initializes.
func (c *Controller) Registry() *registry.Registry {
	return c.registry
}

// Countdown returns the splash countdown of the current epoch.
func (c *Controller) Countdown() *Countdown {
	return c.countdown
}

// Subject returns the subject lifecycle events are published on.
func (c *Controller) Subject() Subject {
	return c.subject
}

// CanShowRouted reports whether the routed view may be shown: the runtime is
// Ready and the splash countdown has been revealed.
func (c *Controller) CanShowRouted() bool {
	return c.State().Ready() && c.countdown.Revealed()
}

// AwaitSettled blocks until the current attempt reaches Ready or Error, or
// ctx is done. A reload while waiting keeps the wait going on the new attempt.
// It returns ErrNotStarted when nothing is loading.
func (c *Controller) AwaitSettled(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		st := c.state
		a := c.current
		c.mu.Unlock()

		if st.Settled() {
			return st, nil
		}
		if a == nil {
			return st, ErrNotStarted
		}

		select {
		case <-a.done:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Subscribe registers fn to be called after every state change of the current
// epoch. The subscription ends at the next reload or when cancel is called.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextListener++
	id := c.nextListener
	c.listeners = append(c.listeners, listener{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

func (c *Controller) setStateLocked(s State) {
	c.state = s
	c.outbox = append(c.outbox, s)
}

// unlockAndFlush releases mu and then delivers queued state changes to the
// listeners that were subscribed at the time, so listeners may call back into
// the controller.
func (c *Controller) unlockAndFlush() {
	pending := c.outbox
	c.outbox = nil
	targets := make([]listener, len(c.listeners))
	copy(targets, c.listeners)
	c.mu.Unlock()

	for _, s := range pending {
		for _, l := range targets {
			l.fn(s)
		}
	}
}

func (c *Controller) emit(eventType string, epoch uint64, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["epoch"] = epoch
	event := NewCloudEvent(eventType, EventSource, data, map[string]interface{}{
		"epoch": strconv.FormatUint(epoch, 10),
	})
	if err := c.subject.NotifyObservers(context.Background(), event); err != nil {
		c.logger.Error("Failed to notify observers", "event", eventType, "error", err)
	}
}

// onServiceTransition is installed on the registry; it runs with the registry
// lock held and only logs and emits.
func (c *Controller) onServiceTransition(service registry.Service, action registry.Action, err error) {
	data := map[string]any{"service": string(service)}
	var eventType string
	switch action {
	case registry.ActionInitialized:
		eventType = EventTypeServiceInitialized
		c.logger.Debug("Service initialized", "service", service)
	case registry.ActionDestroyed:
		eventType = EventTypeServiceDestroyed
		c.logger.Debug("Service destroyed", "service", service)
	default:
		eventType = EventTypeServiceFailed
		if err != nil {
			data["error"] = err.Error()
		}
	}
	event := NewCloudEvent(eventType, EventSource, data, map[string]interface{}{"service": string(service)})
	if nerr := c.subject.NotifyObservers(context.Background(), event); nerr != nil {
		c.logger.Error("Failed to notify observers", "event", eventType, "error", nerr)
	}
}
