// Package duihost brings an externally supplied UI runtime up, exposes its
// readiness to the presentation layer, routes page requests into it and tears
// it down again, including across development-time hot reloads.
//
// Observers registered with the controller receive CloudEvents for every
// lifecycle transition.
package duihost

import (
	"context"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// Observer defines the interface for objects that want to be notified of
// lifecycle events.
type Observer interface {
	// OnEvent is called for every event the observer subscribed to.
	// Observers should return quickly; delivery happens off the lifecycle lock.
	OnEvent(ctx context.Context, event cloudevents.Event) error

	// ObserverID returns a unique identifier for this observer.
	ObserverID() string
}

// Subject defines the interface for objects that can be observed.
type Subject interface {
	// RegisterObserver adds an observer. If eventTypes is empty, the
	// observer receives all events.
	RegisterObserver(observer Observer, eventTypes ...string) error

	// UnregisterObserver removes an observer. Unknown observers are ignored.
	UnregisterObserver(observer Observer) error

	// NotifyObservers sends an event to all interested observers.
	NotifyObservers(ctx context.Context, event cloudevents.Event) error

	// GetObservers returns information about currently registered observers.
	GetObservers() []ObserverInfo
}

// ObserverInfo provides information about a registered observer.
type ObserverInfo struct {
	ID           string    `json:"id"`
	EventTypes   []string  `json:"eventTypes"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// EventType constants for lifecycle events, in reverse domain notation.
const (
	EventTypeLifecycleLoading  = "com.duihost.lifecycle.loading"
	EventTypeLifecycleReady    = "com.duihost.lifecycle.ready"
	EventTypeLifecycleFailed   = "com.duihost.lifecycle.failed"
	EventTypeLifecycleTeardown = "com.duihost.lifecycle.teardown"
	EventTypeLifecycleReloaded = "com.duihost.lifecycle.reloaded"
	EventTypeLifecycleStale    = "com.duihost.lifecycle.stale"

	EventTypeServiceInitialized = "com.duihost.service.initialized"
	EventTypeServiceDestroyed   = "com.duihost.service.destroyed"
	EventTypeServiceFailed      = "com.duihost.service.failed"
)

// EventSource is the CloudEvents source of every lifecycle event.
const EventSource = "duihost/lifecycle"

// FunctionalObserver provides a simple way to create observers using functions.
type FunctionalObserver struct {
	id      string
	handler func(ctx context.Context, event cloudevents.Event) error
}

// NewFunctionalObserver creates a new observer that uses the provided function
// to handle events.
func NewFunctionalObserver(id string, handler func(ctx context.Context, event cloudevents.Event) error) Observer {
	return &FunctionalObserver{
		id:      id,
		handler: handler,
	}
}

// OnEvent implements the Observer interface by calling the handler function.
func (f *FunctionalObserver) OnEvent(ctx context.Context, event cloudevents.Event) error {
	return f.handler(ctx, event)
}

// ObserverID implements the Observer interface by returning the observer ID.
func (f *FunctionalObserver) ObserverID() string {
	return f.id
}

// LoggingObserver writes every event it receives to a Logger.
type LoggingObserver struct {
	logger Logger
}

// NewLoggingObserver creates an observer logging through logger.
func NewLoggingObserver(logger Logger) *LoggingObserver {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LoggingObserver{logger: logger}
}

// ObserverID implements Observer.
func (o *LoggingObserver) ObserverID() string { return "duihost.logging" }

// OnEvent implements Observer.
func (o *LoggingObserver) OnEvent(_ context.Context, event cloudevents.Event) error {
	args := []any{"type", event.Type(), "id", event.ID()}
	for name, value := range event.Extensions() {
		args = append(args, name, value)
	}
	if event.Type() == EventTypeLifecycleFailed || event.Type() == EventTypeServiceFailed {
		o.logger.Error("Lifecycle event", args...)
		return nil
	}
	o.logger.Debug("Lifecycle event", args...)
	return nil
}
