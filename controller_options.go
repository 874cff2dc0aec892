package duihost

import (
	"fmt"

	"github.com/GoCodeAlone/duihost/registry"
)

// ControllerOption represents a configuration option for the controller
type ControllerOption func(*Controller) error

// WithLogger sets the logger used for lifecycle progress and failures.
func WithLogger(logger Logger) ControllerOption {
	return func(c *Controller) error {
		if logger == nil {
			return fmt.Errorf("with logger: %w", ErrConfigNil)
		}
		c.logger = logger
		return nil
	}
}

// WithSubject replaces the default event subject.
func WithSubject(subject Subject) ControllerOption {
	return func(c *Controller) error {
		if subject == nil {
			return fmt.Errorf("with subject: %w", ErrConfigNil)
		}
		c.subject = subject
		return nil
	}
}

// WithObservers registers observers on the controller's subject. It must be
// applied after WithSubject if both are used.
func WithObservers(observers ...Observer) ControllerOption {
	return func(c *Controller) error {
		for _, o := range observers {
			if err := c.subject.RegisterObserver(o); err != nil {
				return fmt.Errorf("register observer %s: %w", o.ObserverID(), err)
			}
		}
		return nil
	}
}

// WithFactoryOptions sets the resource providers handed to the page factory.
// Unset providers default to none.
func WithFactoryOptions(opts registry.FactoryOptions) ControllerOption {
	return func(c *Controller) error {
		c.factoryOpts = opts
		return nil
	}
}

// WithCountdown sets the splash countdown length in ticks.
func WithCountdown(ticks int) ControllerOption {
	return func(c *Controller) error {
		c.countdown = NewCountdown(ticks)
		return nil
	}
}
