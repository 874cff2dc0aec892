// Package services holds in-process implementations of the runtime services
// the registry manages. They read everything they need from the runtime
// handle's declarative config.
package services

import (
	"fmt"
	"sync"

	"github.com/GoCodeAlone/duihost/uiruntime"
)

// Manager tracks the runtime instance the host is bound to.
type Manager struct {
	mu     sync.RWMutex
	handle *uiruntime.Handle
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Initialize binds the manager to handle.
func (m *Manager) Initialize(handle *uiruntime.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handle != nil {
		return fmt.Errorf("manager: %w", ErrAlreadyInitialized)
	}
	if !handle.Valid() {
		return fmt.Errorf("manager: %w", uiruntime.ErrHandleInvalidated)
	}
	m.handle = handle
	return nil
}

// Destroy releases the bound handle.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handle = nil
	return nil
}

// Handle returns the bound runtime handle.
func (m *Manager) Handle() (*uiruntime.Handle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.handle == nil {
		return nil, fmt.Errorf("manager: %w", ErrNotInitialized)
	}
	if !m.handle.Valid() {
		return nil, fmt.Errorf("manager: %w", uiruntime.ErrHandleInvalidated)
	}
	return m.handle, nil
}
