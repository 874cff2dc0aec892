package services

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/golobby/cast"

	"github.com/GoCodeAlone/duihost/uiruntime"
)

// AppState is the shared application-state store.
type AppState struct {
	mu          sync.RWMutex
	values      map[string]any
	persistent  map[string]bool
	initialized bool
}

// NewAppState creates an empty store.
func NewAppState() *AppState {
	return &AppState{}
}

// Init seeds the store. A nil seed list is treated as empty.
func (s *AppState) Init(seeds []uiruntime.StateSeed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return fmt.Errorf("app state: %w", ErrAlreadyInitialized)
	}

	values := make(map[string]any, len(seeds))
	persistent := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		v, err := coerceSeed(seed)
		if err != nil {
			return fmt.Errorf("app state: seed %q: %w", seed.Key, err)
		}
		values[seed.Key] = v
		persistent[seed.Key] = seed.Persist
	}

	s.values = values
	s.persistent = persistent
	s.initialized = true
	return nil
}

// Dispose drops all state.
func (s *AppState) Dispose() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = nil
	s.persistent = nil
	s.initialized = false
	return nil
}

// Get returns the value stored under key.
func (s *AppState) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.initialized {
		return nil, fmt.Errorf("app state: %w", ErrNotInitialized)
	}
	v, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateKeyNotFound, key)
	}
	return v, nil
}

// Set stores value under key, creating the key if needed.
func (s *AppState) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return fmt.Errorf("app state: %w", ErrNotInitialized)
	}
	s.values[key] = value
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *AppState) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Persistent reports whether key was declared persistent.
func (s *AppState) Persistent(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistent[key]
}

var (
	float64Type = reflect.TypeOf(float64(0))
	boolType    = reflect.TypeOf(false)
)

// coerceSeed converts a seed value to its declared type. Seeds without a
// type are stored as decoded.
func coerceSeed(seed uiruntime.StateSeed) (any, error) {
	switch seed.Type {
	case "":
		return seed.Value, nil
	case "string":
		if seed.Value == nil {
			return "", nil
		}
		return fmt.Sprint(seed.Value), nil
	case "number":
		return castScalar(seed.Value, float64Type, float64(0))
	case "bool", "boolean":
		return castScalar(seed.Value, boolType, false)
	case "json":
		if s, ok := seed.Value.(string); ok {
			var out any
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrSeedType, err)
			}
			return out, nil
		}
		return seed.Value, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrSeedType, seed.Type)
}

func castScalar(value any, t reflect.Type, zero any) (any, error) {
	if value == nil {
		return zero, nil
	}
	rv := reflect.ValueOf(value)
	if rv.Type().ConvertibleTo(t) && rv.Kind() != reflect.String && rv.Kind() != reflect.Bool && t.Kind() != reflect.Bool {
		return rv.Convert(t).Interface(), nil
	}
	if rv.Type() == t {
		return value, nil
	}
	v, err := cast.FromType(fmt.Sprint(value), t)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSeedType, err)
	}
	return v, nil
}
