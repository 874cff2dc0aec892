package services

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/GoCodeAlone/duihost/registry"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.:\-]+)\s*\}\}`)

// Factory builds TextPages from the page definitions of the bound runtime.
type Factory struct {
	manager *Manager
	state   *AppState

	mu          sync.RWMutex
	opts        registry.FactoryOptions
	initialized bool
}

// NewFactory creates a factory that reads pages through manager and state
// values through state.
func NewFactory(manager *Manager, state *AppState) *Factory {
	return &Factory{manager: manager, state: state}
}

// Initialize records the resource providers.
func (f *Factory) Initialize(opts registry.FactoryOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initialized {
		return fmt.Errorf("factory: %w", ErrAlreadyInitialized)
	}
	f.opts = opts
	f.initialized = true
	return nil
}

// Destroy forgets the resource providers.
func (f *Factory) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = registry.FactoryOptions{}
	f.initialized = false
	return nil
}

// CreateInitialPage builds the page named by the config's initialPage.
func (f *Factory) CreateInitialPage() (registry.Page, error) {
	handle, err := f.handle()
	if err != nil {
		return nil, err
	}
	return f.build(handle, handle.Config().InitialPage, nil)
}

// CreatePage builds pageID with params.
func (f *Factory) CreatePage(pageID string, params map[string]any) (registry.Page, error) {
	handle, err := f.handle()
	if err != nil {
		return nil, err
	}
	return f.build(handle, pageID, params)
}

func (f *Factory) handle() (*uiruntime.Handle, error) {
	f.mu.RLock()
	initialized := f.initialized
	f.mu.RUnlock()
	if !initialized {
		return nil, fmt.Errorf("factory: %w", ErrNotInitialized)
	}
	return f.manager.Handle()
}

func (f *Factory) build(handle *uiruntime.Handle, pageID string, params map[string]any) (registry.Page, error) {
	f.mu.RLock()
	opts := f.opts
	f.mu.RUnlock()

	def, ok := f.lookup(handle, opts, pageID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPageNotFound, pageID)
	}

	expand := func(s string) string {
		return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
			key := placeholderPattern.FindStringSubmatch(m)[1]
			if v, ok := f.resolve(handle, opts, key, params); ok {
				return v
			}
			return m
		})
	}

	body := make([]string, len(def.Body))
	for i, line := range def.Body {
		body[i] = expand(line)
	}

	page := &TextPage{
		ID:     pageID,
		Title:  expand(def.Title),
		Body:   body,
		Params: params,
		links:  def.Links,
	}
	if def.Font != nil && opts.FontFactory != nil {
		page.Font = opts.FontFactory.Font(def.Font.Family, def.Font.Weight)
	}
	return page, nil
}

func (f *Factory) lookup(handle *uiruntime.Handle, opts registry.FactoryOptions, pageID string) (uiruntime.PageDef, bool) {
	if opts.PageConfigProvider != nil {
		if def, ok := opts.PageConfigProvider.PageConfig(pageID); ok {
			return def, true
		}
	}
	def, ok := handle.Config().Pages[pageID]
	return def, ok
}

// resolve looks up a placeholder key. Supported forms: a bare param name,
// state.<key>, flavor:<key>, icon:<name> and image:<name>.
func (f *Factory) resolve(handle *uiruntime.Handle, opts registry.FactoryOptions, key string, params map[string]any) (string, bool) {
	switch {
	case strings.HasPrefix(key, "flavor:"):
		return handle.Options().Flavor.Override(strings.TrimPrefix(key, "flavor:"))
	case strings.HasPrefix(key, "state."):
		if f.state == nil {
			return "", false
		}
		v, err := f.state.Get(strings.TrimPrefix(key, "state."))
		if err != nil {
			return "", false
		}
		return fmt.Sprint(v), true
	case strings.HasPrefix(key, "icon:"):
		if opts.Icons == nil {
			return "", false
		}
		return opts.Icons.Icon(strings.TrimPrefix(key, "icon:"))
	case strings.HasPrefix(key, "image:"):
		if opts.Images == nil {
			return "", false
		}
		return opts.Images.Image(strings.TrimPrefix(key, "image:"))
	}
	v, ok := params[key]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}
