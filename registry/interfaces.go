// Package registry defines the three runtime services the host must bring up
// against a single runtime handle, and the Registry that owns their ordered
// initialization and teardown.
package registry

import "github.com/GoCodeAlone/duihost/uiruntime"

// Page is a renderable page produced by the factory. Its contents are owned by
// the runtime; the host only displays it.
type Page interface {
	// PageID returns the identifier the page was built from.
	PageID() string

	// Render returns the page content laid out for the given width.
	Render(width int) string
}

// Navigable is implemented by pages that link to other pages.
type Navigable interface {
	Links() []uiruntime.Link
}

// Styled is implemented by pages that carry a resolved font.
type Styled interface {
	FontName() string
}

// Manager coordinates runtime instance lookup.
type Manager interface {
	Initialize(handle *uiruntime.Handle) error
	Destroy() error
}

// StateStore seeds and owns the shared application state.
type StateStore interface {
	Init(seeds []uiruntime.StateSeed) error
	Dispose() error
}

// Factory builds renderable pages and resolves resources for them.
type Factory interface {
	Initialize(opts FactoryOptions) error
	Destroy() error

	// CreateInitialPage builds the application's home page.
	CreateInitialPage() (Page, error)

	// CreatePage builds the page identified by pageID. Params are passed
	// through unchanged; their schema belongs to the runtime.
	CreatePage(pageID string, params map[string]any) (Page, error)
}

// PageConfigProvider supplies page definitions in place of the ones carried
// by the runtime's declarative config.
type PageConfigProvider interface {
	PageConfig(pageID string) (uiruntime.PageDef, bool)
}

// IconResolver maps icon names to displayable glyphs.
type IconResolver interface {
	Icon(name string) (string, bool)
}

// ImageResolver maps image names to locations.
type ImageResolver interface {
	Image(name string) (string, bool)
}

// FontFactory resolves a font family and weight to a concrete font. The
// factory consults it for pages that declare a font.
type FontFactory interface {
	Font(family string, weight int) string
}

// FactoryOptions are the optional resource providers handed to the factory.
// A nil field means "none".
type FactoryOptions struct {
	PageConfigProvider PageConfigProvider
	Icons              IconResolver
	Images             ImageResolver
	FontFactory        FontFactory
}
