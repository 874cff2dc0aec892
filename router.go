package duihost

import (
	"fmt"

	"github.com/GoCodeAlone/duihost/registry"
)

// InitialPageID is the reserved page identifier for the application's home
// page.
const InitialPageID = "initial"

// PageRequest asks for one page. Params are opaque to the host and are handed
// to the runtime unchanged.
type PageRequest struct {
	PageID string         `json:"pageId"`
	Params map[string]any `json:"params,omitempty"`
}

// InitialPage returns the request for the home page.
func InitialPage() PageRequest {
	return PageRequest{PageID: InitialPageID}
}

// IsInitial reports whether the request names the home page.
func (r PageRequest) IsInitial() bool {
	return r.PageID == InitialPageID
}

// ReadinessSource is what the router needs from the lifecycle: the current
// state and the registry holding the page factory.
type ReadinessSource interface {
	State() State
	Registry() *registry.Registry
}

// Router turns page requests into renderable pages. It holds no state of its
// own and may be called repeatedly with the same request.
type Router struct {
	source ReadinessSource
}

// NewRouter creates a router gated on source's readiness.
func NewRouter(source ReadinessSource) *Router {
	return &Router{source: source}
}

// Resolve builds the page for req. It returns ErrNotReady, without touching
// the factory, unless the lifecycle is Ready.
func (r *Router) Resolve(req PageRequest) (registry.Page, error) {
	if st := r.source.State(); !st.Ready() {
		return nil, fmt.Errorf("%w: lifecycle is %s", ErrNotReady, st.Phase)
	}

	factory, err := r.source.Registry().Factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotReady, err)
	}

	if req.IsInitial() {
		return factory.CreateInitialPage()
	}
	return factory.CreatePage(req.PageID, req.Params)
}
