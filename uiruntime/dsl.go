package uiruntime

import (
	"fmt"
	"sort"
)

// StateSeed declares one entry of the shared application state.
type StateSeed struct {
	Key     string `json:"key" yaml:"key" toml:"key"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`
	Value   any    `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Persist bool   `json:"persist,omitempty" yaml:"persist,omitempty" toml:"persist,omitempty"`
}

// Link points from one page to another.
type Link struct {
	Label  string         `json:"label" yaml:"label" toml:"label"`
	PageID string         `json:"pageId" yaml:"pageId" toml:"pageId"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty"`
}

// FontSpec asks for a font by family and numeric weight (100 to 900).
type FontSpec struct {
	Family string `json:"family" yaml:"family" toml:"family"`
	Weight int    `json:"weight,omitempty" yaml:"weight,omitempty" toml:"weight,omitempty"`
}

// PageDef is the declarative definition of a single page.
type PageDef struct {
	Title string    `json:"title" yaml:"title" toml:"title"`
	Body  []string  `json:"body,omitempty" yaml:"body,omitempty" toml:"body,omitempty"`
	Links []Link    `json:"links,omitempty" yaml:"links,omitempty" toml:"links,omitempty"`
	Font  *FontSpec `json:"font,omitempty" yaml:"font,omitempty" toml:"font,omitempty"`
}

// DSLConfig is the resolved declarative configuration of a runtime instance.
type DSLConfig struct {
	Version     string             `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	InitialPage string             `json:"initialPage" yaml:"initialPage" toml:"initialPage"`
	AppState    []StateSeed        `json:"appState,omitempty" yaml:"appState,omitempty" toml:"appState,omitempty"`
	Pages       map[string]PageDef `json:"pages,omitempty" yaml:"pages,omitempty" toml:"pages,omitempty"`
}

// Validate performs the structural checks the host relies on. Page content is
// owned by the runtime and is not inspected.
func (c *DSLConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrMalformedConfig)
	}
	if c.InitialPage == "" {
		return fmt.Errorf("%w: %w", ErrMalformedConfig, ErrMissingInitialPage)
	}
	if _, ok := c.Pages[c.InitialPage]; !ok {
		return fmt.Errorf("%w: %w: %q", ErrMalformedConfig, ErrUndefinedInitialRef, c.InitialPage)
	}
	seen := make(map[string]struct{}, len(c.AppState))
	for i, seed := range c.AppState {
		if seed.Key == "" {
			return fmt.Errorf("%w: appState[%d] has no key", ErrMalformedConfig, i)
		}
		if _, dup := seen[seed.Key]; dup {
			return fmt.Errorf("%w: duplicate appState key %q", ErrMalformedConfig, seed.Key)
		}
		seen[seed.Key] = struct{}{}
	}
	return nil
}

// StateSeeds returns the seed list, never nil.
func (c *DSLConfig) StateSeeds() []StateSeed {
	if c == nil || c.AppState == nil {
		return []StateSeed{}
	}
	return c.AppState
}

// PageIDs returns the defined page identifiers in sorted order.
func (c *DSLConfig) PageIDs() []string {
	ids := make([]string, 0, len(c.Pages))
	for id := range c.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
