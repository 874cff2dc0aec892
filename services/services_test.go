package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/duihost/registry"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

var (
	_ registry.Manager       = (*Manager)(nil)
	_ registry.StateStore    = (*AppState)(nil)
	_ registry.Factory       = (*Factory)(nil)
	_ registry.Navigable     = (*TextPage)(nil)
	_ registry.IconResolver  = IconMap(nil)
	_ registry.ImageResolver = ImageDir("")
	_ registry.FontFactory   = FontMap(nil)
	_ registry.Styled        = (*TextPage)(nil)
)

func testConfig() *uiruntime.DSLConfig {
	return &uiruntime.DSLConfig{
		InitialPage: "home",
		AppState: []uiruntime.StateSeed{
			{Key: "user", Type: "string", Value: "ada"},
			{Key: "visits", Type: "number", Value: 3, Persist: true},
		},
		Pages: map[string]uiruntime.PageDef{
			"home": {
				Title: "{{icon:home}} Home",
				Body:  []string{"Hello {{ state.user }}", "Visits: {{state.visits}}"},
				Links: []uiruntime.Link{{Label: "Detail", PageID: "detail", Params: map[string]any{"id": 7}}},
			},
			"detail": {
				Title: "Item {{id}}",
				Body:  []string{"{{image:logo.png}}", "{{missing}}"},
			},
		},
	}
}

type boundServices struct {
	manager *Manager
	state   *AppState
	factory *Factory
}

func bind(t *testing.T, opts registry.FactoryOptions) boundServices {
	t.Helper()
	cfg := testConfig()
	h := uiruntime.NewHandle(uiruntime.Options{}, cfg)

	s := boundServices{manager: NewManager(), state: NewAppState()}
	s.factory = NewFactory(s.manager, s.state)
	require.NoError(t, s.manager.Initialize(h))
	require.NoError(t, s.state.Init(cfg.StateSeeds()))
	require.NoError(t, s.factory.Initialize(opts))
	return s
}

func TestManager(t *testing.T) {
	m := NewManager()
	_, err := m.Handle()
	assert.ErrorIs(t, err, ErrNotInitialized)

	h := uiruntime.NewHandle(uiruntime.Options{}, nil)
	require.NoError(t, m.Initialize(h))
	got, err := m.Handle()
	require.NoError(t, err)
	assert.Same(t, h, got)

	assert.ErrorIs(t, m.Initialize(h), ErrAlreadyInitialized)

	h.Invalidate()
	_, err = m.Handle()
	assert.ErrorIs(t, err, uiruntime.ErrHandleInvalidated)

	require.NoError(t, m.Destroy())
	assert.ErrorIs(t, m.Initialize(h), uiruntime.ErrHandleInvalidated)
}

func TestAppState_Lifecycle(t *testing.T) {
	s := NewAppState()
	_, err := s.Get("x")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, s.Set("x", 1), ErrNotInitialized)

	require.NoError(t, s.Init(nil))
	assert.Empty(t, s.Keys())
	assert.ErrorIs(t, s.Init(nil), ErrAlreadyInitialized)

	require.NoError(t, s.Set("b", 2))
	require.NoError(t, s.Set("a", 1))
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	v, err := s.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = s.Get("zzz")
	assert.ErrorIs(t, err, ErrStateKeyNotFound)

	require.NoError(t, s.Dispose())
	assert.Empty(t, s.Keys())
	require.NoError(t, s.Init(nil), "a disposed store can be seeded again")
}

func TestAppState_SeedCoercion(t *testing.T) {
	tests := []struct {
		name string
		seed uiruntime.StateSeed
		want any
	}{
		{"untyped", uiruntime.StateSeed{Value: []any{"x"}}, []any{"x"}},
		{"string from number", uiruntime.StateSeed{Type: "string", Value: 12}, "12"},
		{"nil string", uiruntime.StateSeed{Type: "string"}, ""},
		{"number from int", uiruntime.StateSeed{Type: "number", Value: 3}, float64(3)},
		{"number from text", uiruntime.StateSeed{Type: "number", Value: "2.5"}, 2.5},
		{"nil number", uiruntime.StateSeed{Type: "number"}, float64(0)},
		{"bool", uiruntime.StateSeed{Type: "bool", Value: true}, true},
		{"boolean from text", uiruntime.StateSeed{Type: "boolean", Value: "true"}, true},
		{"json text", uiruntime.StateSeed{Type: "json", Value: `{"a":1}`}, map[string]any{"a": float64(1)}},
		{"json value", uiruntime.StateSeed{Type: "json", Value: map[string]any{"b": true}}, map[string]any{"b": true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.seed.Key = "k"
			s := NewAppState()
			require.NoError(t, s.Init([]uiruntime.StateSeed{tt.seed}))
			got, err := s.Get("k")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAppState_SeedErrors(t *testing.T) {
	bad := []uiruntime.StateSeed{
		{Key: "n", Type: "number", Value: "many"},
		{Key: "b", Type: "bool", Value: "perhaps"},
		{Key: "j", Type: "json", Value: "{"},
		{Key: "u", Type: "date", Value: "today"},
	}
	for _, seed := range bad {
		t.Run(seed.Key, func(t *testing.T) {
			s := NewAppState()
			err := s.Init([]uiruntime.StateSeed{seed})
			assert.ErrorIs(t, err, ErrSeedType)
			assert.Contains(t, err.Error(), seed.Key)
			assert.ErrorIs(t, s.Set("x", 1), ErrNotInitialized, "a failed seed leaves the store uninitialized")
		})
	}
}

func TestAppState_Persistent(t *testing.T) {
	s := NewAppState()
	require.NoError(t, s.Init(testConfig().StateSeeds()))
	assert.True(t, s.Persistent("visits"))
	assert.False(t, s.Persistent("user"))
	assert.False(t, s.Persistent("absent"))
}

func TestFactory_InitialPage(t *testing.T) {
	s := bind(t, registry.FactoryOptions{Icons: DefaultIcons()})

	page, err := s.factory.CreateInitialPage()
	require.NoError(t, err)
	assert.Equal(t, "home", page.PageID())

	text := page.(*TextPage)
	assert.Equal(t, "⌂ Home", text.Title)
	assert.Equal(t, []string{"Hello ada", "Visits: 3"}, text.Body)
	require.Len(t, text.Links(), 1)
	assert.Equal(t, "detail", text.Links()[0].PageID)
}

func TestFactory_CreatePage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logo.png"), []byte("png"), 0o600))
	s := bind(t, registry.FactoryOptions{Images: ImageDir(dir)})

	page, err := s.factory.CreatePage("detail", map[string]any{"id": 7})
	require.NoError(t, err)
	text := page.(*TextPage)
	assert.Equal(t, "Item 7", text.Title)
	assert.Equal(t, []string{filepath.Join(dir, "logo.png"), "{{missing}}"}, text.Body)
	assert.Equal(t, map[string]any{"id": 7}, text.Params)

	_, err = s.factory.CreatePage("nowhere", nil)
	assert.ErrorIs(t, err, ErrPageNotFound)
}

func TestFactory_UnresolvedProvidersLeavePlaceholders(t *testing.T) {
	s := bind(t, registry.FactoryOptions{})

	page, err := s.factory.CreateInitialPage()
	require.NoError(t, err)
	assert.Equal(t, "{{icon:home}} Home", page.(*TextPage).Title)

	page, err = s.factory.CreatePage("detail", nil)
	require.NoError(t, err)
	assert.Equal(t, "Item {{id}}", page.(*TextPage).Title)
	assert.Equal(t, "{{image:logo.png}}", page.(*TextPage).Body[0])
}

type staticPages map[string]uiruntime.PageDef

func (p staticPages) PageConfig(id string) (uiruntime.PageDef, bool) {
	def, ok := p[id]
	return def, ok
}

func TestFactory_PageConfigProviderOverrides(t *testing.T) {
	s := bind(t, registry.FactoryOptions{PageConfigProvider: staticPages{
		"home":  {Title: "Replaced"},
		"extra": {Title: "Only here"},
	}})

	page, err := s.factory.CreateInitialPage()
	require.NoError(t, err)
	assert.Equal(t, "Replaced", page.(*TextPage).Title)

	page, err = s.factory.CreatePage("extra", nil)
	require.NoError(t, err)
	assert.Equal(t, "Only here", page.(*TextPage).Title)

	page, err = s.factory.CreatePage("detail", map[string]any{"id": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Item x", page.(*TextPage).Title, "pages the provider lacks fall back to the config")
}

func TestFactory_FlavorOverridesAndFonts(t *testing.T) {
	cfg := &uiruntime.DSLConfig{
		InitialPage: "home",
		Pages: map[string]uiruntime.PageDef{
			"home": {
				Title: "Home {{flavor:banner}}",
				Body:  []string{"{{flavor:absent}}"},
				Font:  &uiruntime.FontSpec{Family: "heading", Weight: 700},
			},
			"plain": {Title: "Plain"},
		},
	}
	opts := uiruntime.Options{Flavor: uiruntime.Flavor{Overrides: map[string]string{"banner": "(beta)"}}}

	manager := NewManager()
	factory := NewFactory(manager, NewAppState())
	require.NoError(t, manager.Initialize(uiruntime.NewHandle(opts, cfg)))
	require.NoError(t, factory.Initialize(registry.FactoryOptions{FontFactory: FontMap{"heading": "Inter"}}))

	page, err := factory.CreateInitialPage()
	require.NoError(t, err)
	text := page.(*TextPage)
	assert.Equal(t, "Home (beta)", text.Title)
	assert.Equal(t, []string{"{{flavor:absent}}"}, text.Body)
	assert.Equal(t, "Inter Bold", text.FontName())

	page, err = factory.CreatePage("plain", nil)
	require.NoError(t, err)
	assert.Empty(t, page.(*TextPage).FontName(), "pages without a font keep the default")
}

func TestFactory_FontWithoutFactory(t *testing.T) {
	cfg := &uiruntime.DSLConfig{
		InitialPage: "home",
		Pages:       map[string]uiruntime.PageDef{"home": {Title: "Home", Font: &uiruntime.FontSpec{Family: "serif"}}},
	}
	manager := NewManager()
	factory := NewFactory(manager, NewAppState())
	require.NoError(t, manager.Initialize(uiruntime.NewHandle(uiruntime.Options{}, cfg)))
	require.NoError(t, factory.Initialize(registry.FactoryOptions{}))

	page, err := factory.CreateInitialPage()
	require.NoError(t, err)
	assert.Empty(t, page.(*TextPage).FontName())
}

func TestFactory_Lifecycle(t *testing.T) {
	f := NewFactory(NewManager(), NewAppState())
	_, err := f.CreateInitialPage()
	assert.ErrorIs(t, err, ErrNotInitialized)

	require.NoError(t, f.Initialize(registry.FactoryOptions{}))
	assert.ErrorIs(t, f.Initialize(registry.FactoryOptions{}), ErrAlreadyInitialized)

	_, err = f.CreatePage("home", nil)
	assert.ErrorIs(t, err, ErrNotInitialized, "manager is still unbound")

	require.NoError(t, f.Destroy())
	_, err = f.CreatePage("home", nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestTextPage_Render(t *testing.T) {
	p := &TextPage{
		ID:    "p",
		Title: "Title",
		Body:  []string{"the quick brown fox jumps", "short"},
	}

	assert.Equal(t, "Title\n\nthe quick\nbrown fox\njumps\nshort", p.Render(10))
	assert.Equal(t, "Title\n\nthe quick brown fox jumps\nshort", p.Render(0))
	assert.Equal(t, "p", p.PageID())
	assert.Nil(t, p.Links())
}

func TestResources(t *testing.T) {
	icons := DefaultIcons()
	glyph, ok := icons.Icon("check")
	assert.True(t, ok)
	assert.Equal(t, "✓", glyph)
	_, ok = icons.Icon("unknown")
	assert.False(t, ok)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), nil, 0o600))
	images := ImageDir(dir)

	path, ok := images.Image("a.png")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a.png"), path)

	_, ok = images.Image("b.png")
	assert.False(t, ok)
	path, ok = images.Image("../../a.png")
	assert.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "a.png"), path, "names cannot escape the directory")
	_, ok = ImageDir("").Image("a.png")
	assert.False(t, ok)
}

func TestFontMap(t *testing.T) {
	fonts := FontMap{"heading": "Inter", "default": "Mono"}

	tests := []struct {
		family string
		weight int
		want   string
	}{
		{"heading", 0, "Inter"},
		{"heading", 400, "Inter"},
		{"heading", 600, "Inter Bold"},
		{"heading", 300, "Inter Light"},
		{"body", 900, "Mono Bold"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fonts.Font(tt.family, tt.weight), "%s/%d", tt.family, tt.weight)
	}

	assert.Equal(t, "serif", FontMap{}.Font("serif", 400), "unknown families pass through without a default")
}
