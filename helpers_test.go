package duihost

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/duihost/registry"
	"github.com/GoCodeAlone/duihost/uiruntime"
)

// Static errors for tests
var (
	errLoadFailed    = errors.New("config backend unreachable")
	errManagerFailed = errors.New("manager failed")
	errStateFailed   = errors.New("state seeding failed")
	errFactoryFailed = errors.New("factory failed")
	errDestroyFailed = errors.New("destroy failed")
	errDisposeFailed = errors.New("dispose failed")
)

const testAccessKey = "0123456789abcdef01234567"

func testOptions() uiruntime.Options {
	return uiruntime.Options{AccessKey: testAccessKey, Flavor: uiruntime.Debug(uiruntime.EnvironmentDebug)}
}

func testDSL() *uiruntime.DSLConfig {
	return &uiruntime.DSLConfig{
		InitialPage: "home",
		Pages: map[string]uiruntime.PageDef{
			"home": {Title: "Home"},
		},
	}
}

// callLog records service calls in the order they happen.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}

type fakeManager struct {
	log        *callLog
	initErr    error
	destroyErr error
	handles    []*uiruntime.Handle
}

func (m *fakeManager) Initialize(h *uiruntime.Handle) error {
	m.log.add("manager.init")
	if m.initErr != nil {
		return m.initErr
	}
	m.handles = append(m.handles, h)
	return nil
}

func (m *fakeManager) Destroy() error {
	m.log.add("manager.destroy")
	return m.destroyErr
}

type fakeStore struct {
	log        *callLog
	initErr    error
	disposeErr error
	seeds      []uiruntime.StateSeed
}

func (s *fakeStore) Init(seeds []uiruntime.StateSeed) error {
	s.log.add("state.init")
	if s.initErr != nil {
		return s.initErr
	}
	s.seeds = seeds
	return nil
}

func (s *fakeStore) Dispose() error {
	s.log.add("state.dispose")
	return s.disposeErr
}

type fakePage struct {
	id     string
	params map[string]any
}

func (p *fakePage) PageID() string          { return p.id }
func (p *fakePage) Render(int) string       { return p.id }
func (p *fakePage) Links() []uiruntime.Link { return nil }

type fakeFactory struct {
	log        *callLog
	initErr    error
	destroyErr error
	opts       registry.FactoryOptions
	pageErr    error
}

func (f *fakeFactory) Initialize(opts registry.FactoryOptions) error {
	f.log.add("factory.init")
	if f.initErr != nil {
		return f.initErr
	}
	f.opts = opts
	return nil
}

func (f *fakeFactory) Destroy() error {
	f.log.add("factory.destroy")
	return f.destroyErr
}

func (f *fakeFactory) CreateInitialPage() (registry.Page, error) {
	f.log.add("factory.initial")
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return &fakePage{id: "home"}, nil
}

func (f *fakeFactory) CreatePage(pageID string, params map[string]any) (registry.Page, error) {
	f.log.add("factory.page:" + pageID)
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return &fakePage{id: pageID, params: params}, nil
}

// fixture bundles a controller with recording service doubles.
type fixture struct {
	log     *callLog
	manager *fakeManager
	store   *fakeStore
	factory *fakeFactory
	reg     *registry.Registry
	loader  *gatedLoader
	ctrl    *Controller
}

func newFixture(t *testing.T, opts ...ControllerOption) *fixture {
	t.Helper()
	log := &callLog{}
	f := &fixture{
		log:     log,
		manager: &fakeManager{log: log},
		store:   &fakeStore{log: log},
		factory: &fakeFactory{log: log},
		loader:  newGatedLoader(testDSL()),
	}
	reg, err := registry.New(f.manager, f.store, f.factory)
	require.NoError(t, err)
	f.reg = reg

	ctrl, err := NewController(f.loader, reg, opts...)
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

// startReady starts the controller with an open loader and waits for Ready.
func (f *fixture) startReady(t *testing.T) State {
	t.Helper()
	f.loader.open()
	f.ctrl.Start(context.Background(), testOptions())
	st := f.await(t)
	require.True(t, st.Ready(), "expected Ready, got %s (%v)", st.Phase, st.Cause)
	return st
}

func (f *fixture) await(t *testing.T) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := f.ctrl.AwaitSettled(ctx)
	require.NoError(t, err)
	return st
}

// gatedLoader builds handles from a fixed config. Calls block until released
// unless the loader is open.
type gatedLoader struct {
	cfg *uiruntime.DSLConfig

	mu       sync.Mutex
	err      error
	isOpen   bool
	gates    []chan struct{}
	calls    int
	handles  []*uiruntime.Handle
	received []uiruntime.Options
	entered  chan int
}

func newGatedLoader(cfg *uiruntime.DSLConfig) *gatedLoader {
	return &gatedLoader{cfg: cfg, entered: make(chan int, 16)}
}

func (l *gatedLoader) open() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.isOpen = true
	for _, g := range l.gates {
		close(g)
	}
	l.gates = nil
}

func (l *gatedLoader) fail(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

// release lets the oldest blocked call proceed.
func (l *gatedLoader) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.gates) == 0 {
		return
	}
	close(l.gates[0])
	l.gates = l.gates[1:]
}

func (l *gatedLoader) Load(ctx context.Context, opts uiruntime.Options) (*uiruntime.Handle, error) {
	l.mu.Lock()
	l.calls++
	n := l.calls
	l.received = append(l.received, opts)
	var gate chan struct{}
	if !l.isOpen {
		gate = make(chan struct{})
		l.gates = append(l.gates, gate)
	}
	l.mu.Unlock()

	l.entered <- n
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	h := uiruntime.NewHandle(opts, l.cfg)
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *gatedLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *gatedLoader) handle(i int) *uiruntime.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i >= len(l.handles) {
		return nil
	}
	return l.handles[i]
}

func (l *gatedLoader) waitEntered(t *testing.T, n int) {
	t.Helper()
	for {
		select {
		case got := <-l.entered:
			if got >= n {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("loader call %d never started", n)
		}
	}
}

// stateRecorder collects states delivered to a subscriber.
type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *stateRecorder) phases() []Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Phase, len(r.states))
	for i, s := range r.states {
		out[i] = s.Phase
	}
	return out
}

// watchStale returns a channel receiving every stale-result event.
func watchStale(t *testing.T, c *Controller) <-chan cloudevents.Event {
	t.Helper()
	stale := make(chan cloudevents.Event, 4)
	observer := NewFunctionalObserver("stale-watch", func(_ context.Context, e cloudevents.Event) error {
		stale <- e
		return nil
	})
	require.NoError(t, c.Subject().RegisterObserver(observer, EventTypeLifecycleStale))
	return stale
}
