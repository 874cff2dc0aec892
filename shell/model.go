// Package shell is the terminal presentation of the host. It shows a splash
// while the runtime loads, the failure when it cannot start, and the routed
// pages once the runtime is ready and the splash countdown has finished.
package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/GoCodeAlone/duihost"
	"github.com/GoCodeAlone/duihost/registry"
)

// DefaultTickInterval is the splash countdown period.
const DefaultTickInterval = time.Second

// Lifecycle is the part of the controller the shell drives.
type Lifecycle interface {
	State() duihost.State
	AwaitSettled(ctx context.Context) (duihost.State, error)
	OnReload(ctx context.Context) error
	Teardown() error
	CanShowRouted() bool
	Countdown() *duihost.Countdown
}

// Resolver resolves page requests.
type Resolver interface {
	Resolve(req duihost.PageRequest) (registry.Page, error)
}

// Model is the Bubble Tea model of the shell.
type Model struct {
	ctx      context.Context
	lc       Lifecycle
	resolver Resolver
	styles   Styles
	spinner  spinner.Model
	interval time.Duration

	width  int
	height int

	tickSeq int
	ticking bool

	stack   []duihost.PageRequest
	page    registry.Page
	pageErr error

	notice      error
	teardownErr error
	quitting    bool
}

// Option configures a Model.
type Option func(*Model)

// WithTickInterval changes the splash countdown period.
func WithTickInterval(d time.Duration) Option {
	return func(m *Model) {
		if d > 0 {
			m.interval = d
		}
	}
}

// WithStyles replaces the default styles.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// New creates the shell model. ctx bounds the runtime operations the shell
// starts.
func New(ctx context.Context, lc Lifecycle, resolver Resolver, opts ...Option) *Model {
	m := &Model{
		ctx:      ctx,
		lc:       lc,
		resolver: resolver,
		styles:   DefaultStyles(),
		interval: DefaultTickInterval,
		stack:    []duihost.PageRequest{duihost.InitialPage()},
	}
	for _, opt := range opts {
		opt(m)
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = m.styles.Spinner
	m.spinner = s
	return m
}

// Init starts the spinner, the splash countdown and the wait for the first
// attempt to settle.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startTicking(), awaitSettledCmd(m.ctx, m.lc))
}

// TeardownErr returns the error of the teardown performed on quit.
func (m *Model) TeardownErr() error { return m.teardownErr }

// Stack returns the navigation stack, bottom first.
func (m *Model) Stack() []duihost.PageRequest {
	out := make([]duihost.PageRequest, len(m.stack))
	copy(out, m.stack)
	return out
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if msg.seq != m.tickSeq {
			return m, nil
		}
		if m.lc.Countdown().Tick() {
			m.ticking = false
			m.refresh()
			return m, nil
		}
		return m, tickCmd(m.tickSeq, m.interval)

	case settledMsg:
		if msg.err != nil && !errors.Is(msg.err, duihost.ErrNotStarted) {
			return m, nil
		}
		m.refresh()
		return m, nil

	case ReloadMsg:
		return m, reloadCmd(m.ctx, m.lc, msg.done)

	case reloadedMsg:
		m.notice = msg.err
		m.stack = []duihost.PageRequest{duihost.InitialPage()}
		m.page = nil
		m.pageErr = nil
		m.ticking = false
		return m, tea.Batch(m.startTicking(), awaitSettledCmd(m.ctx, m.lc))
	}
	return m, nil
}

func (m *Model) startTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.tickSeq++
	m.ticking = true
	return tickCmd(m.tickSeq, m.interval)
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		m.quitting = true
		m.teardownErr = m.lc.Teardown()
		return tea.Quit
	case "r":
		return reloadCmd(m.ctx, m.lc, nil)
	case "backspace", "esc":
		m.back()
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.follow(int(key[0] - '1'))
	}
	return nil
}

// refresh resolves the page on top of the stack when the routed view is
// allowed and nothing is shown yet.
func (m *Model) refresh() {
	if m.page != nil || !m.lc.CanShowRouted() {
		return
	}
	m.resolveTop()
}

func (m *Model) resolveTop() {
	page, err := m.resolver.Resolve(m.stack[len(m.stack)-1])
	if errors.Is(err, duihost.ErrNotReady) {
		m.page, m.pageErr = nil, nil
		return
	}
	m.page, m.pageErr = page, err
}

func (m *Model) follow(index int) {
	if !m.lc.CanShowRouted() || m.page == nil {
		return
	}
	nav, ok := m.page.(registry.Navigable)
	if !ok {
		return
	}
	links := nav.Links()
	if index < 0 || index >= len(links) {
		return
	}
	link := links[index]
	m.stack = append(m.stack, duihost.PageRequest{PageID: link.PageID, Params: link.Params})
	m.resolveTop()
}

func (m *Model) back() {
	if len(m.stack) <= 1 || !m.lc.CanShowRouted() {
		return
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.resolveTop()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	st := m.lc.State()
	var body string
	switch {
	case st.Failed():
		body = m.errorView(st)
	case m.lc.CanShowRouted():
		body = m.routedView()
	default:
		body = m.splashView(st)
	}

	if m.notice != nil {
		body += "\n" + m.styles.Warning.Render("last reload: "+m.notice.Error())
	}
	return body
}

func (m *Model) splashView(st duihost.State) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("duihost"))
	b.WriteString("\n\n")
	if st.Ready() {
		b.WriteString("Runtime ready")
	} else {
		b.WriteString(m.spinner.View())
		b.WriteString(" Loading runtime")
	}
	if cd := m.lc.Countdown(); !cd.Revealed() {
		fmt.Fprintf(&b, "\n\nStarting in %d", cd.Remaining())
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.Help.Render("q quit"))
	return m.styles.Splash.Render(b.String())
}

func (m *Model) errorView(st duihost.State) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render("Runtime failed to start"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Error.Render(st.Message()))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Help.Render("r retry • q quit"))
	return b.String()
}

func (m *Model) routedView() string {
	var b strings.Builder

	crumbs := make([]string, len(m.stack))
	for i, req := range m.stack {
		crumbs[i] = req.PageID
	}
	b.WriteString(m.styles.Crumb.Render(strings.Join(crumbs, " › ")))
	b.WriteString("\n\n")

	switch {
	case m.pageErr != nil:
		b.WriteString(m.styles.Error.Render(m.pageErr.Error()))
	case m.page != nil:
		b.WriteString(m.page.Render(m.width))
		if nav, ok := m.page.(registry.Navigable); ok {
			links := nav.Links()
			if len(links) > 0 {
				b.WriteString("\n")
			}
			for i, link := range links {
				if i >= 9 {
					break
				}
				b.WriteString("\n")
				b.WriteString(m.styles.Link.Render(fmt.Sprintf("[%d] %s", i+1, link.Label)))
			}
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.styles.Help.Render("1-9 open • backspace back • r reload • q quit"))
	return b.String()
}
