package shell

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/GoCodeAlone/duihost"
)

// ErrShellClosed is returned by a Trigger function once the program has
// exited. The runtime is torn down by then, so it matches
// duihost.ErrNotStarted.
var ErrShellClosed = fmt.Errorf("shell closed: %w", duihost.ErrNotStarted)

// ReloadMsg asks the shell to hot reload the runtime. File watchers and the
// dev server deliver it with Program.Send, usually through Trigger.
type ReloadMsg struct {
	done chan<- error
}

// tickMsg advances the splash countdown. seq ties it to the countdown run
// that scheduled it so ticks from before a reload are dropped.
type tickMsg struct {
	seq int
	at  time.Time
}

type settledMsg struct {
	state duihost.State
	err   error
}

type reloadedMsg struct {
	err error
}

func tickCmd(seq int, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg{seq: seq, at: t}
	})
}

func awaitSettledCmd(ctx context.Context, lc Lifecycle) tea.Cmd {
	return func() tea.Msg {
		st, err := lc.AwaitSettled(ctx)
		return settledMsg{state: st, err: err}
	}
}

func reloadCmd(ctx context.Context, lc Lifecycle, done chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := lc.OnReload(ctx)
		if done != nil {
			done <- err
		}
		return reloadedMsg{err: err}
	}
}

// Sender delivers messages to a running program. *tea.Program is one.
type Sender interface {
	Send(msg tea.Msg)
}

// Trigger returns a reload function that routes requests through p, so the
// shell resets its navigation before the runtime restarts. The function
// reports the outcome of the reload; closed must be closed once the program
// has exited.
func Trigger(p Sender, closed <-chan struct{}) func(context.Context) error {
	return func(ctx context.Context) error {
		done := make(chan error, 1)
		p.Send(ReloadMsg{done: done})
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-closed:
			return ErrShellClosed
		}
	}
}
