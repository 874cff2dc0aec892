package duihost

import (
	"github.com/GoCodeAlone/duihost/uiruntime"
)

// Phase tags the current lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the lifecycle state: Idle, Loading, Ready(handle) or Error(cause).
// Handle is set only when Ready, Cause only when Error.
type State struct {
	Phase  Phase
	Epoch  uint64
	Handle *uiruntime.Handle
	Cause  error
}

// Idle reports whether nothing has been started.
func (s State) Idle() bool { return s.Phase == PhaseIdle }

// Loading reports whether initialization is in flight.
func (s State) Loading() bool { return s.Phase == PhaseLoading }

// Ready reports whether the runtime is up.
func (s State) Ready() bool { return s.Phase == PhaseReady }

// Failed reports whether initialization failed.
func (s State) Failed() bool { return s.Phase == PhaseError }

// Settled reports whether the state is terminal for its attempt.
func (s State) Settled() bool { return s.Phase == PhaseReady || s.Phase == PhaseError }

// Message returns a human readable description of the failure, or "".
func (s State) Message() string {
	if s.Cause == nil {
		return ""
	}
	return s.Cause.Error()
}

func idleState(epoch uint64) State    { return State{Phase: PhaseIdle, Epoch: epoch} }
func loadingState(epoch uint64) State { return State{Phase: PhaseLoading, Epoch: epoch} }

func readyState(epoch uint64, h *uiruntime.Handle) State {
	return State{Phase: PhaseReady, Epoch: epoch, Handle: h}
}

func errorState(epoch uint64, cause error) State {
	return State{Phase: PhaseError, Epoch: epoch, Cause: cause}
}
