package duihost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

// recordingLogger captures log calls for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }

func (l *recordingLogger) levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.level
	}
	return out
}

func TestNewCloudEvent(t *testing.T) {
	event := NewCloudEvent(EventTypeLifecycleReady, EventSource, map[string]any{"epoch": 2}, map[string]interface{}{"epoch": "2"})

	require.NoError(t, ValidateCloudEvent(event))
	assert.Equal(t, EventTypeLifecycleReady, event.Type())
	assert.Equal(t, EventSource, event.Source())
	assert.Equal(t, cloudevents.VersionV1, event.SpecVersion())
	assert.NotEmpty(t, event.ID())
	assert.Equal(t, "2", event.Extensions()["epoch"])

	var data map[string]any
	require.NoError(t, event.DataAs(&data))
	assert.InDelta(t, 2, data["epoch"], 0)

	other := NewCloudEvent(EventTypeLifecycleReady, EventSource, nil, nil)
	assert.NotEqual(t, event.ID(), other.ID())
}

func TestValidateCloudEvent_Invalid(t *testing.T) {
	event := cloudevents.NewEvent()
	err := ValidateCloudEvent(event)
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEventSubject_Filtering(t *testing.T) {
	subject := NewEventSubject(nil)

	var mu sync.Mutex
	got := map[string][]string{}
	record := func(id string) Observer {
		return NewFunctionalObserver(id, func(_ context.Context, e cloudevents.Event) error {
			mu.Lock()
			defer mu.Unlock()
			got[id] = append(got[id], e.Type())
			return nil
		})
	}

	require.NoError(t, subject.RegisterObserver(record("all")))
	require.NoError(t, subject.RegisterObserver(record("ready-only"), EventTypeLifecycleReady))
	assert.Len(t, subject.GetObservers(), 2)

	require.NoError(t, subject.NotifyObservers(context.Background(), NewCloudEvent(EventTypeLifecycleLoading, EventSource, nil, nil)))
	require.NoError(t, subject.NotifyObservers(context.Background(), NewCloudEvent(EventTypeLifecycleReady, EventSource, nil, nil)))
	subject.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{EventTypeLifecycleLoading, EventTypeLifecycleReady}, got["all"])
	assert.Equal(t, []string{EventTypeLifecycleReady}, got["ready-only"])
}

func TestEventSubject_Unregister(t *testing.T) {
	subject := NewEventSubject(nil)
	calls := 0
	obs := NewFunctionalObserver("once", func(context.Context, cloudevents.Event) error {
		calls++
		return nil
	})

	require.NoError(t, subject.RegisterObserver(obs))
	require.NoError(t, subject.UnregisterObserver(obs))
	require.NoError(t, subject.UnregisterObserver(obs), "unknown observers are ignored")

	require.NoError(t, subject.NotifyObservers(context.Background(), NewCloudEvent(EventTypeLifecycleReady, EventSource, nil, nil)))
	subject.Wait()
	assert.Equal(t, 0, calls)
	assert.Empty(t, subject.GetObservers())
}

func TestEventSubject_ObserverFailuresAreContained(t *testing.T) {
	logger := &recordingLogger{}
	subject := NewEventSubject(logger)

	require.NoError(t, subject.RegisterObserver(NewFunctionalObserver("panics", func(context.Context, cloudevents.Event) error {
		panic("observer bug")
	})))
	require.NoError(t, subject.RegisterObserver(NewFunctionalObserver("errors", func(context.Context, cloudevents.Event) error {
		return errors.New("observer failed")
	})))

	require.NoError(t, subject.NotifyObservers(context.Background(), NewCloudEvent(EventTypeLifecycleReady, EventSource, nil, nil)))
	subject.Wait()

	errorsLogged := 0
	for _, level := range logger.levels() {
		if level == "error" {
			errorsLogged++
		}
	}
	assert.Equal(t, 2, errorsLogged)
}

func TestEventSubject_RejectsInvalidEvent(t *testing.T) {
	subject := NewEventSubject(nil)
	err := subject.NotifyObservers(context.Background(), cloudevents.NewEvent())
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestLoggingObserver(t *testing.T) {
	tests := []struct {
		eventType string
		wantLevel string
	}{
		{EventTypeLifecycleReady, "debug"},
		{EventTypeLifecycleFailed, "error"},
		{EventTypeServiceFailed, "error"},
		{EventTypeServiceInitialized, "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			logger := &recordingLogger{}
			obs := NewLoggingObserver(logger)
			event := NewCloudEvent(tt.eventType, EventSource, nil, map[string]interface{}{"epoch": "4"})

			require.NoError(t, obs.OnEvent(context.Background(), event))
			require.Len(t, logger.entries, 1)
			entry := logger.entries[0]
			assert.Equal(t, tt.wantLevel, entry.level)
			assert.Contains(t, fmt.Sprint(entry.args...), tt.eventType)
			assert.Contains(t, entry.args, "epoch")
		})
	}
}

func TestController_LogsThroughLogger(t *testing.T) {
	logger := &recordingLogger{}
	f := newFixture(t, WithLogger(logger))
	f.factory.destroyErr = errDestroyFailed
	f.startReady(t)
	require.Error(t, f.ctrl.Teardown())

	assert.Contains(t, logger.levels(), "info")
	assert.Contains(t, logger.levels(), "error")
}
