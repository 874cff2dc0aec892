package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDebounce = 50 * time.Millisecond

type counter struct{ n atomic.Int32 }

func (c *counter) trigger(context.Context) error {
	c.n.Add(1)
	return nil
}

func (c *counter) count() int { return int(c.n.Load()) }

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func startWatcher(t *testing.T, paths []string, trigger TriggerFunc) *Watcher {
	t.Helper()
	w, err := NewWatcher(paths, trigger, WithDebounce(testDebounce))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(nil, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNoPaths)

	_, err = NewWatcher([]string{"."}, nil)
	assert.Error(t, err)

	w, err := NewWatcher([]string{"."}, func(context.Context) error { return nil }, WithDebounce(0), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.Equal(t, nopLogger{}, w.logger)
}

func TestWatcher_StartMissingPath(t *testing.T) {
	w, err := NewWatcher([]string{filepath.Join(t.TempDir(), "absent")}, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	c := &counter{}
	startWatcher(t, []string{dir}, c.trigger)

	for i := 0; i < 5; i++ {
		write(t, filepath.Join(dir, "app.yaml"), "v"+string(rune('a'+i)))
	}

	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(3 * testDebounce)
	assert.Equal(t, 1, c.count(), "one burst triggers one reload")

	write(t, filepath.Join(dir, "app.yaml"), "again")
	assert.Eventually(t, func() bool { return c.count() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_FilePathIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "app.json")
	write(t, target, "{}")

	c := &counter{}
	startWatcher(t, []string{target}, c.trigger)

	write(t, filepath.Join(dir, "other.json"), "{}")
	time.Sleep(4 * testDebounce)
	assert.Equal(t, 0, c.count())

	write(t, target, `{"a":1}`)
	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher([]string{dir}, func(context.Context) error { return nil })
	require.NoError(t, err)

	tests := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"app.yaml", fsnotify.Write, true},
		{"app.yaml", fsnotify.Chmod, false},
		{".hidden", fsnotify.Write, false},
		{"#autosave#", fsnotify.Create, false},
		{"app.yaml~", fsnotify.Write, false},
		{"app.yaml.swp", fsnotify.Write, false},
		{"new.toml", fsnotify.Create, true},
	}
	for _, tt := range tests {
		event := fsnotify.Event{Name: filepath.Join(dir, tt.name), Op: tt.op}
		assert.Equal(t, tt.want, w.relevant(event), "%s %s", tt.name, tt.op)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()
	c := &counter{}
	w, err := NewWatcher([]string{dir}, c.trigger, WithDebounce(testDebounce))
	require.NoError(t, err)

	require.NoError(t, w.Stop(), "stop before start does nothing")
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())

	write(t, filepath.Join(dir, "app.yaml"), "x")
	time.Sleep(4 * testDebounce)
	assert.Equal(t, 0, c.count(), "a stopped watcher does not trigger")

	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	write(t, filepath.Join(dir, "app.yaml"), "y")
	assert.Eventually(t, func() bool { return c.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

type recordingLogger struct {
	errors atomic.Int32
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Warn(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) { l.errors.Add(1) }

func TestWatcher_TriggerErrorsAreLogged(t *testing.T) {
	dir := t.TempDir()
	logger := &recordingLogger{}
	w, err := NewWatcher([]string{dir}, func(context.Context) error {
		return errors.New("reload refused")
	}, WithDebounce(testDebounce), WithLogger(logger))
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })

	write(t, filepath.Join(dir, "app.yaml"), "x")
	assert.Eventually(t, func() bool { return logger.errors.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}
