package worker_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/worker"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"
)

// fakeContainer lets tests fire events by hand.
type fakeContainer struct {
	supported     bool
	registerErr   error
	hasController bool

	mu          sync.Mutex
	registered  []string
	subscribers []func(worker.Event)
}

func (c *fakeContainer) Supported() bool { return c.supported }

func (c *fakeContainer) Register(_ context.Context, scriptURL string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.registered = append(c.registered, scriptURL)
	return c.registerErr
}

func (c *fakeContainer) HasController() bool { return c.hasController }

func (c *fakeContainer) Subscribe(fn func(worker.Event)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subscribers = nil
	}
}

func (c *fakeContainer) fire(ev worker.Event) {
	c.mu.Lock()
	subs := append([]func(worker.Event){}, c.subscribers...)
	c.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

type reloadCounter struct {
	mu sync.Mutex
	n  int

	// during runs inside Reload, while the reload is still in flight.
	during func()
}

func (r *reloadCounter) Reload() {
	r.mu.Lock()
	r.n++
	r.mu.Unlock()
	if r.during != nil {
		r.during()
	}
}

func (r *reloadCounter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// captureLogs redirects the global logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestNewLifecycleValidation(t *testing.T) {
	_, err := worker.NewLifecycle(nil, &reloadCounter{}, config.Worker{})
	require.Error(t, err)
	_, err = worker.NewLifecycle(&fakeContainer{}, nil, config.Worker{})
	require.Error(t, err)
	_, err = worker.NewLifecycle(&fakeContainer{}, &reloadCounter{}, nil)
	require.Error(t, err)
}

func TestUnsupportedContainerDoesNothing(t *testing.T) {
	c := &fakeContainer{}
	l, err := worker.NewLifecycle(c, &reloadCounter{}, config.Worker{})
	require.NoError(t, err)

	l.Start(context.Background())

	require.Empty(t, c.registered)
	require.Empty(t, c.subscribers)
}

func TestRegistrationFailureIsLogged(t *testing.T) {
	logs := captureLogs(t)
	c := &fakeContainer{supported: true, registerErr: errors.New("script 404")}
	l, err := worker.NewLifecycle(c, &reloadCounter{}, config.Worker{})
	require.NoError(t, err)

	l.Start(context.Background())

	require.Equal(t, []string{"/sw.js"}, c.registered)
	require.Contains(t, logs.String(), "worker registration failed")
	require.Equal(t, worker.ReloadIdle, l.State())
}

func TestControllerChangeDuringReloadIsAbsorbed(t *testing.T) {
	c := &fakeContainer{supported: true}
	var states []worker.ReloadState
	var l *worker.Lifecycle
	reloads := &reloadCounter{}
	reloads.during = func() {
		states = append(states, l.State())
		c.fire(worker.Event{Type: worker.EventControllerChange})
	}
	l, err := worker.NewLifecycle(c, reloads, config.Worker{})
	require.NoError(t, err)
	l.Start(context.Background())

	c.fire(worker.Event{Type: worker.EventControllerChange})

	require.Equal(t, 1, reloads.count())
	require.Equal(t, []worker.ReloadState{worker.ReloadReloading}, states)
	require.Equal(t, worker.ReloadIdle, l.State())
}

func TestControllerChangeAfterReloadReloadsAgain(t *testing.T) {
	c := &fakeContainer{supported: true}
	reloads := &reloadCounter{}
	l, err := worker.NewLifecycle(c, reloads, config.Worker{})
	require.NoError(t, err)
	l.Start(context.Background())

	c.fire(worker.Event{Type: worker.EventControllerChange})
	c.fire(worker.Event{Type: worker.EventControllerChange})

	require.Equal(t, 2, reloads.count())
	require.Equal(t, worker.ReloadIdle, l.State())
}

func TestResetReturnsGuardToIdle(t *testing.T) {
	c := &fakeContainer{supported: true}
	var l *worker.Lifecycle
	reloads := &reloadCounter{}
	reloads.during = func() {
		if reloads.count() > 1 {
			return
		}
		l.Reset()
		c.fire(worker.Event{Type: worker.EventControllerChange})
	}
	l, err := worker.NewLifecycle(c, reloads, config.Worker{})
	require.NoError(t, err)
	l.Start(context.Background())

	c.fire(worker.Event{Type: worker.EventControllerChange})
	require.Equal(t, 2, reloads.count())
	require.Equal(t, worker.ReloadIdle, l.State())
}

func TestCloseStopsObserving(t *testing.T) {
	c := &fakeContainer{supported: true}
	reloads := &reloadCounter{}
	l, err := worker.NewLifecycle(c, reloads, config.Worker{})
	require.NoError(t, err)
	l.Start(context.Background())
	l.Close()

	c.fire(worker.Event{Type: worker.EventControllerChange})
	require.Zero(t, reloads.count())
}

func TestNewVersionAnnouncedAgainstRealHost(t *testing.T) {
	logs := captureLogs(t)
	f := setupHost(t, worker.WithSkipWaiting(false))
	reloads := &reloadCounter{}
	l, err := worker.NewLifecycle(f.host, reloads, config.Worker{})
	require.NoError(t, err)

	f.scripts.set("v1", "/")
	l.Start(context.Background())
	require.Equal(t, 1, reloads.count())
	require.NotContains(t, logs.String(), "new version available")

	f.scripts.set("v2", "/")
	require.NoError(t, f.host.Register(context.Background(), "/sw.js"))
	require.Contains(t, logs.String(), "new version available")
	require.Equal(t, "v1", f.host.Controller().Version(), "no forced update")

	f.host.Waiting().PostMessage(worker.Message{Type: worker.MessageSkipWaiting})
	require.Equal(t, "v2", f.host.Controller().Version())
	require.Equal(t, 2, reloads.count(), "update after the first install reloads again")
	require.Equal(t, worker.ReloadIdle, l.State())
}
