package worker

import (
	"context"
	"sync"

	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Container is the client's view of the worker host.
type Container interface {
	Supported() bool
	Register(ctx context.Context, scriptURL string) error
	HasController() bool
	Subscribe(fn func(Event)) (unsubscribe func())
}

// Reloader reloads the application. Reload returns once the reloaded
// startup sequence has finished.
type Reloader interface {
	Reload()
}

// ReloaderFunc adapts a function to Reloader.
type ReloaderFunc func()

func (f ReloaderFunc) Reload() { f() }

// ReloadState is the reload guard.
type ReloadState int

const (
	ReloadIdle ReloadState = iota
	ReloadReloading
)

func (s ReloadState) String() string {
	if s == ReloadReloading {
		return "RELOADING"
	}
	return "IDLE"
}

// Lifecycle registers the worker and reacts to updates: a newly installed
// version is announced and a controller change reloads the app. Controller
// changes arriving while a reload is running are absorbed.
type Lifecycle struct {
	container Container
	reloader  Reloader
	script    string

	mu          sync.Mutex
	state       ReloadState
	unsubscribe func()
}

func NewLifecycle(container Container, reloader Reloader, cfg config.WorkerConfig) (*Lifecycle, error) {
	if container == nil {
		return nil, errors.New("[NewLifecycle] container is required")
	}
	if reloader == nil {
		return nil, errors.New("[NewLifecycle] reloader is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewLifecycle] worker config is required")
	}
	return &Lifecycle{container: container, reloader: reloader, script: cfg.GetWorkerScript()}, nil
}

// Start registers the worker script. An unsupported container is a no-op
// and a failed registration is logged; neither stops the application.
func (l *Lifecycle) Start(ctx context.Context) {
	if !l.container.Supported() {
		log.Info().Msg("worker container unsupported, skipping registration")
		return
	}

	l.mu.Lock()
	if l.unsubscribe == nil {
		l.unsubscribe = l.container.Subscribe(l.observe)
	}
	l.mu.Unlock()

	if err := l.container.Register(ctx, l.script); err != nil {
		log.Err(err).Str("script", l.script).Msg("worker registration failed")
		metrics.RecordWorkerEvent("registration_failed")
	}
}

// Close stops observing the container.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
}

func (l *Lifecycle) State() ReloadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) observe(ev Event) {
	switch ev.Type {
	case EventStateChange:
		if ev.State == StateInstalled && l.container.HasController() {
			log.Info().Str("version", ev.Worker.Version()).Msg("new version available")
		}
	case EventControllerChange:
		l.reload()
	}
}

func (l *Lifecycle) reload() {
	l.mu.Lock()
	if l.state == ReloadReloading {
		l.mu.Unlock()
		log.Debug().Msg("reload already in progress")
		return
	}
	l.state = ReloadReloading
	l.mu.Unlock()

	metrics.RecordWorkerEvent("reload")
	log.Info().Msg("worker controller changed, reloading")
	defer l.Reset()
	l.reloader.Reload()
}

// Reset returns the guard to idle so the next controller change reloads.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = ReloadIdle
}
