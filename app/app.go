// Package app is the application root. It owns the session store and every
// component observing it, and defines their start and teardown order.
package app

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/carpool-client/api"
	"github.com/jrsteele09/carpool-client/auth"
	"github.com/jrsteele09/carpool-client/bootstrap"
	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/jrsteele09/carpool-client/nav"
	"github.com/jrsteele09/carpool-client/policy"
	"github.com/jrsteele09/carpool-client/realtime"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/jrsteele09/carpool-client/users"
	"github.com/jrsteele09/carpool-client/worker"
)

type App struct {
	config  config.Config
	store   *session.Store
	router  nav.Router
	backend api.Backend

	sequencer *bootstrap.Sequencer
	enricher  *bootstrap.Enricher
	gate      *policy.Gate
	auth      *auth.Service
	channel   realtime.Connector
	realtime  *realtime.Manager
	lifecycle *worker.Lifecycle

	container worker.Container
	onMessage realtime.MessageHandler

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	reloads     int
	prevImage   string
	profileView users.ViewRole
	wg          sync.WaitGroup
}

type Option func(*App)

func WithRouter(router nav.Router) Option {
	return func(a *App) {
		a.router = router
	}
}

func WithBackend(backend api.Backend) Option {
	return func(a *App) {
		a.backend = backend
	}
}

// WithConnector replaces the realtime channel.
func WithConnector(channel realtime.Connector) Option {
	return func(a *App) {
		a.channel = channel
	}
}

// WithContainer enables the worker update lifecycle against container.
func WithContainer(container worker.Container) Option {
	return func(a *App) {
		a.container = container
	}
}

// WithMessageHandler receives realtime notifications. The handler must not
// call Close.
func WithMessageHandler(fn realtime.MessageHandler) Option {
	return func(a *App) {
		a.onMessage = fn
	}
}

// New wires the components. The HTTP backend, in-memory router and websocket
// channel are used unless replaced by options. Without a container the
// worker lifecycle is disabled.
func New(cfg config.Config, options ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("[app.New] config is required")
	}
	a := &App{
		config:      cfg,
		store:       session.NewStore(),
		profileView: users.ViewPassenger,
	}
	for _, opt := range options {
		opt(a)
	}

	if a.router == nil {
		a.router = nav.NewMemory("/")
	}
	if a.backend == nil {
		client, err := api.NewClient(cfg.GetBaseURL(), config.RequestTimeout(cfg), api.WithBearer(a.store.AccessToken))
		if err != nil {
			return nil, errors.Wrap(err, "[app.New] backend")
		}
		a.backend = client
	}
	if a.channel == nil {
		channel, err := realtime.NewChannel(cfg.GetBaseURL(), cfg)
		if err != nil {
			return nil, errors.Wrap(err, "[app.New] realtime channel")
		}
		a.channel = channel
	}
	if a.onMessage == nil {
		a.onMessage = func(payload any) {
			log.Info().Interface("payload", payload).Msg("notification received")
		}
	}

	var err error
	if a.sequencer, err = bootstrap.NewSequencer(a.backend, a.store, a.router, cfg); err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}
	a.enricher = bootstrap.NewEnricher(a.backend, a.store)
	if a.gate, err = policy.NewGate(a.store, a.router, cfg); err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}
	if a.auth, err = auth.NewService(a.backend, a.store, a.router, cfg, auth.WithSessionFetcher(a.sequencer)); err != nil {
		return nil, errors.Wrap(err, "[app.New]")
	}
	a.realtime = realtime.NewManager(a.store, a.channel, a.onMessage)
	if a.container != nil {
		if a.lifecycle, err = worker.NewLifecycle(a.container, worker.ReloaderFunc(a.Reload), cfg); err != nil {
			return nil, errors.Wrap(err, "[app.New]")
		}
	}
	return a, nil
}

// Start subscribes every observer, registers the worker and runs the
// startup sequence. It returns once the session is restored or known to be
// absent, including any reload the worker registration triggered. A second
// call is a no-op.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return
	}
	a.started = true
	a.ctx, a.cancel = context.WithCancel(ctx)
	rootCtx := a.ctx
	a.mu.Unlock()

	a.gate.Start()
	a.enricher.Start(rootCtx)
	a.realtime.Start(rootCtx)
	if a.lifecycle != nil {
		a.lifecycle.Start(rootCtx)
	}
	a.sequencer.Run(rootCtx)
}

// Close tears the components down in reverse order and waits for their
// background work.
func (a *App) Close() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.started = false
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	if a.lifecycle != nil {
		a.lifecycle.Close()
	}
	a.wg.Wait()
	a.realtime.Close()
	a.gate.Close()
	a.enricher.Close()
}

// Reload is the headless equivalent of a page reload: in-memory state is
// dropped and a fresh startup sequence restores the session from the
// backend cookie. It returns once that sequence has finished.
func (a *App) Reload() {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return
	}
	a.reloads++
	ctx := a.ctx
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	log.Info().Msg("reloading application")
	metrics.RecordWorkerEvent("app_reload")

	a.store.Clear()
	a.store.SetLoading(true)

	sequencer, err := bootstrap.NewSequencer(a.backend, a.store, a.router, a.config)
	if err != nil {
		log.Err(err).Msg("reload failed")
		a.store.SetLoading(false)
		return
	}
	sequencer.Run(ctx)
}

// Wait blocks until running reloads, enrichment fetches and realtime
// operations have finished.
func (a *App) Wait() {
	a.wg.Wait()
	a.enricher.Wait()
	a.realtime.Wait()
}

// Reloads returns how many times the application reloaded.
func (a *App) Reloads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reloads
}

func (a *App) Store() *session.Store {
	return a.store
}

func (a *App) Router() nav.Router {
	return a.router
}

func (a *App) Backend() api.Backend {
	return a.backend
}

func (a *App) Auth() *auth.Service {
	return a.auth
}

func (a *App) Gate() *policy.Gate {
	return a.gate
}

// Lifecycle is nil when the app runs without a worker container.
func (a *App) Lifecycle() *worker.Lifecycle {
	return a.lifecycle
}

// PrevImage is the last profile image shown, kept so views can render it
// while a new one loads.
func (a *App) PrevImage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.prevImage
}

func (a *App) SetPrevImage(url string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prevImage = url
}

// ProfileView is the side of the profile being browsed, passenger by default.
func (a *App) ProfileView() users.ViewRole {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profileView
}

func (a *App) SetProfileView(role users.ViewRole) error {
	if role != users.ViewPassenger && role != users.ViewDriver {
		return errors.Errorf("[App.SetProfileView] unknown view role %q", role)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.profileView = role
	return nil
}
