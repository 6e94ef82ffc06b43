package worker

import (
	"context"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/carpool-client/internal/config"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/jrsteele09/carpool-client/worker/cache"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const revalidateTimeout = 30 * time.Second

// Host owns the registration: at most one active worker and at most one
// waiting worker. It serves HTTP through the active worker, or straight from
// the origin while there is none.
type Host struct {
	origin       *url.URL
	storage      cache.Storage
	client       *http.Client
	source       ScriptSource
	proxy        *httputil.ReverseProxy
	limiter      *rate.Limiter
	staticPrefix string
	skipWaiting  bool

	installMu sync.Mutex

	mu         sync.RWMutex
	registered bool
	active     *Worker
	waiting    *Worker

	subsMu sync.RWMutex
	subs   map[int]func(Event)
	order  []int
	nextID int

	revalidations sync.WaitGroup
}

// HostOption defines a function type to modify the Host instance.
type HostOption func(*Host)

func WithHTTPClient(client *http.Client) HostOption {
	return func(h *Host) {
		h.client = client
	}
}

// WithScriptSource replaces downloading the script from the origin.
func WithScriptSource(source ScriptSource) HostOption {
	return func(h *Host) {
		h.source = source
	}
}

// WithSkipWaiting overrides the configured skip-waiting behaviour.
func WithSkipWaiting(skip bool) HostOption {
	return func(h *Host) {
		h.skipWaiting = skip
	}
}

func NewHost(origin string, storage cache.Storage, cfg config.WorkerConfig, options ...HostOption) (*Host, error) {
	if storage == nil {
		return nil, errors.New("[NewHost] cache storage is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewHost] worker config is required")
	}
	originURL, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil || originURL.Scheme == "" || originURL.Host == "" {
		return nil, errors.Errorf("[NewHost] invalid origin %q", origin)
	}

	h := &Host{
		origin:       originURL,
		storage:      storage,
		client:       &http.Client{Timeout: revalidateTimeout},
		limiter:      rate.NewLimiter(rate.Limit(cfg.GetRevalidateRate()), max(1, int(cfg.GetRevalidateRate()))),
		staticPrefix: cfg.GetStaticPrefix(),
		skipWaiting:  cfg.GetSkipWaiting(),
		subs:         make(map[int]func(Event)),
	}
	for _, opt := range options {
		opt(h)
	}
	if h.source == nil {
		h.source = NewHTTPScriptSource(h.origin, h.client)
	}
	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(h.origin)
			pr.SetXForwarded()
		},
		Transport: h.client.Transport,
	}
	return h, nil
}

// Supported is always true for the in-process host.
func (h *Host) Supported() bool {
	return true
}

// Controller returns the active worker, or nil.
func (h *Host) Controller() *Worker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.active
}

func (h *Host) HasController() bool {
	return h.Controller() != nil
}

// Waiting returns the installed worker waiting to activate, or nil.
func (h *Host) Waiting() *Worker {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.waiting
}

// Subscribe registers fn for host events and returns a function removing it.
func (h *Host) Subscribe(fn func(Event)) (unsubscribe func()) {
	h.subsMu.Lock()
	defer h.subsMu.Unlock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.order = append(h.order, id)
	return func() {
		h.subsMu.Lock()
		defer h.subsMu.Unlock()
		delete(h.subs, id)
		for i, oid := range h.order {
			if oid == id {
				h.order = append(h.order[:i], h.order[i+1:]...)
				break
			}
		}
	}
}

// Register loads the script and installs it unless the same version is
// already active or waiting.
func (h *Host) Register(ctx context.Context, scriptURL string) error {
	h.installMu.Lock()
	defer h.installMu.Unlock()

	script, err := h.source.Load(ctx, scriptURL)
	if err != nil {
		return errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrInstallFailed), "[Host.Register] load script")
	}

	h.mu.Lock()
	if (h.active != nil && h.active.version == script.Version) || (h.waiting != nil && h.waiting.version == script.Version) {
		h.mu.Unlock()
		log.Debug().Str("version", script.Version).Msg("worker is up to date")
		return nil
	}
	hadRegistration := h.registered
	h.registered = true
	h.mu.Unlock()

	w := &Worker{host: h, version: script.Version, scriptURL: script.URL, manifest: script.Manifest, state: StateInstalling}
	log.Info().Str("version", w.version).Int("precache", len(w.manifest.Entries)).Msg("installing worker")
	if hadRegistration {
		h.emit(Event{Type: EventUpdateFound, Worker: w, State: StateInstalling})
	}

	if err := h.precache(ctx, w); err != nil {
		if derr := h.storage.Delete(ctx, cache.PrecacheName(w.version)); derr != nil {
			log.Warn().Err(derr).Msg("could not drop partial precache")
		}
		h.setState(w, StateRedundant)
		metrics.RecordWorkerEvent("install_failed")
		return errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrInstallFailed), "[Host.Register] precache")
	}
	h.setState(w, StateInstalled)
	metrics.RecordWorkerEvent("installed")

	h.mu.Lock()
	activateNow := h.active == nil || h.skipWaiting
	var superseded *Worker
	if !activateNow {
		superseded = h.waiting
		h.waiting = w
	}
	h.mu.Unlock()

	if superseded != nil {
		h.setState(superseded, StateRedundant)
	}
	if activateNow {
		h.activate(w)
	} else {
		log.Info().Str("version", w.version).Msg("worker installed and waiting")
	}
	return nil
}

// Wait blocks until background revalidations have finished.
func (h *Host) Wait() {
	h.revalidations.Wait()
}

// ServeHTTP routes the request through the active worker.
func (h *Host) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if active := h.Controller(); active != nil {
		active.ServeHTTP(rw, r)
		return
	}
	h.proxy.ServeHTTP(rw, r)
}

func (h *Host) handleMessage(w *Worker, msg Message) {
	switch msg.Type {
	case MessageSkipWaiting:
		h.mu.Lock()
		isWaiting := h.waiting == w
		h.mu.Unlock()
		if !isWaiting {
			log.Debug().Str("version", w.version).Msg("skip waiting ignored, worker is not waiting")
			return
		}
		h.activate(w)
	default:
		log.Debug().Str("type", msg.Type).Msg("ignoring worker message")
	}
}

func (h *Host) activate(w *Worker) {
	if !w.transition(StateInstalled, StateActivating) {
		return
	}
	h.emit(Event{Type: EventStateChange, Worker: w, State: StateActivating})

	h.mu.Lock()
	previous := h.active
	h.active = w
	if h.waiting == w {
		h.waiting = nil
	}
	h.mu.Unlock()

	if previous != nil {
		h.setState(previous, StateRedundant)
	}
	h.setState(w, StateActivated)
	h.cleanupOutdatedCaches(w)
	metrics.RecordWorkerEvent("activated")
	log.Info().Str("version", w.version).Msg("worker activated")
	h.emit(Event{Type: EventControllerChange, Worker: w, State: StateActivated})
}

func (h *Host) precache(ctx context.Context, w *Worker) error {
	name := cache.PrecacheName(w.version)
	for _, e := range w.manifest.Entries {
		entry, err := h.fetch(ctx, e.URL)
		if err != nil {
			return err
		}
		if entry.Status != http.StatusOK {
			return errors.Errorf("precache %s: status %d", e.URL, entry.Status)
		}
		if err := h.storage.Put(ctx, name, e.URL, entry); err != nil {
			return err
		}
	}
	return nil
}

func (h *Host) cleanupOutdatedCaches(current *Worker) {
	ctx := context.Background()
	names, err := h.storage.Names(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("could not list caches")
		return
	}
	keep := cache.PrecacheName(current.version)
	for _, n := range names {
		if cache.IsPrecache(n) && n != keep {
			if err := h.storage.Delete(ctx, n); err != nil {
				log.Warn().Err(err).Str("cache", n).Msg("could not delete outdated cache")
			}
		}
	}
}

// fetch GETs requestURI from the origin and buffers the response.
func (h *Host) fetch(ctx context.Context, requestURI string) (*cache.Entry, error) {
	ref, err := url.Parse(requestURI)
	if err != nil {
		return nil, errors.Wrap(err, "[Host.fetch] invalid url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.origin.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[Host.fetch]")
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[Host.fetch]")
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[Host.fetch] read body")
	}
	return &cache.Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now(),
	}, nil
}

func (h *Host) setState(w *Worker, s State) {
	w.mu.Lock()
	if w.state == s {
		w.mu.Unlock()
		return
	}
	w.state = s
	w.mu.Unlock()
	h.emit(Event{Type: EventStateChange, Worker: w, State: s})
}

func (h *Host) emit(ev Event) {
	h.subsMu.RLock()
	fns := make([]func(Event), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.subs[id])
	}
	h.subsMu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}
