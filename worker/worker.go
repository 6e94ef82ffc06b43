package worker

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/jrsteele09/carpool-client/worker/cache"
	"github.com/rs/zerolog/log"
)

// Cache outcome reported on every response the worker serves itself
const cacheHeader = "X-Worker-Cache"

// Worker is one installed script version.
type Worker struct {
	host      *Host
	version   string
	scriptURL string
	manifest  cache.Manifest

	mu    sync.RWMutex
	state State
}

func (w *Worker) Version() string {
	return w.version
}

func (w *Worker) ScriptURL() string {
	return w.scriptURL
}

func (w *Worker) Manifest() cache.Manifest {
	return w.manifest
}

func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// PostMessage delivers a control message to the worker.
func (w *Worker) PostMessage(msg Message) {
	w.host.handleMessage(w, msg)
}

func (w *Worker) transition(from, to State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != from {
		return false
	}
	w.state = to
	return true
}

// ServeHTTP is the worker's fetch handler: precached URLs come from the
// precache, same-origin static assets are stale-while-revalidate, anything
// else goes to the network.
func (w *Worker) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h := w.host
	if r.Method != http.MethodGet || !h.sameOrigin(r) {
		h.proxy.ServeHTTP(rw, r)
		return
	}

	if _, ok := w.manifest.Lookup(r.URL.Path); ok {
		entry, err := h.storage.Get(r.Context(), cache.PrecacheName(w.version), r.URL.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", r.URL.Path).Msg("precache lookup failed")
		}
		if entry != nil {
			metrics.RecordCacheLookup("precache", "hit")
			writeEntry(rw, entry, "precache")
			return
		}
		metrics.RecordCacheLookup("precache", "miss")
	}

	if strings.HasPrefix(r.URL.Path, h.staticPrefix) {
		w.staleWhileRevalidate(rw, r)
		return
	}
	h.proxy.ServeHTTP(rw, r)
}

func (w *Worker) staleWhileRevalidate(rw http.ResponseWriter, r *http.Request) {
	h := w.host
	key := r.URL.RequestURI()

	cached, err := h.storage.Get(r.Context(), cache.RuntimeCache, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("runtime cache lookup failed")
	}
	if cached != nil {
		metrics.RecordCacheLookup("stale_while_revalidate", "hit")
		writeEntry(rw, cached, "hit")
		h.revalidate(key)
		return
	}

	metrics.RecordCacheLookup("stale_while_revalidate", "miss")
	fresh, err := h.fetch(r.Context(), key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("network fetch failed")
		http.Error(rw, "upstream unavailable", http.StatusBadGateway)
		return
	}
	if fresh.Status == http.StatusOK {
		if err := h.storage.Put(r.Context(), cache.RuntimeCache, key, fresh); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("could not cache response")
		}
	}
	writeEntry(rw, fresh, "miss")
}

// revalidate refreshes key in the background, throttled by the limiter.
func (h *Host) revalidate(key string) {
	if !h.limiter.Allow() {
		metrics.RecordCacheLookup("stale_while_revalidate", "revalidate_throttled")
		return
	}
	h.revalidations.Add(1)
	go func() {
		defer h.revalidations.Done()
		ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
		defer cancel()

		fresh, err := h.fetch(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("key", key).Msg("revalidation failed")
			return
		}
		if fresh.Status != http.StatusOK {
			return
		}
		if err := h.storage.Put(ctx, cache.RuntimeCache, key, fresh); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("could not store revalidated response")
			return
		}
		metrics.RecordCacheLookup("stale_while_revalidate", "revalidated")
	}()
}

func (h *Host) sameOrigin(r *http.Request) bool {
	return r.URL.Host == "" || strings.EqualFold(r.URL.Host, h.origin.Host)
}

func writeEntry(rw http.ResponseWriter, entry *cache.Entry, outcome string) {
	for k, vs := range entry.Header {
		for _, v := range vs {
			rw.Header().Add(k, v)
		}
	}
	rw.Header().Set(cacheHeader, outcome)
	status := entry.Status
	if status == 0 {
		status = http.StatusOK
	}
	rw.WriteHeader(status)
	_, _ = rw.Write(entry.Body)
}
