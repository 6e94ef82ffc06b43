package push

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LogNotifier "displays" notifications by logging them and keeping them
// until closed.
type LogNotifier struct {
	mu   sync.Mutex
	open map[string]*LoggedNotification
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{open: make(map[string]*LoggedNotification)}
}

// LoggedNotification is a notification shown by a LogNotifier.
type LoggedNotification struct {
	ID       string
	n        Notification
	notifier *LogNotifier
}

func (l *LoggedNotification) Notification() Notification {
	return l.n
}

func (l *LoggedNotification) Close() {
	l.notifier.mu.Lock()
	defer l.notifier.mu.Unlock()
	delete(l.notifier.open, l.ID)
}

func (ln *LogNotifier) Show(_ context.Context, n Notification) (Displayed, error) {
	shown := &LoggedNotification{ID: uuid.NewString(), n: n, notifier: ln}
	ln.mu.Lock()
	ln.open[shown.ID] = shown
	ln.mu.Unlock()

	log.Info().Str("id", shown.ID).Str("title", n.Title).Str("body", n.Body).Msg("notification")
	return shown, nil
}

// Get returns an open notification by id.
func (ln *LogNotifier) Get(id string) (*LoggedNotification, bool) {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	n, ok := ln.open[id]
	return n, ok
}

// Open returns the notifications not yet closed.
func (ln *LogNotifier) Open() []*LoggedNotification {
	ln.mu.Lock()
	defer ln.mu.Unlock()
	out := make([]*LoggedNotification, 0, len(ln.open))
	for _, n := range ln.open {
		out = append(out, n)
	}
	return out
}

// Window is an in-process window client.
type Window struct {
	ID  string
	url string

	registry *WindowRegistry
}

func (w *Window) URL() string {
	return w.url
}

func (w *Window) Focus(context.Context) error {
	w.registry.mu.Lock()
	defer w.registry.mu.Unlock()
	w.registry.focused = w.ID
	log.Debug().Str("window", w.ID).Str("url", w.url).Msg("window focused")
	return nil
}

// WindowRegistry tracks the windows of a headless client. Relative URLs
// passed to OpenWindow resolve against origin.
type WindowRegistry struct {
	origin string

	mu      sync.Mutex
	windows []*Window
	focused string
}

func NewWindowRegistry(origin string) *WindowRegistry {
	return &WindowRegistry{origin: strings.TrimRight(origin, "/")}
}

// Add registers an already open window.
func (r *WindowRegistry) Add(url string) *Window {
	w := &Window{ID: uuid.NewString(), url: r.resolve(url), registry: r}
	r.mu.Lock()
	r.windows = append(r.windows, w)
	r.mu.Unlock()
	return w
}

func (r *WindowRegistry) Windows(context.Context) ([]WindowClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]WindowClient, 0, len(r.windows))
	for _, w := range r.windows {
		out = append(out, w)
	}
	return out, nil
}

func (r *WindowRegistry) OpenWindow(ctx context.Context, url string) (WindowClient, error) {
	w := r.Add(url)
	log.Info().Str("url", w.url).Msg("window opened")
	return w, w.Focus(ctx)
}

// Focused returns the id of the focused window, or "".
func (r *WindowRegistry) Focused() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.focused
}

func (r *WindowRegistry) resolve(url string) string {
	if strings.HasPrefix(url, "/") {
		return r.origin + url
	}
	return url
}
