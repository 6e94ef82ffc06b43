// Package push handles background push messages and notification clicks on
// behalf of the worker.
package push

import (
	"context"
	"strings"

	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// Notification is what the worker asks the platform to display.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body,omitempty"`
	Icon  string            `json:"icon,omitempty"`
	Badge string            `json:"badge,omitempty"`
	Data  map[string]string `json:"data,omitempty"`
}

// Displayed is a notification currently on screen.
type Displayed interface {
	Notification() Notification
	Close()
}

// Notifier displays notifications.
type Notifier interface {
	Show(ctx context.Context, n Notification) (Displayed, error)
}

// WindowClient is an open application window.
type WindowClient interface {
	URL() string
	Focus(ctx context.Context) error
}

// Clients enumerates and opens application windows.
type Clients interface {
	Windows(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) (WindowClient, error)
}

// Handler is the worker's push side.
type Handler struct {
	origin   string
	icon     string
	notifier Notifier
	clients  Clients
}

func NewHandler(origin string, notifier Notifier, clients Clients, cfg config.WorkerConfig) (*Handler, error) {
	if origin == "" {
		return nil, errors.New("[NewHandler] origin is required")
	}
	if notifier == nil {
		return nil, errors.New("[NewHandler] notifier is required")
	}
	if clients == nil {
		return nil, errors.New("[NewHandler] clients are required")
	}
	if cfg == nil {
		return nil, errors.New("[NewHandler] worker config is required")
	}
	return &Handler{
		origin:   strings.TrimRight(origin, "/"),
		icon:     cfg.GetNotificationIcon(),
		notifier: notifier,
		clients:  clients,
	}, nil
}

// HandleBackground processes a background push message. Messages that
// already carry a notification were displayed by the platform and are
// skipped; otherwise a notification is shown when the data has a title.
// The displayed notification is nil when nothing was shown.
func (h *Handler) HandleBackground(ctx context.Context, message []byte) (Displayed, error) {
	if !gjson.ValidBytes(message) {
		return nil, errors.New("[Handler.HandleBackground] push message is not valid JSON")
	}
	if gjson.GetBytes(message, "notification").Exists() {
		log.Debug().Msg("push message already displayed by the platform")
		return nil, nil
	}

	data := gjson.GetBytes(message, "data")
	title := data.Get("title").String()
	if title == "" {
		log.Debug().Msg("push message without title, nothing to show")
		return nil, nil
	}

	n := Notification{
		Title: title,
		Body:  data.Get("body").String(),
		Icon:  h.icon,
		Badge: h.icon,
		Data:  make(map[string]string),
	}
	data.ForEach(func(key, value gjson.Result) bool {
		n.Data[key.String()] = value.String()
		return true
	})

	displayed, err := h.notifier.Show(ctx, n)
	if err != nil {
		return nil, errors.Wrap(err, "[Handler.HandleBackground] show notification")
	}
	metrics.RecordWorkerEvent("notification_shown")
	return displayed, nil
}

// HandleClick closes the notification and brings the app forward: the first
// window on the app origin is focused, otherwise a new window opens at "/".
func (h *Handler) HandleClick(ctx context.Context, n Displayed) error {
	if n != nil {
		n.Close()
	}

	windows, err := h.clients.Windows(ctx)
	if err != nil {
		return errors.Wrap(err, "[Handler.HandleClick] list windows")
	}
	for _, w := range windows {
		if h.sameOrigin(w.URL()) {
			return errors.Wrap(w.Focus(ctx), "[Handler.HandleClick] focus window")
		}
	}
	if _, err := h.clients.OpenWindow(ctx, "/"); err != nil {
		return errors.Wrap(err, "[Handler.HandleClick] open window")
	}
	return nil
}

func (h *Handler) sameOrigin(url string) bool {
	return url == h.origin || strings.HasPrefix(url, h.origin+"/")
}
