package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/push"
	"github.com/jrsteele09/carpool-client/worker"
)

const maxPushBody = 64 << 10

// WorkerStatus describes one worker version.
type WorkerStatus struct {
	Version   string       `json:"version"`
	ScriptURL string       `json:"scriptURL"`
	State     worker.State `json:"state"`
}

// HostStatus is the body of GET /worker/status.
type HostStatus struct {
	Supported  bool          `json:"supported"`
	Controller *WorkerStatus `json:"controller,omitempty"`
	Waiting    *WorkerStatus `json:"waiting,omitempty"`
}

// PushResult is the body of an accepted push.
type PushResult struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func (s *Server) WorkerStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.status())
	}
}

// WorkerMessageHandler posts a control message to the waiting worker.
func (s *Server) WorkerMessageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var msg worker.Message
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || msg.Type == "" {
			http.Error(w, "invalid worker message", http.StatusBadRequest)
			return
		}
		waiting := s.host.Waiting()
		if waiting == nil {
			http.Error(w, "no waiting worker", http.StatusConflict)
			return
		}
		waiting.PostMessage(msg)
		writeJSON(w, http.StatusAccepted, s.status())
	}
}

// WorkerUpdateHandler re-registers the worker script, installing a new
// version when the script changed.
func (s *Server) WorkerUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.host.Register(r.Context(), s.config.GetWorkerScript()); err != nil {
			log.Err(err).Msg("worker update failed")
			status := http.StatusInternalServerError
			if carpoolerrors.Is(err, carpoolerrors.ErrInstallFailed) {
				status = http.StatusBadGateway
			}
			http.Error(w, "worker update failed", status)
			return
		}
		writeJSON(w, http.StatusOK, s.status())
	}
}

// PushHandler delivers a background push message to the worker.
func (s *Server) PushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPushBody))
		if err != nil {
			http.Error(w, "push message too large", http.StatusRequestEntityTooLarge)
			return
		}
		displayed, err := s.push.HandleBackground(r.Context(), body)
		if err != nil {
			log.Err(err).Msg("push message rejected")
			http.Error(w, "invalid push message", http.StatusBadRequest)
			return
		}
		if displayed == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		result := PushResult{Title: displayed.Notification().Title}
		if logged, ok := displayed.(*push.LoggedNotification); ok {
			result.ID = logged.ID
		}
		writeJSON(w, http.StatusCreated, result)
	}
}

func (s *Server) NotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open := s.notifications.Open()
		results := make([]PushResult, 0, len(open))
		for _, n := range open {
			results = append(results, PushResult{ID: n.ID, Title: n.Notification().Title})
		}
		writeJSON(w, http.StatusOK, results)
	}
}

// NotificationClickHandler performs the click behaviour for an open notification.
func (s *Server) NotificationClickHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, ok := s.notifications.Get(mux.Vars(r)["id"])
		if !ok {
			http.Error(w, "notification not found", http.StatusNotFound)
			return
		}
		if err := s.push.HandleClick(r.Context(), n); err != nil {
			log.Err(err).Str("id", n.ID).Msg("notification click failed")
			http.Error(w, "notification click failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) status() HostStatus {
	return HostStatus{
		Supported:  s.host.Supported(),
		Controller: workerStatus(s.host.Controller()),
		Waiting:    workerStatus(s.host.Waiting()),
	}
}

func workerStatus(w *worker.Worker) *WorkerStatus {
	if w == nil {
		return nil
	}
	return &WorkerStatus{Version: w.Version(), ScriptURL: w.ScriptURL(), State: w.State()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write response")
	}
}
