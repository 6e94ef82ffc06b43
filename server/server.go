// Package server exposes the in-process worker host over HTTP: requests for
// the app origin go through the active worker, and a small control surface
// drives push delivery, notification clicks and worker updates.
package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/push"
	"github.com/jrsteele09/carpool-client/worker"
)

type Server struct {
	env           string
	router        *mux.Router
	routes        []string
	config        config.WorkerConfig
	host          *worker.Host
	push          *push.Handler
	notifications *push.LogNotifier
}

func New(cfg config.Config, host *worker.Host, pushHandler *push.Handler, notifications *push.LogNotifier) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[server.New] config is nil")
	}
	if host == nil {
		return nil, errors.New("[server.New] worker host is nil")
	}
	if pushHandler == nil {
		return nil, errors.New("[server.New] push handler is nil")
	}
	if notifications == nil {
		return nil, errors.New("[server.New] notifier is nil")
	}

	s := &Server{
		env:           cfg.GetEnv(),
		router:        mux.NewRouter(),
		config:        cfg,
		host:          host,
		push:          pushHandler,
		notifications: notifications,
	}
	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RegisterRouteFunc registers handler for a "METHOD /path" pattern.
func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	method, path, ok := strings.Cut(pattern, " ")
	if !ok {
		s.router.HandleFunc(pattern, handler)
		return
	}
	s.router.HandleFunc(path, handler).Methods(method)
}

// RegisterPrefixHandler registers handler for every path under prefix.
func (s *Server) RegisterPrefixHandler(prefix string, handler http.Handler) {
	s.routes = append(s.routes, prefix+"*")
	s.router.PathPrefix(prefix).Handler(handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
