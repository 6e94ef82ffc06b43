// Package bootstrap restores the session on application load and keeps the
// partial identity enriched with the full profile.
package bootstrap

import (
	"context"
	"sync"

	"github.com/jrsteele09/carpool-client/api"
	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/jrsteele09/carpool-client/nav"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/jrsteele09/carpool-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Sequencer runs the startup sequence exactly once per instance:
// identity check, debt fetch, loading cleared, optional redirect to login.
type Sequencer struct {
	backend api.Backend
	store   *session.Store
	router  nav.Router
	routes  config.RoutesConfig
	once    sync.Once
}

func NewSequencer(backend api.Backend, store *session.Store, router nav.Router, routes config.RoutesConfig) (*Sequencer, error) {
	if backend == nil {
		return nil, errors.New("[NewSequencer] backend is required")
	}
	if store == nil {
		return nil, errors.New("[NewSequencer] store is required")
	}
	if router == nil {
		return nil, errors.New("[NewSequencer] router is required")
	}
	if routes == nil {
		return nil, errors.New("[NewSequencer] routes are required")
	}
	return &Sequencer{backend: backend, store: store, router: router, routes: routes}, nil
}

// Run executes the sequence. Only the first call does any work; it reports
// whether this call was the one that ran.
func (s *Sequencer) Run(ctx context.Context) (ran bool) {
	s.once.Do(func() {
		ran = true
		s.run(ctx)
	})
	return ran
}

func (s *Sequencer) run(ctx context.Context) {
	var hasUser bool
	func() {
		defer s.store.SetLoading(false)
		hasUser = s.FetchUser(ctx)
		if hasUser {
			s.FetchDebt(ctx)
		}
	}()

	path := s.router.Path()
	if !hasUser && !nav.MatchesAny(s.routes.GetPublicRoutes(), path) {
		log.Info().Str("path", path).Msg("no session on a protected route, redirecting to login")
		metrics.RecordRedirect("unauthenticated")
		s.router.Replace(s.routes.GetLoginRoute())
	}

	outcome := "anonymous"
	if hasUser {
		outcome = "authenticated"
	}
	metrics.RecordBootstrap(outcome)
}

// FetchUser runs the credentialed identity check. On success the store
// holds a partial session; on any failure the session is cleared.
func (s *Sequencer) FetchUser(ctx context.Context) bool {
	identity, err := s.backend.Me(ctx)
	if err != nil {
		log.Err(err).Msg("identity check failed")
		s.store.SetUser(nil)
		return false
	}
	if identity == nil || identity.Username == "" {
		s.store.SetUser(nil)
		return false
	}
	s.store.SetUser(users.Partial(identity.Username, identity.Roles))
	return true
}

// FetchDebt refreshes the debt status. It never runs without a session and
// degrades to a nil status on any failure.
func (s *Sequencer) FetchDebt(ctx context.Context) {
	if s.store.User() == nil {
		log.Debug().Msg("skipping debt fetch without a session")
		return
	}
	env, err := s.backend.Debt(ctx)
	if err != nil {
		log.Err(err).Msg("debt fetch failed")
		s.store.SetDebt(nil)
		return
	}
	if !env.OK() || env.Data == nil {
		s.store.SetDebt(nil)
		return
	}
	s.store.SetDebt(env.Data)
}
