// Package auth implements the interactive and federated login flows and
// logout on top of the session store.
package auth

import (
	"context"
	"net/url"

	"github.com/jrsteele09/carpool-client/api"
	"github.com/jrsteele09/carpool-client/internal/config"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/jrsteele09/carpool-client/internal/utils"
	"github.com/jrsteele09/carpool-client/nav"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SessionFetcher reloads the identity and debt status after a login.
type SessionFetcher interface {
	FetchUser(ctx context.Context) bool
	FetchDebt(ctx context.Context)
}

// Service drives login and logout.
type Service struct {
	backend api.Backend
	store   *session.Store
	router  nav.Router
	routes  config.RoutesConfig
	fetcher SessionFetcher
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithSessionFetcher replaces the fetcher used after a successful login.
func WithSessionFetcher(fetcher SessionFetcher) ServiceOption {
	return func(s *Service) {
		s.fetcher = fetcher
	}
}

// NewService initializes a Service. The fetcher is required unless supplied
// through WithSessionFetcher.
func NewService(backend api.Backend, store *session.Store, router nav.Router, routes config.RoutesConfig, options ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, errors.New("[NewService] backend is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] store is required")
	}
	if router == nil {
		return nil, errors.New("[NewService] router is required")
	}
	if routes == nil {
		return nil, errors.New("[NewService] routes are required")
	}

	s := &Service{backend: backend, store: store, router: router, routes: routes}
	for _, opt := range options {
		opt(s)
	}
	if s.fetcher == nil {
		return nil, errors.New("[NewService] session fetcher is required")
	}
	return s, nil
}

// Login performs the password login. Loading is true for the duration of
// the call and always false afterwards.
func (s *Service) Login(ctx context.Context, credentials api.Credentials) error {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	result, err := s.backend.Login(ctx, credentials)
	if err != nil {
		s.store.SetUser(nil)
		metrics.RecordLogin("password", "error")
		return errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrLoginFailed), "[Service.Login] backend login")
	}

	switch result.Message(0) {
	case api.CodePendingVerification:
		log.Info().Str("email", credentials.Email).Msg("login pending email verification")
		metrics.RecordLogin("password", "pending_verification")
		s.router.Push(s.routes.GetEmailVerifyRoute())
		return nil
	case api.CodePendingProfile:
		s.store.SetUser(nil)
		metrics.RecordLogin("password", "pending_profile")
		return loginError(api.CodePendingProfile, utils.FirstOr(result.Messages, 1, defaultLoginMessage))
	}

	if !result.OK() {
		s.store.SetUser(nil)
		metrics.RecordLogin("password", "rejected")
		return loginError("", utils.FirstOr(result.Messages, 0, defaultLoginMessage))
	}

	s.fetcher.FetchUser(ctx)
	s.fetcher.FetchDebt(ctx)
	if result.Data != nil && result.Data.AccessToken != "" {
		s.store.SetToken(result.Data.AccessToken)
	}
	metrics.RecordLogin("password", "ok")
	s.router.Push(s.routes.GetHomeRoute())
	return nil
}

// AuthGoogle exchanges a Google ID token for a backend session.
func (s *Service) AuthGoogle(ctx context.Context, idToken string) error {
	s.store.SetLoading(true)
	defer s.store.SetLoading(false)

	result, err := s.backend.AuthGoogle(ctx, idToken)
	if err != nil {
		log.Err(err).Msg("google login failed")
		s.store.SetUser(nil)
		metrics.RecordLogin("google", "error")
		return errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrGoogleFailed), "[Service.AuthGoogle] backend google auth")
	}
	if !result.OK() || result.Data == nil {
		s.store.SetUser(nil)
		metrics.RecordLogin("google", "rejected")
		return loginError("", utils.FirstOr(result.Messages, 0, defaultGoogleMessage))
	}

	s.fetcher.FetchUser(ctx)
	s.fetcher.FetchDebt(ctx)
	if result.Data.AccessToken != "" {
		s.store.SetToken(result.Data.AccessToken)
	}
	metrics.RecordLogin("google", "ok")

	switch result.Data.Status {
	case api.CodePendingProfile:
		s.router.Push(s.routes.GetCompleteProfileRoute() + "?email=" + url.QueryEscape(result.Data.Email))
	case api.StatusActive:
		s.router.Push(s.routes.GetHomeRoute())
	default:
		log.Warn().Str("status", result.Data.Status).Msg("google login returned an unhandled account status")
	}
	return nil
}

// Logout ends the backend session. The local session is always cleared,
// even when the backend call fails.
func (s *Service) Logout(ctx context.Context) {
	if err := s.backend.Logout(ctx); err != nil {
		log.Err(err).Msg("backend logout failed")
	}
	s.store.Clear()
	s.router.Push(s.routes.GetLoginRoute())
}
