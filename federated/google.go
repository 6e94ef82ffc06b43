// Package federated obtains a verified Google ID token through the OAuth2
// authorization-code flow with PKCE.
package federated

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"github.com/jrsteele09/carpool-client/internal/config"
	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// AuthRequest is one pending authorization. It must be kept until the
// authorization code comes back.
type AuthRequest struct {
	URL      string
	State    string
	Nonce    string
	Verifier string
}

// Identity holds the verified ID token claims the client cares about.
type Identity struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Nonce   string `json:"nonce"`
}

// Google drives the Google sign-in flow.
type Google struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// GoogleOption defines a function type to modify the Google instance.
type GoogleOption func(*Google)

// WithEndpoint skips provider discovery for the OAuth2 endpoints.
func WithEndpoint(endpoint oauth2.Endpoint) GoogleOption {
	return func(g *Google) {
		g.oauth2Config.Endpoint = endpoint
	}
}

// WithVerifier skips provider discovery for ID token verification.
func WithVerifier(verifier *oidc.IDTokenVerifier) GoogleOption {
	return func(g *Google) {
		g.verifier = verifier
	}
}

// NewGoogle builds the flow from configuration. The issuer is discovered
// unless both WithEndpoint and WithVerifier are given.
func NewGoogle(ctx context.Context, cfg config.FederatedConfig, options ...GoogleOption) (*Google, error) {
	if cfg.GetGoogleClientID() == "" {
		return nil, errors.New("[NewGoogle] google client id is required")
	}

	g := &Google{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.GetGoogleClientID(),
			ClientSecret: cfg.GetGoogleClientSecret(),
			RedirectURL:  cfg.GetGoogleRedirectURL(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}
	for _, opt := range options {
		opt(g)
	}

	if g.verifier == nil || g.oauth2Config.Endpoint.TokenURL == "" {
		provider, err := oidc.NewProvider(ctx, cfg.GetGoogleIssuer())
		if err != nil {
			return nil, errors.Wrap(err, "[NewGoogle] failed to create OIDC provider")
		}
		if g.oauth2Config.Endpoint.TokenURL == "" {
			g.oauth2Config.Endpoint = provider.Endpoint()
		}
		if g.verifier == nil {
			g.verifier = provider.Verifier(&oidc.Config{ClientID: g.oauth2Config.ClientID})
		}
	}
	return g, nil
}

// Begin starts an authorization and returns the URL the user must visit.
func (g *Google) Begin() *AuthRequest {
	req := &AuthRequest{
		State:    uuid.NewString(),
		Nonce:    uuid.NewString(),
		Verifier: oauth2.GenerateVerifier(),
	}
	req.URL = g.oauth2Config.AuthCodeURL(req.State,
		oauth2.S256ChallengeOption(req.Verifier),
		oidc.Nonce(req.Nonce),
	)
	return req
}

// Exchange trades the authorization code for tokens and returns the raw,
// verified ID token.
func (g *Google) Exchange(ctx context.Context, req *AuthRequest, state, code string) (string, *Identity, error) {
	if req == nil {
		return "", nil, errors.Wrap(carpoolerrors.ErrGoogleFailed, "[Google.Exchange] no pending authorization")
	}
	if state != req.State {
		return "", nil, errors.Wrap(carpoolerrors.ErrGoogleFailed, "[Google.Exchange] state mismatch")
	}
	if code == "" {
		return "", nil, errors.Wrap(carpoolerrors.ErrGoogleFailed, "[Google.Exchange] missing authorization code")
	}

	token, err := g.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(req.Verifier))
	if err != nil {
		return "", nil, errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrGoogleFailed), "[Google.Exchange] token exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", nil, errors.Wrap(carpoolerrors.ErrGoogleFailed, "[Google.Exchange] no ID token in response")
	}

	idToken, err := g.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", nil, errors.Wrap(carpoolerrors.Mark(err, carpoolerrors.ErrGoogleFailed), "[Google.Exchange] ID token verification failed")
	}

	var identity Identity
	if err := idToken.Claims(&identity); err != nil {
		return "", nil, errors.Wrap(err, "[Google.Exchange] failed to extract claims")
	}
	if identity.Nonce != req.Nonce {
		return "", nil, errors.Wrap(carpoolerrors.ErrGoogleFailed, "[Google.Exchange] invalid nonce")
	}

	log.Debug().Str("subject", identity.Subject).Str("email", identity.Email).Msg("google ID token verified")
	return rawIDToken, &identity, nil
}
