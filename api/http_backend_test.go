package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/carpool-client/api"
	apperrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/stretchr/testify/require"
)

const sessionCookie = "carpool_session"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(api.RouteAuthLogin, func(w http.ResponseWriter, r *http.Request) {
		var creds api.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"state":"ERROR","messages":["BAD_CREDENTIALS"]}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "s-1", Path: "/"})
		_, _ = w.Write([]byte(`{"state":"OK","data":{"accessToken":"tok-1"}}`))
	})
	mux.HandleFunc(api.RouteMe, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err != nil || c.Value != "s-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"username":"ana","roles":["USER"]}}`))
	})
	mux.HandleFunc(api.RouteUserDebt, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"OK","data":{"debtUser":true,"amount":1500.5}}`))
	})
	mux.HandleFunc(api.RouteUsers, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"state":"OK","data":{"id":42,"name":"Ana","email":"ana@example.com"}}`))
	})
	mux.HandleFunc(api.RouteUserFile, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"state":"OK","data":"https://cdn.example.com/ana.png"}`))
	})
	mux.HandleFunc(api.RouteAuthLogout, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc(api.RouteDriverTrips, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCookieSession(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = c.Me(ctx)
	require.ErrorIs(t, err, apperrors.ErrBackendStatus)
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)

	env, err := c.Login(ctx, api.Credentials{Email: "ana@example.com", Password: "secret"})
	require.NoError(t, err)
	require.True(t, env.OK())
	require.Equal(t, "tok-1", env.Data.AccessToken)

	id, err := c.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "ana", id.Username)
	require.Len(t, id.Roles, 1)
}

func TestClientLoginFailureIsAnEnvelope(t *testing.T) {
	srv := newTestServer(t)
	c, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	env, err := c.Login(context.Background(), api.Credentials{Email: "ana@example.com", Password: "wrong"})
	require.NoError(t, err)
	require.False(t, env.OK())
	require.Equal(t, "BAD_CREDENTIALS", env.Message(0))
	require.Equal(t, "", env.Message(1))
}

func TestClientDebtAndProfile(t *testing.T) {
	srv := newTestServer(t)
	c, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	d, err := c.Debt(context.Background())
	require.NoError(t, err)
	require.True(t, d.OK())
	require.True(t, d.Data.DebtUser)
	require.InDelta(t, 1500.5, d.Data.Amount, 0.001)

	p, err := c.FullProfile(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(42), *p.Data.ID)
	require.Equal(t, "Ana", p.Data.Name)
}

func TestClientBearer(t *testing.T) {
	srv := newTestServer(t)
	c, err := api.NewClient(srv.URL, time.Second, api.WithBearer(func() string { return "tok-1" }))
	require.NoError(t, err)

	img, err := c.ProfileImage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/ana.png", img.Data)
}

func TestClientErrors(t *testing.T) {
	srv := newTestServer(t)
	c, err := api.NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	require.ErrorIs(t, c.Logout(context.Background()), apperrors.ErrBackendStatus)

	_, err = c.DriverTrips(context.Background())
	require.ErrorIs(t, err, apperrors.ErrInvalidPayload)

	_, err = api.NewClient("", time.Second)
	require.Error(t, err)
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := api.NewClient(url, time.Second)
	require.NoError(t, err)
	_, err = c.Me(context.Background())
	require.Error(t, err)
}
