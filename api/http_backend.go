package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/carpool-client/debt"
	apperrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/trips"
	"github.com/jrsteele09/carpool-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 1 << 20

// Client talks to the backend over HTTP. Requests carry the session cookie
// jar, mirroring a browser's credentialed fetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
}

var _ Backend = (*Client)(nil)

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar should be set
// for cookie-based sessions to work.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBearer attaches "Authorization: Bearer <token>" whenever token returns a non-empty value.
func WithBearer(token func() string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// NewClient creates a Client for baseURL with its own cookie jar.
func NewClient(baseURL string, timeout time.Duration, options ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("[NewClient] baseURL is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "[NewClient] cookiejar.New")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Jar: jar, Timeout: timeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Me(ctx context.Context) (*Identity, error) {
	var env Envelope[*Identity]
	status, err := c.do(ctx, http.MethodGet, RouteMe, nil, &env)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, apperrors.Wrapf(apperrors.Mark(apperrors.ErrBackendStatus, apperrors.ErrNotAuthenticated), "[Client.Me] status %d", status)
	}
	if !success(status) {
		return nil, apperrors.Wrapf(apperrors.ErrBackendStatus, "[Client.Me] status %d", status)
	}
	return env.Data, nil
}

func (c *Client) FullProfile(ctx context.Context) (Envelope[*users.User], error) {
	var env Envelope[*users.User]
	if _, err := c.do(ctx, http.MethodGet, RouteUsers, nil, &env); err != nil {
		return env, errors.Wrap(err, "[Client.FullProfile]")
	}
	return env, nil
}

func (c *Client) Debt(ctx context.Context) (Envelope[*debt.Status], error) {
	var env Envelope[*debt.Status]
	status, err := c.do(ctx, http.MethodGet, RouteUserDebt, nil, &env)
	if err != nil {
		return env, errors.Wrap(err, "[Client.Debt]")
	}
	if !success(status) {
		return env, apperrors.Wrapf(apperrors.ErrBackendStatus, "[Client.Debt] status %d", status)
	}
	return env, nil
}

func (c *Client) ProfileImage(ctx context.Context) (Envelope[string], error) {
	var env Envelope[string]
	status, err := c.do(ctx, http.MethodGet, RouteUserFile, nil, &env)
	if err != nil {
		return env, errors.Wrap(err, "[Client.ProfileImage]")
	}
	if !success(status) {
		return env, apperrors.Wrapf(apperrors.ErrBackendStatus, "[Client.ProfileImage] status %d", status)
	}
	return env, nil
}

// Login posts the credentials. Business failures arrive as a decoded envelope
// whatever the HTTP status; only transport and decoding problems are errors.
func (c *Client) Login(ctx context.Context, credentials Credentials) (Envelope[*LoginResult], error) {
	var env Envelope[*LoginResult]
	if _, err := c.do(ctx, http.MethodPost, RouteAuthLogin, credentials, &env); err != nil {
		return env, errors.Wrap(err, "[Client.Login]")
	}
	return env, nil
}

func (c *Client) AuthGoogle(ctx context.Context, idToken string) (Envelope[*LoginResult], error) {
	var env Envelope[*LoginResult]
	body := map[string]string{"idToken": idToken}
	if _, err := c.do(ctx, http.MethodPost, RouteAuthGoogle, body, &env); err != nil {
		return env, errors.Wrap(err, "[Client.AuthGoogle]")
	}
	return env, nil
}

func (c *Client) Logout(ctx context.Context) error {
	status, err := c.do(ctx, http.MethodPost, RouteAuthLogout, nil, nil)
	if err != nil {
		return errors.Wrap(err, "[Client.Logout]")
	}
	if !success(status) {
		return apperrors.Wrapf(apperrors.ErrBackendStatus, "[Client.Logout] status %d", status)
	}
	return nil
}

func (c *Client) DriverTrips(ctx context.Context) (Envelope[[]trips.TripDriver], error) {
	var env Envelope[[]trips.TripDriver]
	if _, err := c.do(ctx, http.MethodGet, RouteDriverTrips, nil, &env); err != nil {
		return env, errors.Wrap(err, "[Client.DriverTrips]")
	}
	return env, nil
}

// do performs the request and decodes a JSON body into out when out is not nil.
// An empty body leaves out untouched.
func (c *Client) do(ctx context.Context, method, route string, in any, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+route, body)
	if err != nil {
		return 0, errors.Wrap(err, "new request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	log.Debug().Str("method", method).Str("route", route).Int("status", resp.StatusCode).Msg("backend request")

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return resp.StatusCode, nil
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, errors.Wrap(err, "read body")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, apperrors.Wrapf(apperrors.ErrInvalidPayload, "decode %s %s (status %d): %v", method, route, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// String implements fmt.Stringer for logging.
func (c *Client) String() string {
	return fmt.Sprintf("api.Client(%s)", c.baseURL)
}
