// Package api describes the carpool backend as consumed by the client and
// provides an HTTP implementation.
package api

import (
	"context"

	"github.com/jrsteele09/carpool-client/debt"
	"github.com/jrsteele09/carpool-client/trips"
	"github.com/jrsteele09/carpool-client/users"
)

const StateOK = "OK"

// Response codes carried in Envelope.Messages or LoginResult.Status
const (
	CodePendingVerification = "PENDING_VERIFICATION"
	CodePendingProfile      = "PENDING_PROFILE"
	StatusActive            = "ACTIVE"
)

// Envelope is the backend's response wrapper.
type Envelope[T any] struct {
	State    string   `json:"state"`
	Messages []string `json:"messages,omitempty"`
	Data     T        `json:"data"`
}

func (e Envelope[T]) OK() bool {
	return e.State == StateOK
}

// Message returns messages[i] or "".
func (e Envelope[T]) Message(i int) string {
	if i < 0 || i >= len(e.Messages) {
		return ""
	}
	return e.Messages[i]
}

// Identity is the lightweight identity check result.
type Identity struct {
	Username string           `json:"username"`
	Roles    []users.RoleType `json:"roles"`
}

// LoginResult is the data block of the login and google-auth responses.
type LoginResult struct {
	AccessToken string `json:"accessToken,omitempty"`
	Status      string `json:"status,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Credentials for the password login.
type Credentials struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	RecaptchaToken string `json:"recaptchaToken,omitempty"`
}

// Backend is the subset of the carpool API the session core uses.
// Me returns (nil, nil) when the backend answers without identity data.
type Backend interface {
	Me(ctx context.Context) (*Identity, error)
	FullProfile(ctx context.Context) (Envelope[*users.User], error)
	Debt(ctx context.Context) (Envelope[*debt.Status], error)
	ProfileImage(ctx context.Context) (Envelope[string], error)
	Login(ctx context.Context, credentials Credentials) (Envelope[*LoginResult], error)
	AuthGoogle(ctx context.Context, idToken string) (Envelope[*LoginResult], error)
	Logout(ctx context.Context) error
	DriverTrips(ctx context.Context) (Envelope[[]trips.TripDriver], error)
}
