package apifake

import (
	"context"
	"sync"

	"github.com/jrsteele09/carpool-client/api"
	"github.com/jrsteele09/carpool-client/debt"
	"github.com/jrsteele09/carpool-client/trips"
	"github.com/jrsteele09/carpool-client/users"
)

var _ api.Backend = (*FakeBackend)(nil)

// FakeBackend is a scripted, in-memory api.Backend. Each call returns the
// configured response; calls are counted per method.
type FakeBackend struct {
	lock  sync.Mutex
	calls map[string]int

	MeIdentity *api.Identity
	MeErr      error

	Profile    api.Envelope[*users.User]
	ProfileErr error

	DebtResponse api.Envelope[*debt.Status]
	DebtErr      error

	Image    api.Envelope[string]
	ImageErr error

	LoginResponse api.Envelope[*api.LoginResult]
	LoginErr      error

	GoogleResponse api.Envelope[*api.LoginResult]
	GoogleErr      error

	LogoutErr error

	Trips    api.Envelope[[]trips.TripDriver]
	TripsErr error

	// Hold, when set, blocks FullProfile until it is closed.
	Hold chan struct{}

	LastCredentials api.Credentials
	LastIDToken     string
}

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{calls: make(map[string]int)}
}

// Calls returns how many times method was invoked.
func (f *FakeBackend) Calls(method string) int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls[method]
}

func (f *FakeBackend) record(method string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.calls[method]++
}

func (f *FakeBackend) Me(ctx context.Context) (*api.Identity, error) {
	f.record("Me")
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.MeErr != nil {
		return nil, f.MeErr
	}
	if f.MeIdentity == nil {
		return nil, nil
	}
	id := *f.MeIdentity
	return &id, nil
}

func (f *FakeBackend) FullProfile(ctx context.Context) (api.Envelope[*users.User], error) {
	f.record("FullProfile")
	if f.Hold != nil {
		select {
		case <-f.Hold:
		case <-ctx.Done():
			return api.Envelope[*users.User]{}, ctx.Err()
		}
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	env := f.Profile
	env.Data = env.Data.Clone()
	return env, f.ProfileErr
}

func (f *FakeBackend) Debt(ctx context.Context) (api.Envelope[*debt.Status], error) {
	f.record("Debt")
	f.lock.Lock()
	defer f.lock.Unlock()
	env := f.DebtResponse
	env.Data = env.Data.Clone()
	return env, f.DebtErr
}

func (f *FakeBackend) ProfileImage(ctx context.Context) (api.Envelope[string], error) {
	f.record("ProfileImage")
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.Image, f.ImageErr
}

func (f *FakeBackend) Login(ctx context.Context, credentials api.Credentials) (api.Envelope[*api.LoginResult], error) {
	f.record("Login")
	f.lock.Lock()
	defer f.lock.Unlock()
	f.LastCredentials = credentials
	return f.LoginResponse, f.LoginErr
}

func (f *FakeBackend) AuthGoogle(ctx context.Context, idToken string) (api.Envelope[*api.LoginResult], error) {
	f.record("AuthGoogle")
	f.lock.Lock()
	defer f.lock.Unlock()
	f.LastIDToken = idToken
	return f.GoogleResponse, f.GoogleErr
}

func (f *FakeBackend) Logout(ctx context.Context) error {
	f.record("Logout")
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.LogoutErr
}

func (f *FakeBackend) DriverTrips(ctx context.Context) (api.Envelope[[]trips.TripDriver], error) {
	f.record("DriverTrips")
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.Trips, f.TripsErr
}

// Set runs fn under the fake's lock so tests can change responses while
// background goroutines are calling it.
func (f *FakeBackend) Set(fn func(f *FakeBackend)) {
	f.lock.Lock()
	defer f.lock.Unlock()
	fn(f)
}
