package bootstrap

import (
	"context"
	"sync"

	"github.com/jrsteele09/carpool-client/api"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/jrsteele09/carpool-client/users"
	"github.com/rs/zerolog/log"
)

// Enricher reacts to session transitions: a new partial session triggers one
// full-profile fetch, a newly known user id triggers one profile-image fetch.
type Enricher struct {
	backend api.Backend
	store   *session.Store

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewEnricher(backend api.Backend, store *session.Store) *Enricher {
	return &Enricher{backend: backend, store: store}
}

// Start subscribes to the store. Fetches use ctx.
func (e *Enricher) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unsubscribe != nil {
		return
	}
	e.ctx = ctx
	e.unsubscribe = e.store.Subscribe(e.observe)
}

// Close unsubscribes and waits for in-flight fetches.
func (e *Enricher) Close() {
	e.mu.Lock()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// Wait blocks until every fetch started so far has finished.
func (e *Enricher) Wait() {
	e.wg.Wait()
}

func (e *Enricher) observe(ev session.Event) {
	e.mu.Lock()
	ctx := e.ctx
	e.mu.Unlock()

	if ev.Has(session.SessionPartial) {
		username := ev.Current.User.Username
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.fetchFullProfile(ctx, username)
		}()
	}
	if ev.Has(session.SessionIdentified) {
		id := *ev.Current.User.ID
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.loadProfileImage(ctx, id)
		}()
	}
}

func (e *Enricher) fetchFullProfile(ctx context.Context, username string) {
	env, err := e.backend.FullProfile(ctx)
	if err != nil {
		log.Err(err).Str("username", username).Msg("full profile fetch failed")
		return
	}
	if !env.OK() || env.Data == nil {
		return
	}
	e.store.UpdateUser(func(prev *users.User) *users.User {
		// The session may have been cleared or replaced while the fetch was in flight.
		if prev == nil || prev.Username != username {
			log.Debug().Str("username", username).Msg("dropping stale full profile")
			return prev
		}
		return users.Merge(prev, env.Data)
	})
}

func (e *Enricher) loadProfileImage(ctx context.Context, id int64) {
	env, err := e.backend.ProfileImage(ctx)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", id).Msg("could not load profile image")
		return
	}
	if env.Data == "" {
		return
	}
	e.store.UpdateUser(func(prev *users.User) *users.User {
		if prev == nil || prev.ID == nil || *prev.ID != id {
			return prev
		}
		return prev.WithProfileImage(env.Data)
	})
}
