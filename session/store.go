package session

import (
	"sync"

	"github.com/jrsteele09/carpool-client/debt"
	"github.com/jrsteele09/carpool-client/users"
)

// Snapshot is a point-in-time copy of the store's state.
type Snapshot struct {
	User    *users.User
	Debt    *debt.Status
	Loading bool
	Token   *Token
}

// AccessToken returns the raw bearer token, or "" when none is held.
func (s Snapshot) AccessToken() string {
	if s.Token == nil {
		return ""
	}
	return s.Token.Raw
}

func (s Snapshot) clone() Snapshot {
	c := Snapshot{User: s.User.Clone(), Debt: s.Debt.Clone(), Loading: s.Loading}
	if s.Token != nil {
		t := *s.Token
		t.Roles = append([]string(nil), t.Roles...)
		c.Token = &t
	}
	return c
}

// Observer receives store events.
type Observer func(Event)

// Store holds the session, debt status, loading flag and access token.
// It performs no I/O. Every effective mutation is published to observers
// in mutation order; observers may mutate the store again, the resulting
// events are queued behind the one being delivered.
type Store struct {
	mu    sync.Mutex
	state Snapshot

	observersMu sync.RWMutex
	observers   map[int]Observer
	order       []int
	nextID      int

	queueMu     sync.Mutex
	queue       []Event
	dispatching bool
}

// NewStore returns an empty store in the loading state.
func NewStore() *Store {
	return &Store{
		state:     Snapshot{Loading: true},
		observers: make(map[int]Observer),
	}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.observersMu.Lock()
	defer s.observersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.observersMu.Lock()
			defer s.observersMu.Unlock()
			delete(s.observers, id)
			for i, oid := range s.order {
				if oid == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) User() *users.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.User.Clone()
}

func (s *Store) Debt() *debt.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Debt.Clone()
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken()
}

// SetUser replaces the session. nil clears it.
func (s *Store) SetUser(u *users.User) {
	s.mutate(func(st *Snapshot) { st.User = u.Clone() })
}

// UpdateUser applies fn to the current session atomically; fn receives a
// copy of the current user and returns the replacement.
func (s *Store) UpdateUser(fn func(prev *users.User) *users.User) {
	s.mutate(func(st *Snapshot) { st.User = fn(st.User.Clone()).Clone() })
}

func (s *Store) SetDebt(d *debt.Status) {
	s.mutate(func(st *Snapshot) { st.Debt = d.Clone() })
}

// SetToken stores the bearer credential; an empty string clears it.
func (s *Store) SetToken(raw string) {
	s.mutate(func(st *Snapshot) {
		if raw == "" {
			st.Token = nil
			return
		}
		t := ParseToken(raw)
		st.Token = &t
	})
}

func (s *Store) SetLoading(loading bool) {
	s.mutate(func(st *Snapshot) { st.Loading = loading })
}

// Clear drops session, debt and token. Loading is left untouched.
func (s *Store) Clear() {
	s.mutate(func(st *Snapshot) {
		st.User = nil
		st.Debt = nil
		st.Token = nil
	})
}

func (s *Store) mutate(fn func(*Snapshot)) {
	s.mu.Lock()
	prev := s.state.clone()
	fn(&s.state)
	cur := s.state.clone()
	ts := diff(prev, cur)
	if len(ts) == 0 {
		s.mu.Unlock()
		return
	}
	// Queue under s.mu so events enter the queue in mutation order.
	s.queueMu.Lock()
	s.mu.Unlock()
	s.queue = append(s.queue, Event{Transitions: ts, Previous: prev, Current: cur})
	if s.dispatching {
		s.queueMu.Unlock()
		return
	}
	s.dispatching = true
	s.queueMu.Unlock()

	s.dispatch()
}

func (s *Store) dispatch() {
	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.dispatching = false
			s.queueMu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.queueMu.Unlock()

		for _, fn := range s.snapshotObservers() {
			fn(ev)
		}
	}
}

func (s *Store) snapshotObservers() []Observer {
	s.observersMu.RLock()
	defer s.observersMu.RUnlock()
	fns := make([]Observer, 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.observers[id])
	}
	return fns
}
