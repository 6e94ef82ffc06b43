package realtime

import (
	"context"
	"sync"

	"github.com/jrsteele09/carpool-client/session"
	"github.com/rs/zerolog/log"
)

// Connector is the part of Channel the Manager drives.
type Connector interface {
	Connect(ctx context.Context, token string, onMessage MessageHandler) error
	Disconnect()
}

// Manager ties the channel to the session's access token: a new token
// (re)connects, a cleared token disconnects. Only the latest token change is
// acted upon when changes pile up.
type Manager struct {
	store     *session.Store
	channel   Connector
	onMessage MessageHandler

	mu          sync.Mutex
	ctx         context.Context
	unsubscribe func()
	seq         uint64
	closed      bool

	opMu sync.Mutex
	wg   sync.WaitGroup
}

func NewManager(store *session.Store, channel Connector, onMessage MessageHandler) *Manager {
	return &Manager{store: store, channel: channel, onMessage: onMessage}
}

// Start subscribes to token transitions. A token already held is connected
// immediately.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.unsubscribe != nil || m.closed {
		m.mu.Unlock()
		return
	}
	m.ctx = ctx
	m.unsubscribe = m.store.Subscribe(m.observe)
	m.mu.Unlock()

	if token := m.store.AccessToken(); token != "" {
		m.schedule(token)
	}
}

// Close unsubscribes, waits for pending work and disconnects. A closed
// Manager ignores every later token change and cannot be restarted.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.seq++
	m.mu.Unlock()

	m.wg.Wait()
	m.channel.Disconnect()
}

// Wait blocks until every scheduled connect or disconnect has run.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) observe(ev session.Event) {
	switch {
	case ev.Has(session.TokenSet):
		m.schedule(ev.Current.AccessToken())
	case ev.Has(session.TokenCleared):
		m.schedule("")
	}
}

// schedule runs the connect (token != "") or disconnect off the store's
// dispatch path. Superseded operations are skipped.
func (m *Manager) schedule(token string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.seq++
	seq := m.seq
	ctx := m.ctx
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		m.opMu.Lock()
		defer m.opMu.Unlock()
		if !m.current(seq) {
			return
		}
		if token == "" {
			m.channel.Disconnect()
			return
		}
		if err := m.channel.Connect(ctx, token, m.onMessage); err != nil {
			log.Err(err).Msg("realtime connect failed")
		}
	}()
}

func (m *Manager) current(seq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return seq == m.seq
}
