package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jrsteele09/carpool-client/realtime"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/stretchr/testify/require"
)

// fakeConnector records the operations the manager performs.
type fakeConnector struct {
	mu         sync.Mutex
	ops        []string
	connectErr error
}

func (f *fakeConnector) Connect(_ context.Context, token string, _ realtime.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "connect:"+token)
	return f.connectErr
}

func (f *fakeConnector) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "disconnect")
}

func (f *fakeConnector) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func TestManagerFollowsToken(t *testing.T) {
	store := session.NewStore()
	conn := &fakeConnector{}
	m := realtime.NewManager(store, conn, nil)
	m.Start(context.Background())

	store.SetToken("tok-1")
	m.Wait()
	store.SetToken("tok-1")
	m.Wait()
	store.SetToken("tok-2")
	m.Wait()
	store.Clear()
	m.Wait()

	require.Equal(t, []string{"connect:tok-1", "connect:tok-2", "disconnect"}, conn.recorded())

	m.Close()
	require.Equal(t, "disconnect", conn.recorded()[len(conn.recorded())-1])
}

func TestManagerConnectsExistingTokenOnStart(t *testing.T) {
	store := session.NewStore()
	store.SetToken("held")
	conn := &fakeConnector{}
	m := realtime.NewManager(store, conn, nil)

	m.Start(context.Background())
	m.Wait()

	require.Equal(t, []string{"connect:held"}, conn.recorded())
}

func TestManagerLogsConnectFailure(t *testing.T) {
	store := session.NewStore()
	conn := &fakeConnector{connectErr: errors.New("broker down")}
	m := realtime.NewManager(store, conn, nil)
	m.Start(context.Background())

	store.SetToken("tok")
	m.Wait()
	require.Equal(t, []string{"connect:tok"}, conn.recorded())
}

func TestManagerIgnoresTokensAfterClose(t *testing.T) {
	store := session.NewStore()
	conn := &fakeConnector{}
	m := realtime.NewManager(store, conn, nil)
	m.Start(context.Background())
	m.Close()

	store.SetToken("late")
	m.Wait()
	require.Equal(t, []string{"disconnect"}, conn.recorded())
}

func TestManagerClosedDuringDispatchDoesNotConnect(t *testing.T) {
	store := session.NewStore()
	conn := &fakeConnector{}
	m := realtime.NewManager(store, conn, nil)
	// Subscribed first, so it closes the manager before the manager sees
	// the same event.
	store.Subscribe(func(ev session.Event) {
		if ev.Has(session.TokenSet) {
			m.Close()
		}
	})
	m.Start(context.Background())

	store.SetToken("late")
	m.Wait()
	require.Equal(t, []string{"disconnect"}, conn.recorded())

	m.Start(context.Background())
	store.SetToken("later")
	m.Wait()
	require.Equal(t, []string{"disconnect"}, conn.recorded())
}
