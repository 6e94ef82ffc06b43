package policy_test

import (
	"testing"

	"github.com/jrsteele09/carpool-client/debt"
	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/nav"
	"github.com/jrsteele09/carpool-client/policy"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/stretchr/testify/require"
)

func newGate(t *testing.T, path string) (*policy.Gate, *session.Store, *nav.Memory) {
	t.Helper()
	store := session.NewStore()
	router := nav.NewMemory(path)
	gate, err := policy.NewGate(store, router, config.Routes{})
	require.NoError(t, err)
	gate.Start()
	t.Cleanup(gate.Close)
	return gate, store, router
}

func TestNewGateValidation(t *testing.T) {
	_, err := policy.NewGate(nil, nav.NewMemory("/"), config.Routes{})
	require.Error(t, err)
	_, err = policy.NewGate(session.NewStore(), nil, config.Routes{})
	require.Error(t, err)
	_, err = policy.NewGate(session.NewStore(), nav.NewMemory("/"), nil)
	require.Error(t, err)
}

func TestUnknownWithoutDebt(t *testing.T) {
	gate, _, router := newGate(t, "/trips")
	require.Equal(t, policy.StateUnknown, gate.State())
	require.Empty(t, router.Navigations())
}

func TestDebtUserRedirectedToDebt(t *testing.T) {
	gate, store, router := newGate(t, "/trips")

	store.SetDebt(&debt.Status{DebtUser: true})

	require.Equal(t, policy.StateDebtBlocked, gate.State())
	require.Equal(t, "/debt", router.Path())
	require.Equal(t, 1, router.Redirects("/debt"))
}

func TestDebtUserMayVisitDebtRoutes(t *testing.T) {
	for _, path := range []string{"/debt", "/debt/pay", "/logout"} {
		_, store, router := newGate(t, path)
		store.SetDebt(&debt.Status{DebtUser: true})
		require.Equal(t, path, router.Path())
		require.Empty(t, router.Navigations())
	}
}

func TestDebtUserNavigatingAwayIsSentBack(t *testing.T) {
	_, store, router := newGate(t, "/debt")
	store.SetDebt(&debt.Status{DebtUser: true})

	router.Push("/profile")

	require.Equal(t, "/debt", router.Path())
	require.Equal(t, 1, router.Redirects("/debt"))
}

func TestDebtSettledLeavesDebtRouteOnce(t *testing.T) {
	gate, store, router := newGate(t, "/trips")
	store.SetDebt(&debt.Status{DebtUser: true})
	require.Equal(t, "/debt", router.Path())

	store.SetDebt(&debt.Status{DebtUser: false})

	require.Equal(t, policy.StateClear, gate.State())
	require.Equal(t, "/home", router.Path())
	require.Equal(t, 1, router.Redirects("/home"))

	// Re-publishing the same status produces no event and no redirect.
	store.SetDebt(&debt.Status{DebtUser: false})
	require.Equal(t, 1, router.Redirects("/home"))
	require.Len(t, router.Navigations(), 2)
}

func TestClearDoesNotRedirectOutsideDebtRoute(t *testing.T) {
	gate, store, router := newGate(t, "/trips")
	store.SetDebt(&debt.Status{})
	require.Equal(t, policy.StateClear, gate.State())
	require.Empty(t, router.Navigations())
}

func TestDebtClearedReturnsToUnknown(t *testing.T) {
	gate, store, router := newGate(t, "/trips")
	store.SetDebt(&debt.Status{DebtUser: true})
	store.Clear()

	require.Equal(t, policy.StateUnknown, gate.State())
	router.Push("/trips")
	require.Equal(t, "/trips", router.Path())
}

func TestCloseStopsEvaluation(t *testing.T) {
	_, store, router := newGate(t, "/trips")
	gate2, err := policy.NewGate(store, router, config.Routes{})
	require.NoError(t, err)
	gate2.Start()
	gate2.Close()
	require.Equal(t, policy.StateUnknown, gate2.State())

	store.SetDebt(&debt.Status{DebtUser: true})
	require.Equal(t, policy.StateUnknown, gate2.State())
}
