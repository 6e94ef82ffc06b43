// Package policy enforces the debt redirect rules against the router.
package policy

import (
	"sync"

	"github.com/jrsteele09/carpool-client/debt"
	"github.com/jrsteele09/carpool-client/internal/config"
	"github.com/jrsteele09/carpool-client/internal/metrics"
	"github.com/jrsteele09/carpool-client/nav"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// State of the gate
type State int

const (
	StateUnknown     State = iota // No debt status loaded
	StateDebtBlocked              // User owes money, only debt routes allowed
	StateClear                    // No debt, debt routes are left
)

func (s State) String() string {
	switch s {
	case StateDebtBlocked:
		return "DEBT_BLOCKED"
	case StateClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// Gate re-evaluates the debt policy whenever the debt status or the current
// path changes.
type Gate struct {
	store  *session.Store
	router nav.Router
	routes config.RoutesConfig

	mu    sync.Mutex
	state State
	unsub []func()
}

func NewGate(store *session.Store, router nav.Router, routes config.RoutesConfig) (*Gate, error) {
	if store == nil {
		return nil, errors.New("[NewGate] store is required")
	}
	if router == nil {
		return nil, errors.New("[NewGate] router is required")
	}
	if routes == nil {
		return nil, errors.New("[NewGate] routes are required")
	}
	return &Gate{store: store, router: router, routes: routes}, nil
}

// Start subscribes to the store and the router and evaluates once.
func (g *Gate) Start() {
	g.mu.Lock()
	if g.unsub != nil {
		g.mu.Unlock()
		return
	}
	g.unsub = []func(){
		g.store.Subscribe(func(ev session.Event) {
			if ev.Has(session.DebtChanged) || ev.Has(session.DebtCleared) {
				g.Evaluate()
			}
		}),
		g.router.Subscribe(func(string) { g.Evaluate() }),
	}
	g.mu.Unlock()
	g.Evaluate()
}

// Close removes the gate's subscriptions.
func (g *Gate) Close() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.mu.Unlock()
	for _, fn := range unsub {
		fn()
	}
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Evaluate applies the policy to the current debt status and path.
// The redirect runs outside the lock: the router notifies synchronously and
// the gate re-enters here, finding an allowed path.
func (g *Gate) Evaluate() {
	status := g.store.Debt()
	path := g.router.Path()

	next := stateFor(status)
	g.mu.Lock()
	prev := g.state
	g.state = next
	g.mu.Unlock()
	if prev != next {
		log.Info().Stringer("from", prev).Stringer("to", next).Str("path", path).Msg("access policy transition")
	}

	switch next {
	case StateDebtBlocked:
		if !nav.MatchesAny(g.routes.GetDebtRoutes(), path) {
			log.Info().Str("path", path).Msg("debt outstanding, redirecting")
			metrics.RecordRedirect("debt")
			g.router.Replace(g.routes.GetDebtRoute())
		}
	case StateClear:
		if nav.Matches(g.routes.GetDebtRoute(), path) {
			log.Info().Str("path", path).Msg("debt settled, leaving debt route")
			metrics.RecordRedirect("debt_cleared")
			g.router.Replace(g.routes.GetHomeRoute())
		}
	}
}

func stateFor(status *debt.Status) State {
	switch {
	case status == nil:
		return StateUnknown
	case status.DebtUser:
		return StateDebtBlocked
	default:
		return StateClear
	}
}
