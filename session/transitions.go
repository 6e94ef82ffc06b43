package session

import "github.com/jrsteele09/carpool-client/users"

// Transition names a change observed between two store snapshots.
type Transition string

const (
	SessionPartial    Transition = "session.partial"    // NONE/FULL -> PARTIAL, or a different partial identity
	SessionFull       Transition = "session.full"       // -> FULL
	SessionIdentified Transition = "session.identified" // user id became known or changed
	SessionUpdated    Transition = "session.updated"    // same kind, different fields
	SessionCleared    Transition = "session.cleared"    // -> NONE
	DebtChanged       Transition = "debt.changed"
	DebtCleared       Transition = "debt.cleared"
	TokenSet          Transition = "token.set"
	TokenCleared      Transition = "token.cleared"
	LoadingChanged    Transition = "loading.changed"
)

// Event is delivered to observers after every effective mutation.
type Event struct {
	Transitions []Transition
	Previous    Snapshot
	Current     Snapshot
}

// Has reports whether t is among the event's transitions.
func (e Event) Has(t Transition) bool {
	for _, et := range e.Transitions {
		if et == t {
			return true
		}
	}
	return false
}

func diff(prev, cur Snapshot) []Transition {
	var ts []Transition

	pk, ck := users.KindOf(prev.User), users.KindOf(cur.User)
	userChanged := !users.Equal(prev.User, cur.User)
	switch {
	case ck == users.KindPartial && (pk != users.KindPartial || prev.User.Username != cur.User.Username):
		ts = append(ts, SessionPartial)
	case ck == users.KindFull && pk != users.KindFull:
		ts = append(ts, SessionFull)
	case ck == users.KindNone && pk != users.KindNone:
		ts = append(ts, SessionCleared)
	case userChanged:
		ts = append(ts, SessionUpdated)
	}
	if ck == users.KindFull && (pk != users.KindFull || *prev.User.ID != *cur.User.ID) {
		ts = append(ts, SessionIdentified)
	}

	switch {
	case cur.Debt == nil && prev.Debt != nil:
		ts = append(ts, DebtCleared)
	case cur.Debt != nil && (prev.Debt == nil || *prev.Debt != *cur.Debt):
		ts = append(ts, DebtChanged)
	}

	switch {
	case cur.Token == nil && prev.Token != nil:
		ts = append(ts, TokenCleared)
	case cur.Token != nil && (prev.Token == nil || prev.Token.Raw != cur.Token.Raw):
		ts = append(ts, TokenSet)
	}

	if prev.Loading != cur.Loading {
		ts = append(ts, LoadingChanged)
	}
	return ts
}
