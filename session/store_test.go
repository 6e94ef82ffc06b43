package session_test

import (
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/carpool-client/debt"
	"github.com/jrsteele09/carpool-client/internal/utils"
	"github.com/jrsteele09/carpool-client/session"
	"github.com/jrsteele09/carpool-client/users"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) observe(e session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) transitions() [][]session.Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out [][]session.Transition
	for _, e := range r.events {
		out = append(out, e.Transitions)
	}
	return out
}

func TestNewStoreStartsLoading(t *testing.T) {
	s := session.NewStore()
	require.True(t, s.Loading())
	require.Nil(t, s.User())
	require.Nil(t, s.Debt())
	require.Empty(t, s.AccessToken())
}

func TestSessionLifecycleTransitions(t *testing.T) {
	s := session.NewStore()
	rec := &recorder{}
	s.Subscribe(rec.observe)

	s.SetUser(users.Partial("ana", []users.RoleType{"USER"}))
	s.UpdateUser(func(prev *users.User) *users.User {
		return users.Merge(prev, &users.User{ID: utils.Ptr(int64(3)), Name: "Ana"})
	})
	s.UpdateUser(func(prev *users.User) *users.User { return prev.WithProfileImage("img") })
	s.Clear()

	require.Equal(t, [][]session.Transition{
		{session.SessionPartial},
		{session.SessionFull, session.SessionIdentified},
		{session.SessionUpdated},
		{session.SessionCleared},
	}, rec.transitions())
}

func TestNoOpMutationEmitsNothing(t *testing.T) {
	s := session.NewStore()
	rec := &recorder{}
	s.Subscribe(rec.observe)

	s.SetLoading(true)
	s.SetUser(nil)
	s.SetDebt(nil)
	s.SetToken("")
	s.Clear()

	require.Empty(t, rec.transitions())
}

func TestDebtAndTokenTransitions(t *testing.T) {
	s := session.NewStore()
	rec := &recorder{}
	s.Subscribe(rec.observe)

	s.SetDebt(&debt.Status{DebtUser: true})
	s.SetDebt(&debt.Status{DebtUser: true})
	s.SetDebt(&debt.Status{DebtUser: false})
	s.SetToken("abc")
	s.SetToken("abc")
	s.SetToken("def")
	s.Clear()

	require.Equal(t, [][]session.Transition{
		{session.DebtChanged},
		{session.DebtChanged},
		{session.TokenSet},
		{session.TokenSet},
		{session.DebtCleared, session.TokenCleared},
	}, rec.transitions())
}

func TestPartialToPartialSameIdentityIsNotANewPartialTransition(t *testing.T) {
	s := session.NewStore()
	rec := &recorder{}
	s.Subscribe(rec.observe)

	s.SetUser(users.Partial("ana", nil))
	s.SetUser(&users.User{Username: "ana", Name: "Ana"})
	s.SetUser(users.Partial("bob", nil))

	require.Equal(t, [][]session.Transition{
		{session.SessionPartial},
		{session.SessionUpdated},
		{session.SessionPartial},
	}, rec.transitions())
}

func TestReentrantMutationsAreDeliveredInOrder(t *testing.T) {
	s := session.NewStore()
	var seen []session.Transition
	s.Subscribe(func(e session.Event) {
		seen = append(seen, e.Transitions...)
		if e.Has(session.SessionPartial) {
			s.SetLoading(false)
		}
	})
	s.Subscribe(func(e session.Event) {
		seen = append(seen, "second:"+e.Transitions[0])
	})

	s.SetUser(users.Partial("ana", nil))

	require.Equal(t, []session.Transition{
		session.SessionPartial,
		"second:" + session.SessionPartial,
		session.LoadingChanged,
		"second:" + session.LoadingChanged,
	}, seen)
}

func TestUnsubscribe(t *testing.T) {
	s := session.NewStore()
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.observe)
	unsubscribe()
	unsubscribe()

	s.SetLoading(false)
	require.Empty(t, rec.transitions())
}

func TestReadsReturnCopies(t *testing.T) {
	s := session.NewStore()
	s.SetUser(&users.User{Username: "ana"})
	u := s.User()
	u.Username = "mallory"
	require.Equal(t, "ana", s.User().Username)

	d := &debt.Status{DebtUser: true}
	s.SetDebt(d)
	d.DebtUser = false
	require.True(t, s.Debt().DebtUser)
}

func TestEventSnapshots(t *testing.T) {
	s := session.NewStore()
	var last session.Event
	s.Subscribe(func(e session.Event) { last = e })

	s.SetToken("tok-1")
	require.Nil(t, last.Previous.Token)
	require.Equal(t, "tok-1", last.Current.AccessToken())
}

func TestConcurrentMutations(t *testing.T) {
	s := session.NewStore()
	var mu sync.Mutex
	count := 0
	s.Subscribe(func(session.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.SetLoading(i%2 == 0)
			s.SetUser(&users.User{Username: "u", Phone: string(rune('a' + i%26))})
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Positive(t, count)
}

func TestParseTokenJWT(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub":   "ana",
		"roles": []string{"PASSENGER", "DRIVER"},
		"exp":   exp.Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tok := session.ParseToken(raw)
	require.True(t, tok.IsJWT)
	require.Equal(t, "ana", tok.Subject)
	require.Equal(t, []string{"PASSENGER", "DRIVER"}, tok.Roles)
	require.True(t, tok.ExpiresAt.Equal(exp))
	require.False(t, tok.Expired(time.Now()))
	require.True(t, tok.Expired(exp.Add(time.Minute)))
}

func TestParseTokenOpaque(t *testing.T) {
	tok := session.ParseToken("  opaque-token-value ")
	require.False(t, tok.IsJWT)
	require.Equal(t, "opaque-token-value", tok.Raw)
	require.False(t, tok.Expired(time.Now()))
	require.Equal(t, "opaq…alue", tok.Redacted())
	require.Equal(t, "****", session.ParseToken("short").Redacted())
}
