package users_test

import (
	"testing"

	"github.com/jrsteele09/carpool-client/internal/utils"
	"github.com/jrsteele09/carpool-client/users"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, users.KindNone, users.KindOf(nil))
	require.Equal(t, users.KindPartial, users.KindOf(users.Partial("ana", nil)))
	require.Equal(t, users.KindFull, users.KindOf(&users.User{ID: utils.Ptr(int64(7))}))
	require.True(t, users.Partial("ana", nil).IsPartial())
}

func TestMergeKeepsConcurrentlySetFields(t *testing.T) {
	prev := &users.User{Username: "ana", Roles: []users.RoleType{"USER"}, ProfileImage: "https://cdn/ana.png"}
	full := &users.User{ID: utils.Ptr(int64(7)), Name: "Ana", Lastname: "Diaz", Email: "ana@example.com"}

	merged := users.Merge(prev, full)

	require.Equal(t, int64(7), *merged.ID)
	require.Equal(t, "ana", merged.Username)
	require.Equal(t, "Ana", merged.Name)
	require.Equal(t, "https://cdn/ana.png", merged.ProfileImage)
	require.Equal(t, []users.RoleType{"USER"}, merged.Roles)

	// inputs untouched
	require.Nil(t, prev.ID)
	require.Empty(t, full.Username)
}

func TestMergeIncomingOverrides(t *testing.T) {
	prev := &users.User{Username: "ana", Status: "PENDING_PROFILE", Roles: []users.RoleType{"USER"}}
	incoming := &users.User{Status: "ACTIVE", Roles: []users.RoleType{"USER", "DRIVER"}}

	merged := users.Merge(prev, incoming)
	require.Equal(t, "ACTIVE", merged.Status)
	require.True(t, merged.HasRole("driver"))
}

func TestMergeNilSides(t *testing.T) {
	u := &users.User{Username: "ana"}
	require.True(t, users.Equal(u, users.Merge(nil, u)))
	require.True(t, users.Equal(u, users.Merge(u, nil)))
	require.Nil(t, users.Merge(nil, nil))
}

func TestCloneIsDeep(t *testing.T) {
	u := &users.User{ID: utils.Ptr(int64(1)), Roles: []users.RoleType{"USER"}}
	c := u.Clone()
	*c.ID = 2
	c.Roles[0] = "ADMIN"
	require.Equal(t, int64(1), *u.ID)
	require.Equal(t, users.RoleType("USER"), u.Roles[0])
}

func TestWithProfileImage(t *testing.T) {
	u := &users.User{Username: "ana"}
	withImage := u.WithProfileImage("https://cdn/a.png")
	require.Empty(t, u.ProfileImage)
	require.Equal(t, "https://cdn/a.png", withImage.ProfileImage)
}

func TestFullName(t *testing.T) {
	require.Equal(t, "ana", (&users.User{Username: "ana"}).FullName())
	require.Equal(t, "Ana Diaz", (&users.User{Username: "ana", Name: "Ana", Lastname: "Diaz"}).FullName())
	require.Equal(t, "", (*users.User)(nil).FullName())
}

func TestEqual(t *testing.T) {
	a := &users.User{ID: utils.Ptr(int64(1)), Username: "a", Roles: []users.RoleType{"USER"}}
	b := a.Clone()
	require.True(t, users.Equal(a, b))
	b.Phone = "123"
	require.False(t, users.Equal(a, b))
	require.False(t, users.Equal(a, nil))
	require.True(t, users.Equal(nil, nil))
}
