package users

import (
	"strings"

	"github.com/jrsteele09/carpool-client/internal/utils"
)

// RoleType represents a role granted to the user by the backend
type RoleType string

// ViewRole selects which side of the profile is being browsed
type ViewRole string

const (
	ViewPassenger ViewRole = "pasajero"
	ViewDriver    ViewRole = "conductor"
)

// Kind classifies how much of the profile is known
type Kind int

const (
	KindNone    Kind = iota // No session
	KindPartial             // Identity only (username/roles), id not yet known
	KindFull                // Enriched profile with a backend id
)

func (k Kind) String() string {
	switch k {
	case KindPartial:
		return "PARTIAL"
	case KindFull:
		return "FULL"
	default:
		return "NONE"
	}
}

// User is the in-memory representation of the authenticated user.
// A User without ID came from the lightweight identity check and must be
// enriched with the full profile before profile-dependent views trust it.
type User struct {
	ID        *int64     `json:"id,omitempty"`        // Backend identifier, nil while partial
	Username  string     `json:"username,omitempty"`  // Login name
	Roles     []RoleType `json:"roles,omitempty"`     // Roles granted by the backend
	Name      string     `json:"name,omitempty"`      // First name
	Lastname  string     `json:"lastname,omitempty"`  // Last name
	Email     string     `json:"email,omitempty"`     // Contact email
	DNI       string     `json:"dni,omitempty"`       // National identity document
	Phone     string     `json:"phone,omitempty"`     // Contact phone
	Gender    string     `json:"gender,omitempty"`    // Gender as reported by the backend
	Status    string     `json:"status,omitempty"`    // Account status (ACTIVE, PENDING_PROFILE, ...)
	BirthDate string     `json:"birthDate,omitempty"` // ISO date

	ProfileImage string `json:"profileImage,omitempty"` // Lazily loaded image URL
}

// KindOf classifies u. A nil user is KindNone.
func KindOf(u *User) Kind {
	switch {
	case u == nil:
		return KindNone
	case u.ID == nil:
		return KindPartial
	default:
		return KindFull
	}
}

func (u *User) IsPartial() bool {
	return KindOf(u) == KindPartial
}

// Partial builds the identity-only user returned by the identity check.
func Partial(username string, roles []RoleType) *User {
	return &User{Username: username, Roles: roles}
}

// Clone returns a copy that shares nothing mutable with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.ID != nil {
		c.ID = utils.Ptr(*u.ID)
	}
	if u.Roles != nil {
		c.Roles = append([]RoleType(nil), u.Roles...)
	}
	return &c
}

// Merge shallow-merges incoming over prev: every field set on incoming wins,
// fields incoming leaves empty keep prev's value. Neither argument is modified.
func Merge(prev, incoming *User) *User {
	if prev == nil {
		return incoming.Clone()
	}
	if incoming == nil {
		return prev.Clone()
	}
	merged := prev.Clone()
	if incoming.ID != nil {
		merged.ID = utils.Ptr(*incoming.ID)
	}
	if incoming.Roles != nil {
		merged.Roles = append([]RoleType(nil), incoming.Roles...)
	}
	merged.Username = utils.Coalesce(prev.Username, incoming.Username)
	merged.Name = utils.Coalesce(prev.Name, incoming.Name)
	merged.Lastname = utils.Coalesce(prev.Lastname, incoming.Lastname)
	merged.Email = utils.Coalesce(prev.Email, incoming.Email)
	merged.DNI = utils.Coalesce(prev.DNI, incoming.DNI)
	merged.Phone = utils.Coalesce(prev.Phone, incoming.Phone)
	merged.Gender = utils.Coalesce(prev.Gender, incoming.Gender)
	merged.Status = utils.Coalesce(prev.Status, incoming.Status)
	merged.BirthDate = utils.Coalesce(prev.BirthDate, incoming.BirthDate)
	merged.ProfileImage = utils.Coalesce(prev.ProfileImage, incoming.ProfileImage)
	return merged
}

// WithProfileImage returns a copy of u with only the image replaced.
func (u *User) WithProfileImage(url string) *User {
	c := u.Clone()
	c.ProfileImage = url
	return c
}

// HasRole reports whether the user holds role (case-insensitive)
func (u *User) HasRole(role RoleType) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if strings.EqualFold(string(r), string(role)) {
			return true
		}
	}
	return false
}

// FullName joins name and lastname, falling back to the username.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	full := strings.TrimSpace(u.Name + " " + u.Lastname)
	if full == "" {
		return u.Username
	}
	return full
}

// Equal compares two users field by field.
func Equal(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	if (a.ID == nil) != (b.ID == nil) || (a.ID != nil && *a.ID != *b.ID) {
		return false
	}
	if len(a.Roles) != len(b.Roles) {
		return false
	}
	for i := range a.Roles {
		if a.Roles[i] != b.Roles[i] {
			return false
		}
	}
	return a.Username == b.Username &&
		a.Name == b.Name &&
		a.Lastname == b.Lastname &&
		a.Email == b.Email &&
		a.DNI == b.DNI &&
		a.Phone == b.Phone &&
		a.Gender == b.Gender &&
		a.Status == b.Status &&
		a.BirthDate == b.BirthDate &&
		a.ProfileImage == b.ProfileImage
}
