// Package nav defines the navigation primitives the session core drives and
// an in-memory router for headless use.
package nav

import "strings"

// Router is the client-side navigation surface.
// Replace must be a no-op when path is already current.
type Router interface {
	Path() string
	Push(path string)
	Replace(path string)
	Subscribe(fn func(path string)) (unsubscribe func())
}

// Matches reports whether path falls under route. "/" only matches itself,
// every other route matches by prefix.
func Matches(route, path string) bool {
	if route == "/" {
		return path == "/"
	}
	return strings.HasPrefix(path, route)
}

// MatchesAny reports whether path falls under any of routes.
func MatchesAny(routes []string, path string) bool {
	for _, r := range routes {
		if Matches(r, path) {
			return true
		}
	}
	return false
}

// PathOnly strips any query string or fragment from p.
func PathOnly(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}
