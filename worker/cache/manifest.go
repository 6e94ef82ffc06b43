package cache

import (
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const (
	precachePrefix = "precache-"
	RuntimeCache   = "runtime"
)

// ManifestEntry is one precached URL and the revision of its content.
type ManifestEntry struct {
	URL      string `json:"url"`
	Revision string `json:"revision,omitempty"`
}

// Manifest lists what a worker version precaches.
type Manifest struct {
	Entries []ManifestEntry `json:"entries"`
}

// Revision hashes content into a short, stable revision string.
func Revision(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:10])
}

// NewManifest builds a manifest for the given URL -> content map.
func NewManifest(files map[string][]byte) Manifest {
	urls := make([]string, 0, len(files))
	for u := range files {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	m := Manifest{Entries: make([]ManifestEntry, 0, len(urls))}
	for _, u := range urls {
		m.Entries = append(m.Entries, ManifestEntry{URL: u, Revision: Revision(files[u])})
	}
	return m
}

// Lookup returns the entry for url.
func (m Manifest) Lookup(url string) (ManifestEntry, bool) {
	for _, e := range m.Entries {
		if e.URL == url {
			return e, true
		}
	}
	return ManifestEntry{}, false
}

// PrecacheName is the cache holding a worker version's precached responses.
func PrecacheName(version string) string {
	return precachePrefix + version
}

// IsPrecache reports whether name is a precache of any version.
func IsPrecache(name string) bool {
	return strings.HasPrefix(name, precachePrefix)
}
