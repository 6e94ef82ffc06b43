package cache_test

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jrsteele09/carpool-client/worker/cache"
	"github.com/stretchr/testify/require"
)

func exerciseStorage(t *testing.T, s cache.Storage) {
	t.Helper()
	ctx := context.Background()

	e, err := s.Get(ctx, "runtime", "/static/app.js")
	require.NoError(t, err)
	require.Nil(t, e)

	entry := &cache.Entry{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"text/javascript"}},
		Body:     []byte("console.log(1)"),
		StoredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.Put(ctx, "runtime", "/static/app.js", entry))
	require.NoError(t, s.Put(ctx, "precache-v1", "/", &cache.Entry{Status: http.StatusOK, Body: []byte("<html>")}))

	got, err := s.Get(ctx, "runtime", "/static/app.js")
	require.NoError(t, err)
	require.Equal(t, entry.Body, got.Body)
	require.Equal(t, "text/javascript", got.Header.Get("Content-Type"))
	require.True(t, entry.StoredAt.Equal(got.StoredAt))

	keys, err := s.Keys(ctx, "runtime")
	require.NoError(t, err)
	require.Equal(t, []string{"/static/app.js"}, keys)

	names, err := s.Names(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"precache-v1", "runtime"}, names)

	require.NoError(t, s.Delete(ctx, "precache-v1"))
	names, err = s.Names(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"runtime"}, names)
	require.NoError(t, s.Delete(ctx, "runtime"))
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, cache.NewMemory())
}

func TestMemoryStorageReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := cache.NewMemory()
	entry := &cache.Entry{Status: 200, Body: []byte("abc")}
	require.NoError(t, m.Put(ctx, "c", "k", entry))
	entry.Body[0] = 'X'

	got, err := m.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.Equal(t, "abc", string(got.Body))
	got.Body[0] = 'Y'

	again, _ := m.Get(ctx, "c", "k")
	require.Equal(t, "abc", string(again.Body))
}

// Runs against a real server when CARPOOL_TEST_REDIS_URL is set.
func TestRedisStorage(t *testing.T) {
	url := os.Getenv("CARPOOL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CARPOOL_TEST_REDIS_URL not set")
	}
	r, err := cache.NewRedis(context.Background(), url)
	require.NoError(t, err)
	defer r.Close()
	exerciseStorage(t, r)
}

func TestNewRedisInvalidURL(t *testing.T) {
	_, err := cache.NewRedis(context.Background(), "not a url")
	require.Error(t, err)
}

func TestOpenDefaultsToMemory(t *testing.T) {
	s, err := cache.Open(context.Background(), "")
	require.NoError(t, err)
	require.IsType(t, &cache.Memory{}, s)
}

func TestManifestRevisions(t *testing.T) {
	m := cache.NewManifest(map[string][]byte{
		"/index.html":     []byte("<html>v1</html>"),
		"/static/app.css": []byte("body{}"),
	})

	require.Len(t, m.Entries, 2)
	require.Equal(t, "/index.html", m.Entries[0].URL)
	require.Len(t, m.Entries[0].Revision, 20)
	require.Equal(t, cache.Revision([]byte("body{}")), m.Entries[1].Revision)
	require.NotEqual(t, cache.Revision([]byte("<html>v2</html>")), m.Entries[0].Revision)

	e, ok := m.Lookup("/static/app.css")
	require.True(t, ok)
	require.Equal(t, "/static/app.css", e.URL)
	_, ok = m.Lookup("/missing")
	require.False(t, ok)

	require.True(t, cache.IsPrecache(cache.PrecacheName("abc")))
	require.False(t, cache.IsPrecache(cache.RuntimeCache))
}
