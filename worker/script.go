package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	carpoolerrors "github.com/jrsteele09/carpool-client/internal/errors"
	"github.com/jrsteele09/carpool-client/worker/cache"
	"github.com/pkg/errors"
)

// Script is a worker version: where it came from, its revision and what it
// precaches.
type Script struct {
	URL      string
	Version  string
	Manifest cache.Manifest
}

// ScriptSource loads the worker script.
type ScriptSource interface {
	Load(ctx context.Context, scriptURL string) (*Script, error)
}

// ScriptFunc adapts a function to ScriptSource.
type ScriptFunc func(ctx context.Context, scriptURL string) (*Script, error)

func (f ScriptFunc) Load(ctx context.Context, scriptURL string) (*Script, error) {
	return f(ctx, scriptURL)
}

// The build step injects the precache manifest as the argument of this call.
var manifestMarker = []byte("precacheAndRoute(")

// HTTPScriptSource downloads the script from the origin. The version is the
// content revision of the script; the manifest is read from the injected
// precacheAndRoute([...]) call.
type HTTPScriptSource struct {
	origin *url.URL
	client *http.Client
}

func NewHTTPScriptSource(origin *url.URL, client *http.Client) *HTTPScriptSource {
	return &HTTPScriptSource{origin: origin, client: client}
}

func (s *HTTPScriptSource) Load(ctx context.Context, scriptURL string) (*Script, error) {
	ref, err := url.Parse(scriptURL)
	if err != nil {
		return nil, errors.Wrap(err, "[HTTPScriptSource.Load] invalid script url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.origin.ResolveReference(ref).String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "[HTTPScriptSource.Load]")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[HTTPScriptSource.Load] fetch script")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(carpoolerrors.ErrNotFound, "[HTTPScriptSource.Load] script status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "[HTTPScriptSource.Load] read script")
	}

	manifest, err := ParseManifest(body)
	if err != nil {
		return nil, errors.Wrap(err, "[HTTPScriptSource.Load]")
	}
	return &Script{URL: scriptURL, Version: cache.Revision(body), Manifest: manifest}, nil
}

// ParseManifest extracts the precache manifest from a worker script. A
// script without one precaches nothing.
func ParseManifest(script []byte) (cache.Manifest, error) {
	i := bytes.Index(script, manifestMarker)
	if i < 0 {
		return cache.Manifest{}, nil
	}
	var entries []cache.ManifestEntry
	dec := json.NewDecoder(bytes.NewReader(script[i+len(manifestMarker):]))
	if err := dec.Decode(&entries); err != nil {
		return cache.Manifest{}, carpoolerrors.Wrapf(carpoolerrors.ErrInvalidPayload, "precache manifest: %v", err)
	}
	return cache.Manifest{Entries: entries}, nil
}
