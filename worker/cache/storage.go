// Package cache stores worker responses by cache name and request URL.
package cache

import (
	"context"
	"net/http"
	"time"
)

// Entry is a cached response.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Body     []byte      `json:"body,omitempty"`
	StoredAt time.Time   `json:"storedAt"`
}

// Clone returns a copy of e.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	c.Header = e.Header.Clone()
	c.Body = append([]byte(nil), e.Body...)
	return &c
}

// Storage is a named-cache store. A missing entry is (nil, nil).
type Storage interface {
	Get(ctx context.Context, cacheName, key string) (*Entry, error)
	Put(ctx context.Context, cacheName, key string, entry *Entry) error
	Keys(ctx context.Context, cacheName string) ([]string, error)
	Delete(ctx context.Context, cacheName string) error
	Names(ctx context.Context) ([]string, error)
}
