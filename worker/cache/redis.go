package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const (
	redisPrefix   = "carpool:cache:"
	redisNamesKey = "carpool:caches"
)

var _ Storage = (*Redis)(nil)

// Redis keeps each cache in a hash, the entries JSON encoded.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the server at redisURL and checks it answers.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewRedis] invalid redis url")
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[NewRedis] redis connection failed")
	}
	return &Redis{client: client}, nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func (r *Redis) Get(ctx context.Context, cacheName, key string) (*Entry, error) {
	raw, err := r.client.HGet(ctx, redisPrefix+cacheName, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Redis.Get]")
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, errors.Wrap(err, "[Redis.Get] decode entry")
	}
	return &e, nil
}

func (r *Redis) Put(ctx context.Context, cacheName, key string, entry *Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "[Redis.Put] encode entry")
	}
	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, redisPrefix+cacheName, key, raw)
		p.SAdd(ctx, redisNamesKey, cacheName)
		return nil
	})
	return errors.Wrap(err, "[Redis.Put]")
}

func (r *Redis) Keys(ctx context.Context, cacheName string) ([]string, error) {
	keys, err := r.client.HKeys(ctx, redisPrefix+cacheName).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[Redis.Keys]")
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *Redis) Delete(ctx context.Context, cacheName string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, redisPrefix+cacheName)
		p.SRem(ctx, redisNamesKey, cacheName)
		return nil
	})
	return errors.Wrap(err, "[Redis.Delete]")
}

func (r *Redis) Names(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, redisNamesKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "[Redis.Names]")
	}
	sort.Strings(names)
	return names, nil
}

// Open returns Redis storage when redisURL is set, memory storage otherwise.
func Open(ctx context.Context, redisURL string) (Storage, error) {
	if strings.TrimSpace(redisURL) == "" {
		return NewMemory(), nil
	}
	r, err := NewRedis(ctx, redisURL)
	if err != nil {
		return nil, err
	}
	return r, nil
}
