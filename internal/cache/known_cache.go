// Package cache keeps per-learner known-word snapshots in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// emptyMarker keeps an empty snapshot distinguishable from a missing key
const emptyMarker = "\x00"

// errStale aborts storing a snapshot that was invalidated while it was loading
var errStale = errors.New("cache: snapshot invalidated during load")

// Loader reads the authoritative known lemmas when the snapshot is missing
type Loader func(ctx context.Context) ([]string, error)

// KnownWordCache is a read-through cache of known lemmas per learner and language
type KnownWordCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewKnownWordCache connects to Redis and checks the connection
func NewKnownWordCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*KnownWordCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &KnownWordCache{client: client, ttl: ttl}, nil
}

// key format: vocabgate:known:{userID}:{language}
func (c *KnownWordCache) key(userID int64, language string) string {
	return fmt.Sprintf("vocabgate:known:%d:%s", userID, strings.ToLower(language))
}

// genKey counts invalidations of a snapshot
func (c *KnownWordCache) genKey(userID int64, language string) string {
	return c.key(userID, language) + ":gen"
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *KnownWordCache) generation(ctx context.Context, cmd getter, key string) (string, error) {
	gen, err := cmd.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// Get returns the cached snapshot, calling load and storing its result on a miss.
// A result loaded across an Invalidate is returned but not stored.
func (c *KnownWordCache) Get(ctx context.Context, userID int64, language string, load Loader) ([]string, error) {
	key := c.key(userID, language)
	genKey := c.genKey(userID, language)

	members, err := c.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read known words: %w", err)
	}
	if len(members) > 0 {
		lemmas := make([]string, 0, len(members))
		for _, m := range members {
			if m != emptyMarker {
				lemmas = append(lemmas, m)
			}
		}
		return lemmas, nil
	}

	gen, err := c.generation(ctx, c.client, genKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read known words: %w", err)
	}
	lemmas, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, key, genKey, gen, lemmas); err != nil {
		return nil, err
	}
	return lemmas, nil
}

// store writes the snapshot only if the generation still matches gen
func (c *KnownWordCache) store(ctx context.Context, key, genKey, gen string, lemmas []string) error {
	values := make([]interface{}, 0, len(lemmas)+1)
	values = append(values, emptyMarker)
	for _, l := range lemmas {
		values = append(values, l)
	}

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx, genKey)
		if err != nil {
			return err
		}
		if current != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SAdd(ctx, key, values...)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if errors.Is(err, errStale) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to store known words: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot so the next Get reloads it, and bumps the
// generation so an in-flight load does not store what it read
func (c *KnownWordCache) Invalidate(ctx context.Context, userID int64, language string) error {
	genKey := c.genKey(userID, language)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, c.ttl)
		pipe.Del(ctx, c.key(userID, language))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate known words: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (c *KnownWordCache) Close() error {
	return c.client.Close()
}
