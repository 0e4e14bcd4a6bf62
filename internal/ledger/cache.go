package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const bumpChannel = "ledger.bump"

// Cache stores reconstructed statements in Redis. Each party has its own
// version counter; bumping it orphans every statement key built on the old
// version. A nil *Cache or one without a client passes straight through to
// the loader.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func versionKey(party Party, id int64) string {
	return "ledger:version:" + string(party) + ":" + strconv.FormatInt(id, 10)
}

// Version returns the party's cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context, party Party, id int64) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	key := versionKey(party, id)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		// SETNX so two first readers agree on the initial version.
		if err := c.client.SetNX(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, key).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the statement key for party with its current version.
func (c *Cache) BuildKey(ctx context.Context, party Party, id int64) (string, error) {
	base := strings.Join([]string{"ledger", "statement", string(party), strconv.FormatInt(id, 10)}, ":")
	if !c.enabled() {
		return base, nil
	}
	ver, err := c.Version(ctx, party, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", base, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("ledger: cache loader required")
	}
	if c.enabled() {
		payload, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(payload, dest)
		}
		if !errors.Is(err, redis.Nil) {
			return err
		}
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return err
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump invalidates the party's statements and publishes the change.
func (c *Cache) Bump(ctx context.Context, party Party, id int64) error {
	if !c.enabled() {
		return nil
	}
	if err := c.client.Incr(ctx, versionKey(party, id)).Err(); err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, string(party)+":"+strconv.FormatInt(id, 10)).Err()
}

// ListenForInvalidation subscribes to bump notifications and calls fn for
// each one until ctx is done.
func (c *Cache) ListenForInvalidation(ctx context.Context, fn func(Party, int64)) error {
	if !c.enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				party, id, ok := parseBump(msg.Payload)
				if ok {
					fn(party, id)
				}
			}
		}
	}()
	return nil
}

func parseBump(payload string) (Party, int64, bool) {
	party, rawID, ok := strings.Cut(payload, ":")
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return Party(party), id, true
}
