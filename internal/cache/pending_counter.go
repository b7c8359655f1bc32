// Package cache keeps per-student pending-invitation counts in Redis.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "studio_scheduler:pending:"
	countPart = keyPrefix + "count:"
	genPart   = keyPrefix + "gen:"
	epochKey  = keyPrefix + "epoch"

	// generations outlive any count computed under them
	genTTL = 24 * time.Hour
)

// setIfCurrent stores a count only if neither the global epoch nor the
// student's generation moved since the caller read them.
var setIfCurrent = redis.NewScript(`
local epoch = redis.call('GET', KEYS[2]) or '0'
local gen = redis.call('GET', KEYS[3]) or '0'
if epoch .. ':' .. gen ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// PendingCounter caches counts with a TTL. A nil client disables caching:
// every Get misses and writes are no-ops.
//
// Writers call Invalidate after changing a student's invitations. Readers take
// a Generation token before counting from the store and hand it to Set, so a
// count computed before an invalidation is never written back.
type PendingCounter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPendingCounter(client *redis.Client, ttl time.Duration) *PendingCounter {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &PendingCounter{client: client, ttl: ttl}
}

// NewRedisClient connects and pings, the way the cache client is set up at startup.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

func countKey(studentID int64) string {
	return countPart + strconv.FormatInt(studentID, 10)
}

func genKey(studentID int64) string {
	return genPart + strconv.FormatInt(studentID, 10)
}

func (c *PendingCounter) Get(ctx context.Context, studentID int64) (int, bool, error) {
	if c.client == nil {
		return 0, false, nil
	}
	n, err := c.client.Get(ctx, countKey(studentID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get pending count: %w", err)
	}
	return n, true, nil
}

// Generation returns the token a later Set must present.
func (c *PendingCounter) Generation(ctx context.Context, studentID int64) (string, error) {
	if c.client == nil {
		return "", nil
	}
	vals, err := c.client.MGet(ctx, epochKey, genKey(studentID)).Result()
	if err != nil {
		return "", fmt.Errorf("get pending generation: %w", err)
	}
	return tokenPart(vals[0]) + ":" + tokenPart(vals[1]), nil
}

func tokenPart(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return "0"
}

// Set stores n unless the student was invalidated after gen was taken.
func (c *PendingCounter) Set(ctx context.Context, studentID int64, n int, gen string) error {
	if c.client == nil {
		return nil
	}
	keys := []string{countKey(studentID), epochKey, genKey(studentID)}
	err := setIfCurrent.Run(ctx, c.client, keys, n, gen, c.ttl.Milliseconds()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("set pending count: %w", err)
	}
	return nil
}

// Invalidate bumps each student's generation and drops the cached count in
// one transaction.
func (c *PendingCounter) Invalidate(ctx context.Context, studentIDs ...int64) error {
	if c.client == nil || len(studentIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range studentIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Expire(ctx, genKey(id), genTTL)
			pipe.Del(ctx, countKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate pending counts: %w", err)
	}
	return nil
}

// InvalidateAll bumps the global epoch, then drops every cached count.
func (c *PendingCounter) InvalidateAll(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, epochKey).Err(); err != nil {
		return fmt.Errorf("bump pending epoch: %w", err)
	}

	iter := c.client.Scan(ctx, 0, countPart+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan pending counts: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate pending counts: %w", err)
	}
	return nil
}
