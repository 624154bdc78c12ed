// Package cache holds the optional read-through cache for post detail responses.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/strata-blog-api/internal/config"
	"github.com/strata-blog-api/internal/models"
)

const (
	postKeyPrefix = "post:"
	genKeySuffix  = ":gen"
)

// setIfGenerationScript writes KEYS[1] only while KEYS[2] still holds ARGV[2].
// A missing generation key counts as generation 0.
const setIfGenerationScript = `
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
	return 0
end
if ARGV[3] == '0' then
	redis.call('SET', KEYS[1], ARGV[1])
else
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
end
return 1`

// ErrCacheMiss is returned when a key is absent
var ErrCacheMiss = errors.New("cache miss")

// PostCache stores rendered post details keyed by post id.
//
// Every post has a generation that InvalidatePost advances. Readers take the
// generation before loading from the store and hand it to SetPost, which drops
// the write when an invalidation happened in between.
type PostCache interface {
	GetPost(ctx context.Context, id int64) (*models.PostDetail, error)
	Generation(ctx context.Context, id int64) (int64, error)
	SetPost(ctx context.Context, post *models.PostDetail, gen int64) error
	InvalidatePost(ctx context.Context, id int64) error
}

// kv is the subset of redis.Cmdable the cache needs
type kv interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisPostCache is a PostCache backed by Redis with JSON values
type RedisPostCache struct {
	client kv
	ttl    time.Duration
	log    zerolog.Logger
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg config.CacheConfig, log zerolog.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.Addr).Int("db", cfg.DB).Msg("Redis connection established")
	return rdb, nil
}

// NewRedisPostCache wraps a Redis client
func NewRedisPostCache(client kv, ttl time.Duration, log zerolog.Logger) *RedisPostCache {
	return &RedisPostCache{
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "post_cache").Logger(),
	}
}

// GetPost returns the cached detail or ErrCacheMiss
func (c *RedisPostCache) GetPost(ctx context.Context, id int64) (*models.PostDetail, error) {
	val, err := c.client.Get(ctx, postKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post from cache: %w", err)
	}

	var post models.PostDetail
	if err := json.Unmarshal(val, &post); err != nil {
		c.log.Warn().Err(err).Int64("post_id", id).Msg("Discarding unreadable cache entry")
		return nil, ErrCacheMiss
	}
	return &post, nil
}

// Generation returns the current generation of a post, 0 if it was never invalidated
func (c *RedisPostCache) Generation(ctx context.Context, id int64) (int64, error) {
	gen, err := c.client.Get(ctx, genKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read post generation: %w", err)
	}
	return gen, nil
}

// SetPost stores the detail under its id unless the post moved past gen
func (c *RedisPostCache) SetPost(ctx context.Context, post *models.PostDetail, gen int64) error {
	if post == nil {
		return errors.New("post cannot be nil")
	}
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	stored, err := c.client.Eval(ctx, setIfGenerationScript,
		[]string{postKey(post.ID), genKey(post.ID)},
		data, strconv.FormatInt(gen, 10), c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to set post in cache: %w", err)
	}
	if stored == 0 {
		c.log.Debug().Int64("post_id", post.ID).Int64("generation", gen).Msg("Skipped caching superseded post")
	}
	return nil
}

// InvalidatePost advances the generation of a post, then drops its cached detail.
// The generation key has no TTL so a pending write can never see it reset.
func (c *RedisPostCache) InvalidatePost(ctx context.Context, id int64) error {
	if err := c.client.Incr(ctx, genKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to advance post generation: %w", err)
	}
	if err := c.client.Del(ctx, postKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete post from cache: %w", err)
	}
	return nil
}

// NopCache is used when no cache is configured. Every lookup misses.
type NopCache struct{}

func (NopCache) GetPost(context.Context, int64) (*models.PostDetail, error) { return nil, ErrCacheMiss }
func (NopCache) Generation(context.Context, int64) (int64, error) { return 0, nil }
func (NopCache) SetPost(context.Context, *models.PostDetail, int64) error { return nil }
func (NopCache) InvalidatePost(context.Context, int64) error { return nil }

func postKey(id int64) string {
	return postKeyPrefix + strconv.FormatInt(id, 10)
}

func genKey(id int64) string {
	return postKey(id) + genKeySuffix
}
