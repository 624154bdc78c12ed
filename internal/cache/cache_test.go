package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/strata-blog-api/internal/models"
)

// fakeRedis keeps values in a map and answers with pre-built redis results
type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet != nil {
		return redis.NewStringResult("", f.failGet)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

// Eval mirrors setIfGenerationScript: KEYS are the post and generation keys,
// ARGV the payload, the expected generation and the TTL in milliseconds.
func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	current, ok := f.data[keys[1]]
	if !ok {
		current = "0"
	}
	if current != args[1].(string) {
		return redis.NewCmdResult(int64(0), nil)
	}
	f.data[keys[0]] = string(args[0].([]byte))
	f.ttls[keys[0]] = time.Duration(args[2].(int64)) * time.Millisecond
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRedisPostCache_RoundTrip(t *testing.T) {
	store := newFakeRedis()
	c := NewRedisPostCache(store, time.Minute, zerolog.Nop())
	ctx := context.Background()

	_, err := c.GetPost(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)

	img := "img/a.png"
	post := &models.PostDetail{
		ID:        1,
		Title:     "Cached post title",
		Content:   "body",
		Author:    models.Author{ID: 3, Name: "Ada", Email: "ada@example.com"},
		ImagePath: &img,
		Comments:  []models.Comment{{ID: 2, AuthorName: "Reader", Content: "hi"}},
	}
	require.NoError(t, c.SetPost(ctx, post, 0))
	assert.Equal(t, time.Minute, store.ttls["post:1"])

	got, err := c.GetPost(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, post.Title, got.Title)
	assert.Equal(t, "Ada", got.Author.Name)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Reader", got.Comments[0].AuthorName)

	require.NoError(t, c.InvalidatePost(ctx, 1))
	_, err = c.GetPost(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)

	gen, err := c.Generation(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestRedisPostCache_SetPostSkipsSupersededGeneration(t *testing.T) {
	store := newFakeRedis()
	c := NewRedisPostCache(store, time.Minute, zerolog.Nop())
	ctx := context.Background()

	// a reader takes the generation, then the post is updated before it writes back
	gen, err := c.Generation(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	require.NoError(t, c.InvalidatePost(ctx, 4))

	require.NoError(t, c.SetPost(ctx, &models.PostDetail{ID: 4, Title: "Original post title"}, gen))
	_, err = c.GetPost(ctx, 4)
	assert.ErrorIs(t, err, ErrCacheMiss, "a read that started before the update must not be cached")

	gen, err = c.Generation(ctx, 4)
	require.NoError(t, err)
	require.NoError(t, c.SetPost(ctx, &models.PostDetail{ID: 4, Title: "Renamed post title"}, gen))
	got, err := c.GetPost(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Renamed post title", got.Title)
}

func TestRedisPostCache_GenerationBackendFailure(t *testing.T) {
	store := newFakeRedis()
	store.failGet = errors.New("connection refused")
	c := NewRedisPostCache(store, time.Minute, zerolog.Nop())

	_, err := c.Generation(context.Background(), 1)
	assert.Error(t, err)
}

func TestRedisPostCache_CorruptEntryIsAMiss(t *testing.T) {
	store := newFakeRedis()
	store.data["post:9"] = "{not json"
	c := NewRedisPostCache(store, time.Minute, zerolog.Nop())

	_, err := c.GetPost(context.Background(), 9)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisPostCache_BackendFailure(t *testing.T) {
	store := newFakeRedis()
	store.failGet = errors.New("connection refused")
	c := NewRedisPostCache(store, time.Minute, zerolog.Nop())

	_, err := c.GetPost(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisPostCache_SetNil(t *testing.T) {
	c := NewRedisPostCache(newFakeRedis(), time.Minute, zerolog.Nop())
	assert.Error(t, c.SetPost(context.Background(), nil, 0))
}

func TestNopCache(t *testing.T) {
	var c PostCache = NopCache{}
	ctx := context.Background()

	assert.NoError(t, c.SetPost(ctx, &models.PostDetail{ID: 1}, 0))
	_, err := c.GetPost(ctx, 1)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.NoError(t, c.InvalidatePost(ctx, 1))
}
