package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestService(t *testing.T) (Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client), mr
}

func TestService_GetSetDelete(t *testing.T) {
	svc, mr := newTestService(t)
	ctx := context.Background()

	var got item
	assert.ErrorIs(t, svc.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "k", item{Name: "a", Count: 2}, time.Minute))
	require.NoError(t, svc.Get(ctx, "k", &got))
	assert.Equal(t, item{Name: "a", Count: 2}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, svc.Get(ctx, "k", &got), ErrCacheMiss)

	require.NoError(t, svc.Set(ctx, "k", item{Name: "b"}, time.Minute))
	require.NoError(t, svc.Delete(ctx, "k"))
	assert.ErrorIs(t, svc.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestService_GetOrSet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return item{Name: "fresh", Count: calls}, nil
	}

	var first, second item
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &first))
	require.NoError(t, svc.GetOrSet(ctx, "k", time.Minute, fetch, &second))

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestService_GetOrSet_FetcherError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	notFound := errors.New("not found")

	var dest item
	err := svc.GetOrSet(ctx, "k", time.Minute, func() (interface{}, error) { return nil, notFound }, &dest)
	assert.ErrorIs(t, err, notFound)
	assert.ErrorIs(t, svc.Get(ctx, "k", &dest), ErrCacheMiss)
}
