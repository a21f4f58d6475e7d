package cache

import (
	"context"
	"testing"
	"time"

	"triviaroom/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RoomCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRoomCache(client, ttl), mr
}

func TestRoomCache(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, 5*time.Second)

	_, ok, err := c.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)

	snapshot := &services.RoomSnapshot{
		Code:       "ABC123",
		Status:     "active",
		MaxPlayers: 4,
		Players: []services.PlayerView{
			{ID: "p1", Name: "Alice", IsHost: true, Score: 150, HasAnswered: true},
		},
		CurrentQuestion: &services.QuestionView{Index: 0, Text: "2+2?", Options: []string{"1", "2", "3", "4"}},
	}
	require.NoError(t, c.Set(ctx, snapshot))
	assert.True(t, mr.Exists("room:ABC123"))
	assert.Equal(t, 5*time.Second, mr.TTL("room:ABC123"))

	got, ok, err := c.Get(ctx, "ABC123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, snapshot.Players, got.Players)
	require.NotNil(t, got.CurrentQuestion)
	assert.Equal(t, "2+2?", got.CurrentQuestion.Text)

	require.NoError(t, c.Invalidate(ctx, "ABC123"))
	_, ok, err = c.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoomCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Second)

	require.NoError(t, c.Set(ctx, &services.RoomSnapshot{Code: "ABC123", Status: "waiting"}))
	mr.FastForward(2 * time.Second)

	_, ok, err := c.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoomCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t, time.Minute)

	require.NoError(t, mr.Set("room:ABC123", "not json"))
	_, ok, err := c.Get(ctx, "ABC123")
	assert.Error(t, err)
	assert.False(t, ok)
}
