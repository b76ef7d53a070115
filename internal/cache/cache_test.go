package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mateusbmelzi/hub-entidades/internal/model"
)

func TestEventKeyNormalises(t *testing.T) {
	assert.Equal(t, EventKey(model.EventFilter{}), EventKey(model.EventFilter{Page: 1, PageSize: 20}))
	org := uuid.MustParse("7d8c2a5e-1f0b-4c3a-9e57-0d6a1b2c3d4e")
	assert.Equal(t, "events:org=7d8c2a5e-1f0b-4c3a-9e57-0d6a1b2c3d4e:page=2:size=10",
		EventKey(model.EventFilter{OrganizationID: &org, Page: 2, PageSize: 10}))
}

func TestMemoryExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, 0, "k", []byte("v")))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryInvalidate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)
	require.NoError(t, m.Set(ctx, 0, "a", []byte("1")))
	require.NoError(t, m.Set(ctx, 0, "b", []byte("2")))
	require.NoError(t, m.Invalidate(ctx))

	_, ok, _ := m.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
}

func TestMemoryDropsWritesFromOlderEpoch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(time.Hour)

	before, err := m.Epoch(ctx)
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(ctx))
	after, err := m.Epoch(ctx)
	require.NoError(t, err)
	assert.Greater(t, after, before)

	require.NoError(t, m.Set(ctx, before, "k", []byte("stale")))
	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, after, "k", []byte("fresh")))
	got, ok, _ := m.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("fresh"), got)
}

func TestRedisKeysAreScopedByGeneration(t *testing.T) {
	r := NewRedis(nil, "hub", time.Minute)
	assert.Equal(t, "hub:events:gen", r.genKey())
	assert.NotEqual(t, r.keyAt(0, "k"), r.keyAt(1, "k"))
	assert.Equal(t, r.keyAt(3, "k"), r.keyAt(3, "k"))
	assert.Regexp(t, `^hub:3:[0-9a-f]{40}$`, r.keyAt(3, "k"))
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	var c EventListCache = Nop{}
	require.NoError(t, c.Set(ctx, 0, "k", []byte("v")))
	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
