package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySessionStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemorySessionStore(time.Hour)
	s.now = func() time.Time { return now }

	a, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	b, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	c, err := s.Create(ctx, "u2")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Count("u1"))

	uid, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "u1", uid)

	require.NoError(t, s.Destroy(ctx, a))
	_, err = s.Get(ctx, a)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, s.DestroyUser(ctx, "u1"))
	assert.Zero(t, s.Count("u1"))
	_, err = s.Get(ctx, b)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	now = now.Add(2 * time.Hour)
	_, err = s.Get(ctx, c)
	assert.ErrorIs(t, err, ErrSessionNotFound, "expired")
}

func TestMemorySessionStore_States(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemorySessionStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.PutState(ctx, "st", time.Minute))
	require.NoError(t, s.ConsumeState(ctx, "st"))
	assert.ErrorIs(t, s.ConsumeState(ctx, "st"), ErrInvalidOAuthState)

	require.NoError(t, s.PutState(ctx, "late", time.Minute))
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, s.ConsumeState(ctx, "late"), ErrInvalidOAuthState)
}

func TestMemoryWindowCounter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryWindowCounter()
	c.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		n, err := c.Hit(ctx, "anna@example.is", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	n, err := c.Hit(ctx, "other@example.is", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	now = now.Add(time.Hour)
	n, err = c.Hit(ctx, "anna@example.is", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "window reset")
}

func TestNewSessionID(t *testing.T) {
	t.Parallel()
	a, err := newSessionID()
	require.NoError(t, err)
	b, err := newSessionID()
	require.NoError(t, err)
	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
}
